package client

import (
	"sort"

	"github.com/gieseladev/aiowamp/wamp"
)

// BWList restricts which subscribers/callees are eligible to receive an
// event or invocation, grounded on
// original_source/aiowamp/client/bwlist.py's BlackWhiteList. Session ids
// are distinguished from auth ids/roles by type, matching the original's
// assumption that the two sets are disjoint.
type BWList struct {
	ExcludedIDs       []uint64
	ExcludedAuthIDs   []string
	ExcludedAuthRoles []string
	EligibleIDs       []uint64
	EligibleAuthIDs   []string
	EligibleAuthRoles []string
}

// IsEmpty reports whether no constraint has been configured at all, the
// equivalent of Python's `bool(bwlist) is False`.
func (b BWList) IsEmpty() bool {
	return len(b.ExcludedIDs) == 0 && len(b.ExcludedAuthIDs) == 0 && len(b.ExcludedAuthRoles) == 0 &&
		len(b.EligibleIDs) == 0 && len(b.EligibleAuthIDs) == 0 && len(b.EligibleAuthRoles) == 0
}

// ExcludeSessionID adds id to the exclusion list, keeping it sorted and
// deduplicated.
func (b *BWList) ExcludeSessionID(id uint64) {
	b.ExcludedIDs = addUniqueUint64(b.ExcludedIDs, id)
}

// ExcludeAuthID adds authID to the exclusion list.
func (b *BWList) ExcludeAuthID(authID string) {
	b.ExcludedAuthIDs = addUniqueString(b.ExcludedAuthIDs, authID)
}

// ExcludeAuthRole adds role to the exclusion list.
func (b *BWList) ExcludeAuthRole(role string) {
	b.ExcludedAuthRoles = addUniqueString(b.ExcludedAuthRoles, role)
}

// AllowSessionID adds id to the eligible list.
func (b *BWList) AllowSessionID(id uint64) {
	b.EligibleIDs = addUniqueUint64(b.EligibleIDs, id)
}

// AllowAuthID adds authID to the eligible list.
func (b *BWList) AllowAuthID(authID string) {
	b.EligibleAuthIDs = addUniqueString(b.EligibleAuthIDs, authID)
}

// AllowAuthRole adds role to the eligible list.
func (b *BWList) AllowAuthRole(role string) {
	b.EligibleAuthRoles = addUniqueString(b.EligibleAuthRoles, role)
}

// ToOptions writes this bwlist's constraints into options using the WAMP
// advanced-profile option names (exclude/exclude_authid/exclude_authrole/
// eligible/eligible_authid/eligible_authrole), matching
// bwlist.py's to_options. options may be nil, in which case one is
// created.
func (b BWList) ToOptions(options wamp.Dict) wamp.Dict {
	if options == nil {
		options = wamp.Dict{}
	}
	if len(b.ExcludedIDs) > 0 {
		options["exclude"] = uint64sToList(b.ExcludedIDs)
	}
	if len(b.ExcludedAuthIDs) > 0 {
		options["exclude_authid"] = stringsToList(b.ExcludedAuthIDs)
	}
	if len(b.ExcludedAuthRoles) > 0 {
		options["exclude_authrole"] = stringsToList(b.ExcludedAuthRoles)
	}
	if len(b.EligibleIDs) > 0 {
		options["eligible"] = uint64sToList(b.EligibleIDs)
	}
	if len(b.EligibleAuthIDs) > 0 {
		options["eligible_authid"] = stringsToList(b.EligibleAuthIDs)
	}
	if len(b.EligibleAuthRoles) > 0 {
		options["eligible_authrole"] = stringsToList(b.EligibleAuthRoles)
	}
	return options
}

func addUniqueUint64(list []uint64, v uint64) []uint64 {
	i := sort.Search(len(list), func(i int) bool { return list[i] >= v })
	if i < len(list) && list[i] == v {
		return list
	}
	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}

func addUniqueString(list []string, v string) []string {
	i := sort.Search(len(list), func(i int) bool { return list[i] >= v })
	if i < len(list) && list[i] == v {
		return list
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}

func uint64sToList(ids []uint64) wamp.List {
	out := make(wamp.List, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func stringsToList(ss []string) wamp.List {
	out := make(wamp.List, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
