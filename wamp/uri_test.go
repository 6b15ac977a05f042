package wamp

import "testing"

func TestPrefixMatch(t *testing.T) {
	cases := []struct {
		prefix, candidate string
		want              bool
	}{
		{"com.myapp.myobject1", "com.myapp.myobject1.myprocedure1", true},
		{"com.myapp.myobject1", "com.myapp.myobject1", true},
		{"com.myapp.myobject1", "com.myapp.myobject1-mysubobject1", false},
		{"com.myapp.myobject1", "com.myapp.myobject2", false},
		{"com.myapp.myobject1", "com.myapp.myobject", false},
	}
	for _, c := range cases {
		got := PrefixMatch(c.prefix, c.candidate)
		if got != c.want {
			t.Errorf("PrefixMatch(%q, %q) = %v, want %v", c.prefix, c.candidate, got, c.want)
		}
	}
}

func TestWildcardMatch(t *testing.T) {
	pattern := "com.myapp..myprocedure1"
	cases := []struct {
		candidate string
		want      bool
	}{
		{"com.myapp.myobject1.myprocedure1", true},
		{"com.myapp.myobject2.myprocedure1", true},
		{"com.myapp.myobject1.myprocedure1.mysubprocedure1", false},
		{"com.myapp.myobject1.myprocedure2", false},
		{"com.myapp2.myobject1.myprocedure1", false},
	}
	for _, c := range cases {
		got := WildcardMatch(pattern, c.candidate)
		if got != c.want {
			t.Errorf("WildcardMatch(%q, %q) = %v, want %v", pattern, c.candidate, got, c.want)
		}
	}
}

func TestURIMatches(t *testing.T) {
	u := URI{Value: "com.myapp.myobject1", Policy: MatchPrefix}
	if !u.Matches("com.myapp.myobject1.sub") {
		t.Error("expected prefix match")
	}
	if u.Matches("com.myapp.myobject2") {
		t.Error("expected no match")
	}

	exact := NewURI("io.giesela.add")
	if !exact.Matches("io.giesela.add") {
		t.Error("expected exact match")
	}
	if exact.Matches("io.giesela.add.sub") {
		t.Error("expected no exact match for substring")
	}
}
