package wamp

// List is an ordered WAMP value sequence (args, or a raw message list).
type List []interface{}

// Dict is a keyed WAMP value mapping (options, details, kwargs).
type Dict map[string]interface{}

// blobPrefix marks a string as a base64-tunneled binary blob when the wire
// serializer cannot represent bytes natively (spec.md §4.1).
const blobPrefix = "\x00"
