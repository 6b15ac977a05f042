package serialize

import (
	"encoding/json"
	"fmt"

	"github.com/gieseladev/aiowamp/wamp"
)

// JSON is the reference Serializer implementation using the "wamp.2.json"
// wire format. Binary blobs are tunneled through the NUL-prefixed base64
// string marker described in spec.md §4.1, since JSON cannot carry raw
// bytes natively.
type JSON struct{}

// Serialize renders msg as a JSON array, blob-args tunneled as strings.
func (JSON) Serialize(msg wamp.Message) ([]byte, error) {
	list := wamp.Encode(msg)
	wire := make([]interface{}, len(list))
	for i, v := range list {
		wire[i] = tunnelBlobs(v)
	}
	return json.Marshal(wire)
}

// Deserialize parses data as a JSON array and decodes it into a message.
func (JSON) Deserialize(data []byte) (wamp.Message, error) {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("serialize: invalid JSON message: %w", err)
	}
	list := make(wamp.List, len(raw))
	for i, v := range raw {
		list[i] = untunnelBlobs(v)
	}
	return wamp.Decode(list)
}

// tunnelBlobs walks a WAMP value recursively, replacing wamp.Blob values
// with their string marker encoding.
func tunnelBlobs(v interface{}) interface{} {
	switch val := v.(type) {
	case wamp.Blob:
		return wamp.EncodeBlobString(val)
	case []byte:
		return wamp.EncodeBlobString(wamp.Blob(val))
	case wamp.List:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = tunnelBlobs(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = tunnelBlobs(e)
		}
		return out
	case wamp.Dict:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = tunnelBlobs(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = tunnelBlobs(e)
		}
		return out
	default:
		return v
	}
}

// untunnelBlobs is tunnelBlobs's inverse, applied to freshly-decoded JSON
// values (map[string]interface{}/[]interface{}/string/float64).
func untunnelBlobs(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		if blob, ok := wamp.DecodeBlobString(val); ok {
			return blob
		}
		return val
	case []interface{}:
		out := make(wamp.List, len(val))
		for i, e := range val {
			out[i] = untunnelBlobs(e)
		}
		return out
	case map[string]interface{}:
		out := make(wamp.Dict, len(val))
		for k, e := range val {
			out[k] = untunnelBlobs(e)
		}
		return out
	default:
		return v
	}
}
