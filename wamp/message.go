// Package wamp implements the tag-numbered WAMP v2 message types and their
// list<->struct codec, URI match policies, request-id generation, and the
// client-visible error taxonomy. It has no knowledge of transports or
// sessions; see the transport, session and client packages for those.
package wamp

import "fmt"

// MessageType is one of the WAMP v2 message type codes (spec.md §6).
type MessageType int

const (
	TypeHello        MessageType = 1
	TypeWelcome      MessageType = 2
	TypeAbort        MessageType = 3
	TypeChallenge    MessageType = 4
	TypeAuthenticate MessageType = 5
	TypeGoodbye      MessageType = 6
	TypeError        MessageType = 8
	TypePublish      MessageType = 16
	TypePublished    MessageType = 17
	TypeSubscribe    MessageType = 32
	TypeSubscribed   MessageType = 33
	TypeUnsubscribe  MessageType = 34
	TypeUnsubscribed MessageType = 35
	TypeEvent        MessageType = 36
	TypeCall         MessageType = 48
	TypeCancel       MessageType = 49
	TypeResult       MessageType = 50
	TypeRegister     MessageType = 64
	TypeRegistered   MessageType = 65
	TypeUnregister   MessageType = 66
	TypeUnregistered MessageType = 67
	TypeInvocation   MessageType = 68
	TypeInterrupt    MessageType = 69
	TypeYield        MessageType = 70
)

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", int(t))
}

var messageTypeNames = map[MessageType]string{
	TypeHello: "HELLO", TypeWelcome: "WELCOME", TypeAbort: "ABORT",
	TypeChallenge: "CHALLENGE", TypeAuthenticate: "AUTHENTICATE",
	TypeGoodbye: "GOODBYE", TypeError: "ERROR", TypePublish: "PUBLISH",
	TypePublished: "PUBLISHED", TypeSubscribe: "SUBSCRIBE",
	TypeSubscribed: "SUBSCRIBED", TypeUnsubscribe: "UNSUBSCRIBE",
	TypeUnsubscribed: "UNSUBSCRIBED", TypeEvent: "EVENT", TypeCall: "CALL",
	TypeCancel: "CANCEL", TypeResult: "RESULT", TypeRegister: "REGISTER",
	TypeRegistered: "REGISTERED", TypeUnregister: "UNREGISTER",
	TypeUnregistered: "UNREGISTERED", TypeInvocation: "INVOCATION",
	TypeInterrupt: "INTERRUPT", TypeYield: "YIELD",
}

// Message is the tagged-union contract every WAMP wire message satisfies.
type Message interface {
	Type() MessageType
	toList() List
}

// Encode converts a Message to its wire list representation: head element
// is the numeric type code, the rest are the variant's positional fields.
func Encode(m Message) List {
	return m.toList()
}

// Decode converts a wire list representation back into a Message. It
// rejects unknown type codes and arities that don't match the variant
// registered for that code, signalling InvalidMessage.
func Decode(l List) (Message, error) {
	if len(l) == 0 {
		return nil, &InvalidMessage{Reason: "empty message list"}
	}
	code, err := asInt(l[0])
	if err != nil {
		return nil, &InvalidMessage{Reason: "non-integer message type: " + err.Error()}
	}
	decoder, ok := decoders[MessageType(code)]
	if !ok {
		return nil, &InvalidMessage{Reason: fmt.Sprintf("unknown message type code %d", code)}
	}
	return decoder(l)
}

type decodeFunc func(List) (Message, error)

var decoders = map[MessageType]decodeFunc{
	TypeHello:        decodeHello,
	TypeWelcome:      decodeWelcome,
	TypeAbort:        decodeAbort,
	TypeChallenge:    decodeChallenge,
	TypeAuthenticate: decodeAuthenticate,
	TypeGoodbye:      decodeGoodbye,
	TypeError:        decodeError,
	TypePublish:      decodePublish,
	TypePublished:    decodePublished,
	TypeSubscribe:    decodeSubscribe,
	TypeSubscribed:   decodeSubscribed,
	TypeUnsubscribe:  decodeUnsubscribe,
	TypeUnsubscribed: decodeUnsubscribed,
	TypeEvent:        decodeEvent,
	TypeCall:         decodeCall,
	TypeCancel:       decodeCancel,
	TypeResult:       decodeResult,
	TypeRegister:     decodeRegister,
	TypeRegistered:   decodeRegistered,
	TypeUnregister:   decodeUnregister,
	TypeUnregistered: decodeUnregistered,
	TypeInvocation:   decodeInvocation,
	TypeInterrupt:    decodeInterrupt,
	TypeYield:        decodeYield,
}

func arityError(t MessageType, l List, want string) error {
	return &InvalidMessage{Reason: fmt.Sprintf("%s: expected %s fields, got %d", t, want, len(l)-1)}
}

func asInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case MessageType:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func asUint64(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		return uint64(n), nil
	case int:
		return uint64(n), nil
	case float64:
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("not a request id: %T", v)
	}
}

func asString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("not a string: %T", v)
	}
	return s, nil
}

func asDict(v interface{}) (Dict, error) {
	switch d := v.(type) {
	case Dict:
		return d, nil
	case map[string]interface{}:
		return Dict(d), nil
	default:
		return nil, fmt.Errorf("not a dict: %T", v)
	}
}

func asList(v interface{}) (List, error) {
	switch l := v.(type) {
	case List:
		return l, nil
	case []interface{}:
		return List(l), nil
	default:
		return nil, fmt.Errorf("not a list: %T", v)
	}
}

// optionalArgs extracts the trailing optional args/kwargs pair that many
// WAMP messages carry, e.g. [.., args?, kwargs?].
func optionalArgs(l List, from int) (args List, kwargs Dict, err error) {
	if len(l) > from {
		args, err = asList(l[from])
		if err != nil {
			return nil, nil, err
		}
	}
	if len(l) > from+1 {
		kwargs, err = asDict(l[from+1])
		if err != nil {
			return nil, nil, err
		}
	}
	return args, kwargs, nil
}

func appendArgs(l List, args List, kwargs Dict) List {
	if kwargs != nil {
		if args == nil {
			args = List{}
		}
		return append(l, args, kwargs)
	}
	if args != nil {
		return append(l, args)
	}
	return l
}
