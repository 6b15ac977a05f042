package wamp

// Hello is sent by the client to open a session on a realm (spec.md §6).
type Hello struct {
	Realm   string
	Details Dict
}

func (Hello) Type() MessageType { return TypeHello }
func (m Hello) toList() List    { return List{TypeHello, m.Realm, m.Details} }

func decodeHello(l List) (Message, error) {
	if len(l) != 3 {
		return nil, arityError(TypeHello, l, "realm, details")
	}
	realm, err := asString(l[1])
	if err != nil {
		return nil, err
	}
	details, err := asDict(l[2])
	if err != nil {
		return nil, err
	}
	return Hello{Realm: realm, Details: details}, nil
}

// Welcome is the router's acceptance of a session.
type Welcome struct {
	SessionID uint64
	Details   Dict
}

func (Welcome) Type() MessageType { return TypeWelcome }
func (m Welcome) toList() List    { return List{TypeWelcome, m.SessionID, m.Details} }

func decodeWelcome(l List) (Message, error) {
	if len(l) != 3 {
		return nil, arityError(TypeWelcome, l, "session_id, details")
	}
	sid, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	details, err := asDict(l[2])
	if err != nil {
		return nil, err
	}
	return Welcome{SessionID: sid, Details: details}, nil
}

// Abort terminates a session attempt or an established session (direction
// is bidirectional, spec.md §6).
type Abort struct {
	Details Dict
	Reason  string
}

func (Abort) Type() MessageType { return TypeAbort }
func (m Abort) toList() List    { return List{TypeAbort, m.Details, m.Reason} }

func decodeAbort(l List) (Message, error) {
	if len(l) != 3 {
		return nil, arityError(TypeAbort, l, "details, reason")
	}
	details, err := asDict(l[1])
	if err != nil {
		return nil, err
	}
	reason, err := asString(l[2])
	if err != nil {
		return nil, err
	}
	return Abort{Details: details, Reason: reason}, nil
}

// Challenge asks the client to authenticate using the named method.
type Challenge struct {
	AuthMethod string
	Extra      Dict
}

func (Challenge) Type() MessageType { return TypeChallenge }
func (m Challenge) toList() List    { return List{TypeChallenge, m.AuthMethod, m.Extra} }

func decodeChallenge(l List) (Message, error) {
	if len(l) != 3 {
		return nil, arityError(TypeChallenge, l, "auth_method, extra")
	}
	method, err := asString(l[1])
	if err != nil {
		return nil, err
	}
	extra, err := asDict(l[2])
	if err != nil {
		return nil, err
	}
	return Challenge{AuthMethod: method, Extra: extra}, nil
}

// Authenticate answers a Challenge.
type Authenticate struct {
	Signature string
	Extra     Dict
}

func (Authenticate) Type() MessageType { return TypeAuthenticate }
func (m Authenticate) toList() List    { return List{TypeAuthenticate, m.Signature, m.Extra} }

func decodeAuthenticate(l List) (Message, error) {
	if len(l) != 3 {
		return nil, arityError(TypeAuthenticate, l, "signature, extra")
	}
	sig, err := asString(l[1])
	if err != nil {
		return nil, err
	}
	extra, err := asDict(l[2])
	if err != nil {
		return nil, err
	}
	return Authenticate{Signature: sig, Extra: extra}, nil
}

// Goodbye closes a session, in either direction.
type Goodbye struct {
	Details Dict
	Reason  string
}

func (Goodbye) Type() MessageType { return TypeGoodbye }
func (m Goodbye) toList() List    { return List{TypeGoodbye, m.Details, m.Reason} }

func decodeGoodbye(l List) (Message, error) {
	if len(l) != 3 {
		return nil, arityError(TypeGoodbye, l, "details, reason")
	}
	details, err := asDict(l[1])
	if err != nil {
		return nil, err
	}
	reason, err := asString(l[2])
	if err != nil {
		return nil, err
	}
	return Goodbye{Details: details, Reason: reason}, nil
}

// Error carries a failure response to any request-bearing message.
type Error struct {
	RequestType MessageType
	RequestID   uint64
	Details     Dict
	URI         string
	Args        List
	Kwargs      Dict
}

func (Error) Type() MessageType { return TypeError }
func (m Error) toList() List {
	l := List{TypeError, m.RequestType, m.RequestID, m.Details, m.URI}
	return appendArgs(l, m.Args, m.Kwargs)
}

func decodeError(l List) (Message, error) {
	if len(l) < 5 {
		return nil, arityError(TypeError, l, "at least req_type, req_id, details, uri")
	}
	reqType, err := asInt(l[1])
	if err != nil {
		return nil, err
	}
	reqID, err := asUint64(l[2])
	if err != nil {
		return nil, err
	}
	details, err := asDict(l[3])
	if err != nil {
		return nil, err
	}
	uri, err := asString(l[4])
	if err != nil {
		return nil, err
	}
	args, kwargs, err := optionalArgs(l, 5)
	if err != nil {
		return nil, err
	}
	return Error{RequestType: MessageType(reqType), RequestID: reqID, Details: details, URI: uri, Args: args, Kwargs: kwargs}, nil
}
