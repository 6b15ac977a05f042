package wamp

// Call invokes a remote procedure.
type Call struct {
	RequestID uint64
	Options   Dict
	Procedure string
	Args      List
	Kwargs    Dict
}

func (Call) Type() MessageType { return TypeCall }
func (m Call) toList() List {
	l := List{TypeCall, m.RequestID, m.Options, m.Procedure}
	return appendArgs(l, m.Args, m.Kwargs)
}

func decodeCall(l List) (Message, error) {
	if len(l) < 4 {
		return nil, arityError(TypeCall, l, "at least req_id, options, procedure")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	options, err := asDict(l[2])
	if err != nil {
		return nil, err
	}
	procedure, err := asString(l[3])
	if err != nil {
		return nil, err
	}
	args, kwargs, err := optionalArgs(l, 4)
	if err != nil {
		return nil, err
	}
	return Call{RequestID: reqID, Options: options, Procedure: procedure, Args: args, Kwargs: kwargs}, nil
}

// Cancel asks the router to cancel an outstanding Call.
type Cancel struct {
	RequestID uint64
	Options   Dict
}

func (Cancel) Type() MessageType { return TypeCancel }
func (m Cancel) toList() List    { return List{TypeCancel, m.RequestID, m.Options} }

func decodeCancel(l List) (Message, error) {
	if len(l) != 3 {
		return nil, arityError(TypeCancel, l, "req_id, options")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	options, err := asDict(l[2])
	if err != nil {
		return nil, err
	}
	return Cancel{RequestID: reqID, Options: options}, nil
}

// Result carries a Call's (possibly progressive) result.
type Result struct {
	RequestID uint64
	Details   Dict
	Args      List
	Kwargs    Dict
}

func (Result) Type() MessageType { return TypeResult }
func (m Result) toList() List {
	l := List{TypeResult, m.RequestID, m.Details}
	return appendArgs(l, m.Args, m.Kwargs)
}

func decodeResult(l List) (Message, error) {
	if len(l) < 3 {
		return nil, arityError(TypeResult, l, "at least req_id, details")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	details, err := asDict(l[2])
	if err != nil {
		return nil, err
	}
	args, kwargs, err := optionalArgs(l, 3)
	if err != nil {
		return nil, err
	}
	return Result{RequestID: reqID, Details: details, Args: args, Kwargs: kwargs}, nil
}

// IsProgress reports whether this Result is a progressive (non-terminal)
// result, per the "progress" details flag (spec.md §4.5).
func (m Result) IsProgress() bool {
	v, ok := m.Details["progress"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Register binds a procedure URI to the caller's registration.
type Register struct {
	RequestID uint64
	Options   Dict
	Procedure string
}

func (Register) Type() MessageType { return TypeRegister }
func (m Register) toList() List {
	return List{TypeRegister, m.RequestID, m.Options, m.Procedure}
}

func decodeRegister(l List) (Message, error) {
	if len(l) != 4 {
		return nil, arityError(TypeRegister, l, "req_id, options, procedure")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	options, err := asDict(l[2])
	if err != nil {
		return nil, err
	}
	procedure, err := asString(l[3])
	if err != nil {
		return nil, err
	}
	return Register{RequestID: reqID, Options: options, Procedure: procedure}, nil
}

// Registered acknowledges a Register.
type Registered struct {
	RequestID      uint64
	RegistrationID uint64
}

func (Registered) Type() MessageType { return TypeRegistered }
func (m Registered) toList() List    { return List{TypeRegistered, m.RequestID, m.RegistrationID} }

func decodeRegistered(l List) (Message, error) {
	if len(l) != 3 {
		return nil, arityError(TypeRegistered, l, "req_id, registration_id")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	regID, err := asUint64(l[2])
	if err != nil {
		return nil, err
	}
	return Registered{RequestID: reqID, RegistrationID: regID}, nil
}

// Unregister removes a registration by id.
type Unregister struct {
	RequestID      uint64
	RegistrationID uint64
}

func (Unregister) Type() MessageType { return TypeUnregister }
func (m Unregister) toList() List {
	return List{TypeUnregister, m.RequestID, m.RegistrationID}
}

func decodeUnregister(l List) (Message, error) {
	if len(l) != 3 {
		return nil, arityError(TypeUnregister, l, "req_id, registration_id")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	regID, err := asUint64(l[2])
	if err != nil {
		return nil, err
	}
	return Unregister{RequestID: reqID, RegistrationID: regID}, nil
}

// Unregistered acknowledges an Unregister.
type Unregistered struct {
	RequestID uint64
}

func (Unregistered) Type() MessageType { return TypeUnregistered }
func (m Unregistered) toList() List    { return List{TypeUnregistered, m.RequestID} }

func decodeUnregistered(l List) (Message, error) {
	if len(l) != 2 {
		return nil, arityError(TypeUnregistered, l, "req_id")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	return Unregistered{RequestID: reqID}, nil
}

// Invocation delivers an incoming call to a callee.
type Invocation struct {
	RequestID      uint64
	RegistrationID uint64
	Details        Dict
	Args           List
	Kwargs         Dict
}

func (Invocation) Type() MessageType { return TypeInvocation }
func (m Invocation) toList() List {
	l := List{TypeInvocation, m.RequestID, m.RegistrationID, m.Details}
	return appendArgs(l, m.Args, m.Kwargs)
}

func decodeInvocation(l List) (Message, error) {
	if len(l) < 4 {
		return nil, arityError(TypeInvocation, l, "at least req_id, registration_id, details")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	regID, err := asUint64(l[2])
	if err != nil {
		return nil, err
	}
	details, err := asDict(l[3])
	if err != nil {
		return nil, err
	}
	args, kwargs, err := optionalArgs(l, 4)
	if err != nil {
		return nil, err
	}
	return Invocation{RequestID: reqID, RegistrationID: regID, Details: details, Args: args, Kwargs: kwargs}, nil
}

// Interrupt asks a callee to cooperatively cancel a running Invocation.
type Interrupt struct {
	RequestID uint64
	Options   Dict
}

func (Interrupt) Type() MessageType { return TypeInterrupt }
func (m Interrupt) toList() List    { return List{TypeInterrupt, m.RequestID, m.Options} }

func decodeInterrupt(l List) (Message, error) {
	if len(l) != 3 {
		return nil, arityError(TypeInterrupt, l, "req_id, options")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	options, err := asDict(l[2])
	if err != nil {
		return nil, err
	}
	return Interrupt{RequestID: reqID, Options: options}, nil
}

// Yield returns a (possibly progressive) invocation result to the router.
type Yield struct {
	RequestID uint64
	Options   Dict
	Args      List
	Kwargs    Dict
}

func (Yield) Type() MessageType { return TypeYield }
func (m Yield) toList() List {
	l := List{TypeYield, m.RequestID, m.Options}
	return appendArgs(l, m.Args, m.Kwargs)
}

func decodeYield(l List) (Message, error) {
	if len(l) < 3 {
		return nil, arityError(TypeYield, l, "at least req_id, options")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	options, err := asDict(l[2])
	if err != nil {
		return nil, err
	}
	args, kwargs, err := optionalArgs(l, 3)
	if err != nil {
		return nil, err
	}
	return Yield{RequestID: reqID, Options: options, Args: args, Kwargs: kwargs}, nil
}
