package wamp

// Publish asks the broker to dispatch an event to a topic's subscribers.
type Publish struct {
	RequestID uint64
	Options   Dict
	Topic     string
	Args      List
	Kwargs    Dict
}

func (Publish) Type() MessageType { return TypePublish }
func (m Publish) toList() List {
	l := List{TypePublish, m.RequestID, m.Options, m.Topic}
	return appendArgs(l, m.Args, m.Kwargs)
}

func decodePublish(l List) (Message, error) {
	if len(l) < 4 {
		return nil, arityError(TypePublish, l, "at least req_id, options, topic")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	options, err := asDict(l[2])
	if err != nil {
		return nil, err
	}
	topic, err := asString(l[3])
	if err != nil {
		return nil, err
	}
	args, kwargs, err := optionalArgs(l, 4)
	if err != nil {
		return nil, err
	}
	return Publish{RequestID: reqID, Options: options, Topic: topic, Args: args, Kwargs: kwargs}, nil
}

// Published acknowledges a Publish sent with acknowledge=true.
type Published struct {
	RequestID     uint64
	PublicationID uint64
}

func (Published) Type() MessageType { return TypePublished }
func (m Published) toList() List    { return List{TypePublished, m.RequestID, m.PublicationID} }

func decodePublished(l List) (Message, error) {
	if len(l) != 3 {
		return nil, arityError(TypePublished, l, "req_id, publication_id")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	pubID, err := asUint64(l[2])
	if err != nil {
		return nil, err
	}
	return Published{RequestID: reqID, PublicationID: pubID}, nil
}

// Subscribe registers interest in a topic.
type Subscribe struct {
	RequestID uint64
	Options   Dict
	Topic     string
}

func (Subscribe) Type() MessageType { return TypeSubscribe }
func (m Subscribe) toList() List    { return List{TypeSubscribe, m.RequestID, m.Options, m.Topic} }

func decodeSubscribe(l List) (Message, error) {
	if len(l) != 4 {
		return nil, arityError(TypeSubscribe, l, "req_id, options, topic")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	options, err := asDict(l[2])
	if err != nil {
		return nil, err
	}
	topic, err := asString(l[3])
	if err != nil {
		return nil, err
	}
	return Subscribe{RequestID: reqID, Options: options, Topic: topic}, nil
}

// Subscribed acknowledges a Subscribe.
type Subscribed struct {
	RequestID      uint64
	SubscriptionID uint64
}

func (Subscribed) Type() MessageType { return TypeSubscribed }
func (m Subscribed) toList() List    { return List{TypeSubscribed, m.RequestID, m.SubscriptionID} }

func decodeSubscribed(l List) (Message, error) {
	if len(l) != 3 {
		return nil, arityError(TypeSubscribed, l, "req_id, subscription_id")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	subID, err := asUint64(l[2])
	if err != nil {
		return nil, err
	}
	return Subscribed{RequestID: reqID, SubscriptionID: subID}, nil
}

// Unsubscribe removes a subscription by id.
type Unsubscribe struct {
	RequestID      uint64
	SubscriptionID uint64
}

func (Unsubscribe) Type() MessageType { return TypeUnsubscribe }
func (m Unsubscribe) toList() List {
	return List{TypeUnsubscribe, m.RequestID, m.SubscriptionID}
}

func decodeUnsubscribe(l List) (Message, error) {
	if len(l) != 3 {
		return nil, arityError(TypeUnsubscribe, l, "req_id, subscription_id")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	subID, err := asUint64(l[2])
	if err != nil {
		return nil, err
	}
	return Unsubscribe{RequestID: reqID, SubscriptionID: subID}, nil
}

// Unsubscribed acknowledges an Unsubscribe.
type Unsubscribed struct {
	RequestID uint64
}

func (Unsubscribed) Type() MessageType { return TypeUnsubscribed }
func (m Unsubscribed) toList() List    { return List{TypeUnsubscribed, m.RequestID} }

func decodeUnsubscribed(l List) (Message, error) {
	if len(l) != 2 {
		return nil, arityError(TypeUnsubscribed, l, "req_id")
	}
	reqID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	return Unsubscribed{RequestID: reqID}, nil
}

// Event delivers a published payload to one subscriber.
type Event struct {
	SubscriptionID uint64
	PublicationID  uint64
	Details        Dict
	Args           List
	Kwargs         Dict
}

func (Event) Type() MessageType { return TypeEvent }
func (m Event) toList() List {
	l := List{TypeEvent, m.SubscriptionID, m.PublicationID, m.Details}
	return appendArgs(l, m.Args, m.Kwargs)
}

func decodeEvent(l List) (Message, error) {
	if len(l) < 4 {
		return nil, arityError(TypeEvent, l, "at least subscription_id, publication_id, details")
	}
	subID, err := asUint64(l[1])
	if err != nil {
		return nil, err
	}
	pubID, err := asUint64(l[2])
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
	return Event{SubscriptionID: subID, PublicationID: pubID, Details: details, Args: args, Kwargs: kwargs}, nil
}
