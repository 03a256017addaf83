package storefx

// PayloadCreator computes a payload from the arguments given to an action
// creator. Returning a Message (or *Message) with a non-nil Payload lets it
// also set the kind and meta of the created message.
type PayloadCreator func(args ...any) any

// ActionCreator builds messages of one kind.
type ActionCreator struct {
	kind   string
	create PayloadCreator
}

// NewActionCreator returns a creator for messages of the given kind. A nil
// create produces messages without a payload.
func NewActionCreator(kind string, create PayloadCreator) *ActionCreator {
	return &ActionCreator{kind: kind, create: create}
}

// Kind returns the kind of the messages built by c.
func (c *ActionCreator) Kind() string { return c.kind }

// StartKind returns the kind of c's start phase.
func (c *ActionCreator) StartKind() string { return StartKind(c.kind) }

// SuccessKind returns the kind of c's success phase.
func (c *ActionCreator) SuccessKind() string { return SuccessKind(c.kind) }

// ErrorKind returns the kind of c's error phase.
func (c *ActionCreator) ErrorKind() string { return ErrorKind(c.kind) }

// Create builds a message from args.
func (c *ActionCreator) Create(args ...any) Message {
	msg := Message{Kind: c.kind}
	if c.create == nil {
		return msg
	}

	result := c.create(args...)
	msg.Payload = result

	var override *Message
	switch r := result.(type) {
	case Message:
		override = &r
	case *Message:
		override = r
	}
	if override != nil && override.Payload != nil {
		if override.Kind != "" {
			msg.Kind = override.Kind
		}
		msg.Payload = override.Payload
		msg.Meta = override.Meta
	}
	return msg
}

// Actions maps names to action creators.
type Actions map[string]*ActionCreator

// CreateActions builds one creator per entry of creators, each producing
// messages of kind namespace + "/" + name.
//
// Example:
//
//	todos := storefx.CreateActions("todos", map[string]storefx.PayloadCreator{
//	    "add":   storefx.Identity(),
//	    "clear": nil,
//	})
//	store.Dispatch(todos["add"].Create("buy milk"))
func CreateActions(namespace string, creators map[string]PayloadCreator) Actions {
	actions := make(Actions, len(creators))
	for name, create := range creators {
		actions[name] = NewActionCreator(namespace+"/"+name, create)
	}
	return actions
}

// Identity returns a PayloadCreator whose payload is its first argument.
func Identity() PayloadCreator {
	return func(args ...any) any {
		if len(args) == 0 {
			return nil
		}
		return args[0]
	}
}
