package storefx

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire field names of a message.
const (
	// KindField carries the discriminant.
	KindField = "type"
	// PayloadField carries the optional payload.
	PayloadField = "payload"
	// ErrorField flags an error message.
	ErrorField = "error"
	// MetaField carries opaque metadata.
	MetaField = "meta"

	kindFieldAlt = "kind"
)

// AsyncPayloadKey is the reserved Meta key read by the async middleware.
const AsyncPayloadKey = "asyncPayload"

// Phase suffixes appended to a kind by the async middleware.
const (
	StartSuffix   = "/start"
	SuccessSuffix = "/success"
	ErrorSuffix   = "/error"
)

// ErrNotMessage is returned when a value has no string discriminant.
var ErrNotMessage = errors.New("not a message")

// Meta is opaque message metadata.
type Meta map[string]any

// AsyncMeta is the value stored under Meta[AsyncPayloadKey].
type AsyncMeta struct {
	// SkipOuter suppresses the start and success phase messages. Error
	// messages are always dispatched.
	SkipOuter bool `json:"skipOuter"`
}

// Message is the unit dispatched through a store.
//
// A nil Payload means the message has no payload. Messages are treated as
// immutable: middleware builds new messages instead of editing them.
type Message struct {
	// Kind is the discriminant identifying the message category.
	Kind string

	// Payload is an arbitrary value, a PayloadFunc, or a Thenable.
	Payload any

	// Error marks the message as describing a failure.
	Error bool

	// Meta is opaque metadata, shared (not copied) by derived messages.
	Meta Meta
}

// SkipOuter reports whether Meta[AsyncPayloadKey] asks the async
// middleware to skip the start and success phases. Only a boolean true
// counts.
func (m Message) SkipOuter() bool {
	switch ap := m.Meta[AsyncPayloadKey].(type) {
	case AsyncMeta:
		return ap.SkipOuter
	case *AsyncMeta:
		return ap != nil && ap.SkipOuter
	case map[string]any:
		skip, _ := ap["skipOuter"].(bool)
		return skip
	case Meta:
		skip, _ := ap["skipOuter"].(bool)
		return skip
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (m Message) String() string {
	if m.Payload == nil {
		return fmt.Sprintf("%s{error=%t}", m.Kind, m.Error)
	}
	return fmt.Sprintf("%s{payload=%v, error=%t}", m.Kind, m.Payload, m.Error)
}

type messageJSON struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Error   bool   `json:"error,omitempty"`
	Meta    Meta   `json:"meta,omitempty"`
}

// MarshalJSON writes the message in its wire shape. Function and Thenable
// payloads cannot be encoded.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{
		Type:    m.Kind,
		Payload: m.Payload,
		Error:   m.Error,
		Meta:    m.Meta,
	})
}

// View returns a View over the message's wire shape, for matching with a
// Discriminator. It fails when the payload cannot be encoded as JSON.
func (m Message) View() (View, error) {
	raw, err := m.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("view message %q: %w", m.Kind, err)
	}
	return JSONInspector().Inspect(raw)
}

// StartKind returns the kind of the start phase of kind.
func StartKind(kind string) string { return kind + StartSuffix }

// SuccessKind returns the kind of the success phase of kind.
func SuccessKind(kind string) string { return kind + SuccessSuffix }

// ErrorKind returns the kind of the error phase of kind.
func ErrorKind(kind string) string { return kind + ErrorSuffix }

// AsMessage recognizes well-formed messages: anything with a string
// discriminant. It accepts Message, *Message, map[string]any with a string
// "type" (or "kind") entry, and raw JSON ([]byte or json.RawMessage).
// Everything else, nil included, is not a message.
func AsMessage(v any) (Message, bool) {
	switch m := v.(type) {
	case Message:
		return m, true
	case *Message:
		if m == nil {
			return Message{}, false
		}
		return *m, true
	case map[string]any:
		return messageFromMap(m)
	case Meta:
		return messageFromMap(m)
	case json.RawMessage:
		msg, err := ParseMessage(m)
		return msg, err == nil
	case []byte:
		msg, err := ParseMessage(m)
		return msg, err == nil
	default:
		return Message{}, false
	}
}

func messageFromMap(m map[string]any) (Message, bool) {
	kind, ok := m[KindField].(string)
	if !ok {
		if kind, ok = m[kindFieldAlt].(string); !ok {
			return Message{}, false
		}
	}
	msg := Message{Kind: kind, Payload: m[PayloadField]}
	msg.Error, _ = m[ErrorField].(bool)
	switch meta := m[MetaField].(type) {
	case Meta:
		msg.Meta = meta
	case map[string]any:
		msg.Meta = meta
	}
	return msg, true
}

// ParseMessage decodes a raw JSON message. The discriminant is read from
// "type", falling back to "kind".
func ParseMessage(raw []byte) (Message, error) {
	view, err := JSONInspector().Inspect(raw)
	if err != nil {
		return Message{}, err
	}
	if !messageDiscriminator.Match(view) {
		return Message{}, fmt.Errorf("parse message: %w", ErrNotMessage)
	}

	kind, ok := view.GetString(KindField)
	if !ok {
		kind, _ = view.GetString(kindFieldAlt)
	}

	msg := Message{Kind: kind}
	msg.Payload, _ = view.GetValue(PayloadField)
	msg.Error, _ = view.GetBool(ErrorField)
	if meta, ok := view.GetValue(MetaField); ok {
		if m, ok := meta.(map[string]any); ok {
			msg.Meta = m
		}
	}
	return msg, nil
}
