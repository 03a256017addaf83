package storefx

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	Arg1 int
	Arg2 string
}

var testActions = CreateActions("test", map[string]PayloadCreator{
	"noPayload":     nil,
	"simplePayload": func(...any) any { return "simple" },
	"identity":      Identity(),
	"complexPayload": func(args ...any) any {
		return pair{Arg1: args[0].(int), Arg2: args[1].(string)}
	},
	"specialProperties": func(args ...any) any {
		p := pair{Arg1: args[0].(int), Arg2: args[1].(string)}
		return Message{
			Payload: p,
			Meta: Meta{
				"arg1": fmt.Sprintf("meta %d", p.Arg1),
				"arg2": "meta " + p.Arg2,
			},
		}
	},
	"overriddenKind": func(...any) any {
		return &Message{Kind: "totally overridden", Payload: ""}
	},
	"messageWithoutPayload": func(...any) any {
		return Message{Kind: "ignored"}
	},
	"promisePayload": func(...any) any { return Resolved("promise") },
})

func TestCreateActions(t *testing.T) {
	t.Run("supports no payload", func(t *testing.T) {
		c := testActions["noPayload"]
		assert.Equal(t, "test/noPayload", c.Kind())
		assert.Equal(t, Message{Kind: "test/noPayload"}, c.Create())
	})

	t.Run("supports returning a payload", func(t *testing.T) {
		c := testActions["simplePayload"]
		assert.Equal(t, "test/simplePayload", c.Kind())
		assert.Equal(t, Message{Kind: "test/simplePayload", Payload: "simple"}, c.Create())
	})

	t.Run("supports any number of arguments", func(t *testing.T) {
		assert.Equal(t,
			Message{Kind: "test/complexPayload", Payload: pair{42, "foo"}},
			testActions["complexPayload"].Create(42, "foo"),
		)
	})

	t.Run("supports payload and meta overrides", func(t *testing.T) {
		assert.Equal(t,
			Message{
				Kind:    "test/specialProperties",
				Payload: pair{42, "foo"},
				Meta:    Meta{"arg1": "meta 42", "arg2": "meta foo"},
			},
			testActions["specialProperties"].Create(42, "foo"),
		)
	})

	t.Run("supports kind override", func(t *testing.T) {
		c := testActions["overriddenKind"]
		assert.Equal(t, "test/overriddenKind", c.Kind())
		assert.Equal(t, Message{Kind: "totally overridden", Payload: ""}, c.Create())
	})

	t.Run("message without payload is the payload itself", func(t *testing.T) {
		msg := testActions["messageWithoutPayload"].Create()
		assert.Equal(t, "test/messageWithoutPayload", msg.Kind)
		assert.Equal(t, Message{Kind: "ignored"}, msg.Payload)
	})

	t.Run("exposes phase kinds", func(t *testing.T) {
		c := testActions["promisePayload"]
		assert.Equal(t, "test/promisePayload/start", c.StartKind())
		assert.Equal(t, "test/promisePayload/success", c.SuccessKind())
		assert.Equal(t, "test/promisePayload/error", c.ErrorKind())
	})

	t.Run("empty namespace", func(t *testing.T) {
		actions := CreateActions("", map[string]PayloadCreator{"x": nil})
		assert.Equal(t, "/x", actions["x"].Kind())
	})
}

func TestIdentity(t *testing.T) {
	create := Identity()

	assert.Equal(t, 12, create(12))
	assert.Equal(t, 12, create(12, "ignored"))
	assert.Nil(t, create())

	msg := testActions["identity"].Create("value")
	require.Equal(t, "test/identity", msg.Kind)
	assert.Equal(t, "value", msg.Payload)
}
