package storefx

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when a raw message is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

// Inspector examines raw message bytes and returns a View for field queries.
type Inspector interface {
	Inspect(raw []byte) (View, error)
}

// View provides format-agnostic field access over a raw message.
type View interface {
	// HasField returns true if the path exists in the message.
	HasField(path string) bool

	// GetString returns the string value at path, or false if not found
	// or not a string.
	GetString(path string) (string, bool)

	// GetBool returns the boolean value at path, or false if not found
	// or not a boolean.
	GetBool(path string) (value bool, ok bool)

	// GetValue returns the decoded value at path (string, float64, bool,
	// nil, []any or map[string]any), or false if not found.
	GetValue(path string) (any, bool)
}

// JSONInspector returns an Inspector that uses gjson for field access.
func JSONInspector() Inspector {
	return jsonInspector{}
}

type jsonInspector struct{}

func (jsonInspector) Inspect(raw []byte) (View, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	return jsonView{raw: raw}, nil
}

type jsonView struct {
	raw []byte
}

func (v jsonView) HasField(path string) bool {
	return gjson.GetBytes(v.raw, path).Exists()
}

func (v jsonView) GetString(path string) (string, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() || r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

func (v jsonView) GetBool(path string) (bool, bool) {
	r := gjson.GetBytes(v.raw, path)
	switch r.Type {
	case gjson.True:
		return true, true
	case gjson.False:
		return false, true
	default:
		return false, false
	}
}

func (v jsonView) GetValue(path string) (any, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() {
		return nil, false
	}
	return r.Value(), true
}
