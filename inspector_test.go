package storefx

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type JSONInspectorSuite struct {
	suite.Suite
	inspector Inspector
}

func (s *JSONInspectorSuite) SetupTest() {
	s.inspector = JSONInspector()
}

func TestJSONInspectorSuite(t *testing.T) {
	suite.Run(t, new(JSONInspectorSuite))
}

func (s *JSONInspectorSuite) TestReturnsViewForValidJSON() {
	view, err := s.inspector.Inspect([]byte(`{"type": "todos/add"}`))

	s.Require().NoError(err)
	s.Assert().NotNil(view)
}

func (s *JSONInspectorSuite) TestReturnsErrorForInvalidJSON() {
	_, err := s.inspector.Inspect([]byte(`{not valid}`))

	s.Assert().ErrorIs(err, ErrInvalidJSON)
}

func (s *JSONInspectorSuite) TestReturnsErrorForEmptyInput() {
	_, err := s.inspector.Inspect([]byte{})

	s.Assert().ErrorIs(err, ErrInvalidJSON)
}

type JSONViewSuite struct {
	suite.Suite
	view View
}

func (s *JSONViewSuite) SetupTest() {
	raw := []byte(`{
		"type": "user/load/success",
		"payload": {
			"id": "u-1",
			"tags": ["a", "b"],
			"profile": {"admin": true}
		},
		"error": false,
		"count": 42,
		"meta": {"asyncPayload": {"skipOuter": true}}
	}`)

	var err error
	s.view, err = JSONInspector().Inspect(raw)
	s.Require().NoError(err)
}

func TestJSONViewSuite(t *testing.T) {
	suite.Run(t, new(JSONViewSuite))
}

func (s *JSONViewSuite) TestHasField() {
	tests := map[string]struct {
		path   string
		exists bool
	}{
		"type":                   {"type", true},
		"payload":                {"payload", true},
		"payload.id":             {"payload.id", true},
		"payload.profile.admin":  {"payload.profile.admin", true},
		"error false still set":  {"error", true},
		"meta nested":            {"meta.asyncPayload.skipOuter", true},
		"missing":                {"missing", false},
		"payload.missing":        {"payload.missing", false},
		"payload.profile.absent": {"payload.profile.absent", false},
	}

	for name, tt := range tests {
		s.Run(name, func() {
			s.Assert().Equal(tt.exists, s.view.HasField(tt.path))
		})
	}
}

func (s *JSONViewSuite) TestGetString() {
	val, ok := s.view.GetString("type")
	s.Require().True(ok)
	s.Assert().Equal("user/load/success", val)

	val, ok = s.view.GetString("payload.id")
	s.Require().True(ok)
	s.Assert().Equal("u-1", val)

	_, ok = s.view.GetString("count")
	s.Assert().False(ok, "number is not a string")

	_, ok = s.view.GetString("error")
	s.Assert().False(ok, "boolean is not a string")

	_, ok = s.view.GetString("missing")
	s.Assert().False(ok)
}

func (s *JSONViewSuite) TestGetBool() {
	val, ok := s.view.GetBool("error")
	s.Require().True(ok)
	s.Assert().False(val)

	val, ok = s.view.GetBool("meta.asyncPayload.skipOuter")
	s.Require().True(ok)
	s.Assert().True(val)

	_, ok = s.view.GetBool("type")
	s.Assert().False(ok, "string is not a boolean")

	_, ok = s.view.GetBool("missing")
	s.Assert().False(ok)
}

func (s *JSONViewSuite) TestGetValue() {
	val, ok := s.view.GetValue("payload")
	s.Require().True(ok)
	s.Assert().Equal(map[string]any{
		"id":      "u-1",
		"tags":    []any{"a", "b"},
		"profile": map[string]any{"admin": true},
	}, val)

	val, ok = s.view.GetValue("count")
	s.Require().True(ok)
	s.Assert().Equal(float64(42), val)

	_, ok = s.view.GetValue("missing")
	s.Assert().False(ok)
}

func (s *JSONViewSuite) TestGetValueNull() {
	view, err := JSONInspector().Inspect([]byte(`{"type": "x", "payload": null}`))
	s.Require().NoError(err)

	val, ok := view.GetValue("payload")
	s.Require().True(ok)
	s.Assert().Nil(val)
}
