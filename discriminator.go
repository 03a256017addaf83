package storefx

// Discriminator decides whether a raw message has a given shape. It is
// evaluated against a View, before any full decoding.
type Discriminator interface {
	Match(v View) bool
}

// messageDiscriminator recognizes raw JSON messages: a string "type" or,
// failing that, a string "kind".
var messageDiscriminator = Or(IsString(KindField), IsString(kindFieldAlt))

// HasFields returns a Discriminator that matches when all paths exist.
func HasFields(paths ...string) Discriminator {
	return hasFields{paths: paths}
}

type hasFields struct {
	paths []string
}

func (d hasFields) Match(v View) bool {
	for _, p := range d.paths {
		if !v.HasField(p) {
			return false
		}
	}
	return true
}

// IsString returns a Discriminator that matches when the path exists and
// holds a string, including the empty string.
func IsString(path string) Discriminator {
	return isString{path: path}
}

type isString struct {
	path string
}

func (d isString) Match(v View) bool {
	_, ok := v.GetString(d.path)
	return ok
}

// IsTrue returns a Discriminator that matches when the path holds the
// boolean true.
//
//	failures := storefx.IsTrue(storefx.ErrorField)
func IsTrue(path string) Discriminator {
	return isTrue{path: path}
}

type isTrue struct {
	path string
}

func (d isTrue) Match(v View) bool {
	b, ok := v.GetBool(d.path)
	return ok && b
}

// FieldEquals returns a Discriminator that matches when the path exists
// and equals the given string value.
func FieldEquals(path, value string) Discriminator {
	return fieldEquals{path: path, value: value}
}

type fieldEquals struct {
	path  string
	value string
}

func (d fieldEquals) Match(v View) bool {
	s, ok := v.GetString(d.path)
	return ok && s == d.value
}

// And returns a Discriminator that matches when all discriminators match.
func And(ds ...Discriminator) Discriminator {
	return and{ds: ds}
}

type and struct {
	ds []Discriminator
}

func (d and) Match(v View) bool {
	for _, disc := range d.ds {
		if !disc.Match(v) {
			return false
		}
	}
	return true
}

// Or returns a Discriminator that matches when any discriminator matches.
func Or(ds ...Discriminator) Discriminator {
	return or{ds: ds}
}

type or struct {
	ds []Discriminator
}

func (d or) Match(v View) bool {
	for _, disc := range d.ds {
		if disc.Match(v) {
			return true
		}
	}
	return false
}
