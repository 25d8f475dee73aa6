package params

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is an immutable option value. Values are comparable with ==.
type Value struct {
	kind Kind
	text string
	num  int
	flag bool
}

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Int returns an integer value.
func Int(n int) Value { return Value{kind: KindInt, num: n} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// Blob returns a raw blob value, such as the contents of a counter
// configuration file.
func Blob(b []byte) Value { return Value{kind: KindBlob, text: string(b)} }

// Parse converts the textual form s into a value of the given kind.
func Parse(kind Kind, s string) (Value, error) {
	switch kind {
	case KindString:
		return String(s), nil
	case KindBlob:
		return Blob([]byte(s)), nil
	case KindInt:
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return Value{}, fmt.Errorf("parse int %q: %w", s, err)
		}

		return Int(n), nil
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return Value{}, fmt.Errorf("parse bool %q: %w", s, err)
		}

		return Bool(b), nil
	default:
		return Value{}, fmt.Errorf("parse %q: unsupported kind %s", s, kind)
	}
}

func (v Value) Kind() Kind { return v.kind }

// Text returns the payload of a string or blob value.
func (v Value) Text() string { return v.text }

func (v Value) Int() int { return v.num }

func (v Value) Bool() bool { return v.flag }

// Equal reports whether v and o hold the same kind and payload.
func (v Value) Equal(o Value) bool { return v == o }

// String renders v the way the control facility expects it: decimal
// integers, "1"/"0" for booleans and the raw text otherwise.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.Itoa(v.num)
	case KindBool:
		if v.flag {
			return "1"
		}

		return "0"
	default:
		return v.text
	}
}
