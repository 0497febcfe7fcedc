package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"sort"
	"strings"
)

// maxValueDepth bounds recursion over nested payloads. Decoded JSON is
// acyclic, but arbitrary Go values handed to FromAny may not be.
const maxValueDepth = 512

// maxValueNodes bounds the size of a converted value. A map shared under
// many keys is expanded once per reference, so sharing alone can blow up.
const maxValueNodes = 1 << 20

// Value is a JSON value: String, Number, Bool, Null, Array or Object.
type Value interface {
	isValue()
}

type (
	// String is a JSON string leaf
	String string

	// Number is a JSON number. Raw keeps the caller's representation
	// (float64, json.Number, int, ...) so it round-trips unchanged.
	Number struct{ Raw any }

	// Bool is a JSON boolean
	Bool bool

	// Null is JSON null, and also stands in for values that cannot be represented
	Null struct{}

	// Array is an ordered list of values
	Array []Value

	// Object is a string-keyed map of values
	Object map[string]Value
)

func (String) isValue() {}
func (Number) isValue() {}
func (Bool) isValue()   {}
func (Null) isValue()   {}
func (Array) isValue()  {}
func (Object) isValue() {}

// SortedKeys returns the object's keys in lexical order
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromAny converts a decoded JSON value (or any JSON-marshalable Go value)
// into a Value. The result is always a finite tree: a map or slice that
// contains itself becomes Null at the point of recursion, and conversion
// stops producing nodes past maxValueNodes.
func FromAny(v any) Value {
	c := &converter{onPath: make(map[uintptr]struct{})}
	return c.convert(v, 0)
}

type converter struct {
	onPath map[uintptr]struct{}
	nodes  int
}

// enter marks a container as being converted. It reports false when the
// container is already an ancestor of the current node.
func (c *converter) enter(container any) (uintptr, bool) {
	p := reflect.ValueOf(container).Pointer()
	if p == 0 {
		return 0, true
	}
	if _, seen := c.onPath[p]; seen {
		return 0, false
	}
	c.onPath[p] = struct{}{}
	return p, true
}

func (c *converter) leave(p uintptr) {
	if p != 0 {
		delete(c.onPath, p)
	}
}

func (c *converter) convert(v any, depth int) Value {
	c.nodes++
	if depth > maxValueDepth || c.nodes > maxValueNodes {
		return Null{}
	}

	switch t := v.(type) {
	case nil:
		return Null{}
	case String, Number, Bool, Null:
		return t.(Value)
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case json.Number, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return Number{Raw: t}
	case []any:
		return c.array(t, len(t), func(i int) any { return t[i] }, depth)
	case Array:
		return c.array(t, len(t), func(i int) any { return t[i] }, depth)
	case []string:
		arr := make(Array, len(t))
		for i, item := range t {
			arr[i] = String(item)
		}
		return arr
	case map[string]any:
		p, ok := c.enter(t)
		if !ok {
			return Null{}
		}
		defer c.leave(p)
		obj := make(Object, len(t))
		for k, item := range t {
			obj[k] = c.convert(item, depth+1)
		}
		return obj
	case Object:
		p, ok := c.enter(t)
		if !ok {
			return Null{}
		}
		defer c.leave(p)
		obj := make(Object, len(t))
		for k, item := range t {
			obj[k] = c.convert(item, depth+1)
		}
		return obj
	case map[string]string:
		obj := make(Object, len(t))
		for k, item := range t {
			obj[k] = String(item)
		}
		return obj
	case json.RawMessage:
		var decoded any
		if err := decodeJSON(t, &decoded); err != nil {
			return Null{}
		}
		return c.convert(decoded, depth+1)
	default:
		// structs and other typed containers: go through their JSON form.
		// json.Marshal rejects cyclic values itself.
		data, err := json.Marshal(t)
		if err != nil {
			return Null{}
		}
		var decoded any
		if err := decodeJSON(data, &decoded); err != nil {
			return Null{}
		}
		return c.convert(decoded, depth+1)
	}
}

func (c *converter) array(container any, n int, item func(int) any, depth int) Value {
	arr := make(Array, n)
	if n == 0 {
		return arr
	}
	p, ok := c.enter(container)
	if !ok {
		return Null{}
	}
	defer c.leave(p)
	for i := 0; i < n; i++ {
		arr[i] = c.convert(item(i), depth+1)
	}
	return arr
}

// Interface converts a Value back into plain Go values
// (map[string]any, []any, string, bool, nil, and the original number).
func Interface(v Value) any {
	switch t := v.(type) {
	case String:
		return string(t)
	case Number:
		return t.Raw
	case Bool:
		return bool(t)
	case Array:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Interface(item)
		}
		return out
	case Object:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Interface(item)
		}
		return out
	}
	return nil
}

// ReplaceAll returns a deep copy of v in which every occurrence of old inside
// a string leaf is replaced by new. Object keys are left untouched. The
// second result reports whether anything changed.
func ReplaceAll(v Value, old, new string) (Value, bool) {
	v = FromAny(v)
	if old == "" {
		return v, false
	}
	return replaceAll(v, old, new, 0)
}

func replaceAll(v Value, old, new string, depth int) (Value, bool) {
	if depth > maxValueDepth {
		return Null{}, false
	}

	switch t := v.(type) {
	case String:
		s := string(t)
		if !strings.Contains(s, old) {
			return t, false
		}
		return String(strings.ReplaceAll(s, old, new)), true
	case Array:
		out := make(Array, len(t))
		changed := false
		for i, item := range t {
			var c bool
			out[i], c = replaceAll(item, old, new, depth+1)
			changed = changed || c
		}
		return out, changed
	case Object:
		out := make(Object, len(t))
		changed := false
		for k, item := range t {
			var c bool
			out[k], c = replaceAll(item, old, new, depth+1)
			changed = changed || c
		}
		return out, changed
	}
	return v, false
}

var errTrailingData = errors.New("unexpected data after JSON value")

func decodeJSON(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errTrailingData
	}
	return nil
}

// DecodeBody parses a JSON payload, keeping numbers as json.Number so they
// are forwarded without precision loss. A body that is not JSON is returned
// as a plain string so it can still be scanned.
func DecodeBody(body []byte) any {
	var decoded any
	if err := decodeJSON(body, &decoded); err != nil {
		return string(body)
	}
	return decoded
}
