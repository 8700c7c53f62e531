package hobby

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Field is a single named value inside a hobby.
type Field struct {
	Name  string
	Value Value
}

// Hobby is a schemaless sub-document of a person.
// Field order is significant: the store compares embedded documents
// field by field, so removal by value only matches the same order.
type Hobby struct {
	fields []Field
}

// New creates a Hobby from fields in the given order. A repeated name
// overwrites the earlier value in place.
func New(fields ...Field) Hobby {
	var h Hobby
	for _, f := range fields {
		h.Set(f.Name, f.Value)
	}
	return h
}

// ValidateFieldName checks that name can be used as a sub-document key
// inside an update path.
func ValidateFieldName(name string) error {
	if name == "" {
		return errors.New("hobby field name is required")
	}
	if strings.HasPrefix(name, "$") {
		return fmt.Errorf("hobby field name %q must not start with $", name)
	}
	if strings.ContainsAny(name, ".\x00") {
		return fmt.Errorf("hobby field name %q must not contain dots or NUL", name)
	}
	return nil
}

// Get returns the value stored under name.
func (h Hobby) Get(name string) (Value, bool) {
	for _, f := range h.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Set stores v under name, keeping the position of an existing field.
func (h *Hobby) Set(name string, v Value) {
	for i := range h.fields {
		if h.fields[i].Name == name {
			h.fields[i].Value = v
			return
		}
	}
	h.fields = append(h.fields, Field{Name: name, Value: v})
}

// Fields returns a copy of the fields in order.
func (h Hobby) Fields() []Field {
	out := make([]Field, len(h.fields))
	copy(out, h.fields)
	return out
}

// Len returns the number of fields.
func (h Hobby) Len() int { return len(h.fields) }

// Equal reports whether both hobbies hold the same fields in the same order.
func (h Hobby) Equal(o Hobby) bool {
	if len(h.fields) != len(o.fields) {
		return false
	}
	for i := range h.fields {
		if h.fields[i].Name != o.fields[i].Name || !h.fields[i].Value.Equal(o.fields[i].Value) {
			return false
		}
	}
	return true
}

// MarshalJSON writes the hobby as a JSON object preserving field order.
func (h Hobby) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range h.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, fmt.Errorf("encode hobby field name: %w", err)
		}
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode hobby field %q: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat JSON object, keeping the key order of the input.
func (h *Hobby) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode hobby: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("decode hobby: expected object, got %v", tok)
	}

	var out Hobby
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode hobby key: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decode hobby: unexpected key token %v", keyTok)
		}
		if err := ValidateFieldName(name); err != nil {
			return err
		}

		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode hobby field %q: %w", name, err)
		}
		if _, isDelim := valTok.(json.Delim); isDelim {
			return fmt.Errorf("hobby field %q: nested value: %w", name, ErrUnsupportedValue)
		}
		v, err := FromAny(valTok)
		if err != nil {
			return fmt.Errorf("hobby field %q: %w", name, err)
		}
		out.Set(name, v)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode hobby: %w", err)
	}

	*h = out
	return nil
}
