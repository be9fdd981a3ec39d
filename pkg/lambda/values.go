package lambda

import (
	"bytes"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
)

// Field is one entry of a Values mapping. Multi marks entries that came in
// (or should go out) as a list rather than a single string.
type Field struct {
	Key    string
	Values []string
	Multi  bool
}

// Values is an insertion-ordered mapping of key to one string or a list of
// strings, used for headers and query strings. The zero value is empty and
// ready to use.
type Values struct {
	fields []Field
	index  map[string]int
}

// ValuesFromMap builds Values from the single-valued map shape used by the
// event structs. Keys are sorted since Go maps carry no order.
func ValuesFromMap(m map[string]string) Values {
	var v Values
	for _, k := range sortedKeys(m) {
		v.Set(k, m[k])
	}
	return v
}

// ValuesFromMultiMap builds Values from the list-valued map shape. Keys with
// a nil list are absent and dropped.
func ValuesFromMultiMap(m map[string][]string) Values {
	var v Values
	for _, k := range sortedKeys(m) {
		if m[k] == nil {
			continue
		}
		v.SetAll(k, m[k])
	}
	return v
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys
func (v *Values) Len() int {
	return len(v.fields)
}

// Keys returns the keys in insertion order
func (v *Values) Keys() []string {
	keys := make([]string, len(v.fields))
	for i, f := range v.fields {
		keys[i] = f.Key
	}
	return keys
}

// Has reports whether key is present
func (v *Values) Has(key string) bool {
	_, ok := v.index[key]
	return ok
}

// Get returns the first value for key, or "" if absent
func (v *Values) Get(key string) string {
	if i, ok := v.index[key]; ok && len(v.fields[i].Values) > 0 {
		return v.fields[i].Values[0]
	}
	return ""
}

// All returns a copy of every value stored for key
func (v *Values) All(key string) []string {
	i, ok := v.index[key]
	if !ok {
		return nil
	}
	return append([]string(nil), v.fields[i].Values...)
}

// Fields returns a copy of the entries in insertion order
func (v *Values) Fields() []Field {
	out := make([]Field, len(v.fields))
	for i, f := range v.fields {
		out[i] = Field{Key: f.Key, Values: append([]string(nil), f.Values...), Multi: f.Multi}
	}
	return out
}

// Set replaces key with a single value, keeping its original position
func (v *Values) Set(key, value string) {
	v.put(key, []string{value}, false)
}

// SetAll replaces key with a list of values
func (v *Values) SetAll(key string, values []string) {
	v.put(key, append([]string(nil), values...), true)
}

// Add appends a value to key, turning it into a list
func (v *Values) Add(key, value string) {
	if i, ok := v.index[key]; ok {
		v.fields[i].Values = append(v.fields[i].Values, value)
		v.fields[i].Multi = true
		return
	}
	v.put(key, []string{value}, true)
}

// Del removes key
func (v *Values) Del(key string) {
	i, ok := v.index[key]
	if !ok {
		return
	}
	v.fields = append(v.fields[:i], v.fields[i+1:]...)
	delete(v.index, key)
	for j := i; j < len(v.fields); j++ {
		v.index[v.fields[j].Key] = j
	}
}

func (v *Values) put(key string, values []string, multi bool) {
	if v.index == nil {
		v.index = make(map[string]int)
	}
	if i, ok := v.index[key]; ok {
		v.fields[i].Values = values
		v.fields[i].Multi = multi
		return
	}
	v.index[key] = len(v.fields)
	v.fields = append(v.fields, Field{Key: key, Values: values, Multi: multi})
}

// Map flattens to the single-valued shape; lists keep their last value.
func (v *Values) Map() map[string]string {
	if len(v.fields) == 0 {
		return nil
	}
	m := make(map[string]string, len(v.fields))
	for _, f := range v.fields {
		if len(f.Values) > 0 {
			m[f.Key] = f.Values[len(f.Values)-1]
		}
	}
	return m
}

// MultiMap flattens to the list-valued shape
func (v *Values) MultiMap() map[string][]string {
	if len(v.fields) == 0 {
		return nil
	}
	m := make(map[string][]string, len(v.fields))
	for _, f := range v.fields {
		m[f.Key] = append([]string(nil), f.Values...)
	}
	return m
}

// HasMulti reports whether any entry is list-valued
func (v *Values) HasMulti() bool {
	for _, f := range v.fields {
		if f.Multi {
			return true
		}
	}
	return false
}

// MarshalJSON writes the entries in insertion order, single entries as
// strings and list entries as arrays.
func (v Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range v.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		var val []byte
		if f.Multi || len(f.Values) != 1 {
			val, err = json.Marshal(f.Values)
		} else {
			val, err = json.Marshal(f.Values[0])
		}
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object whose members are a string, a list of
// strings, or null. Null members (and null list items) are absent and
// dropped. Member order is preserved.
func (v *Values) UnmarshalJSON(data []byte) error {
	*v = Values{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil {
		return err
	} else if tok != json.Delim('{') {
		return fmt.Errorf("values: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("values: expected key, got %v", tok)
		}
		if err := v.decodeMember(dec, key); err != nil {
			return err
		}
	}

	_, err := dec.Token()
	return err
}

func (v *Values) decodeMember(dec *json.Decoder, key string) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("values: %s: %w", key, err)
	}

	switch t := tok.(type) {
	case nil:
		return nil
	case string:
		v.Set(key, t)
		return nil
	case json.Delim:
		if t != '[' {
			return fmt.Errorf("values: %s: unexpected %v", key, t)
		}
	default:
		return fmt.Errorf("values: %s: expected string or list, got %T", key, tok)
	}

	var list []string
	for dec.More() {
		item, err := dec.Token()
		if err != nil {
			return fmt.Errorf("values: %s: %w", key, err)
		}
		switch it := item.(type) {
		case nil:
		case string:
			list = append(list, it)
		default:
			return fmt.Errorf("values: %s: expected string item, got %T", key, item)
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("values: %s: %w", key, err)
	}

	if len(list) > 0 {
		v.SetAll(key, list)
	}
	return nil
}
