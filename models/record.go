package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
)

// Field is a single named value inside a Record
type Field struct {
	Name  string
	Value any
}

// Record represents one extracted item (a book, a quote, a custom row).
// Field order is the order in which fields were first set.
type Record []Field

// NewRecord builds a record from the given fields
func NewRecord(fields ...Field) Record {
	r := make(Record, 0, len(fields))
	for _, f := range fields {
		r = r.Set(f.Name, f.Value)
	}
	return r
}

// Set assigns a value, keeping the original position when the field exists
func (r Record) Set(name string, value any) Record {
	for i := range r {
		if r[i].Name == name {
			r[i].Value = value
			return r
		}
	}
	return append(r, Field{Name: name, Value: value})
}

// Get returns the value stored under name
func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the value under name formatted for tabular output
func (r Record) String(name string) string {
	v, ok := r.Get(name)
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// Names returns the field names in order
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// MarshalJSON encodes the record as a JSON object preserving field order
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the key order. Integral
// numbers become int, other numbers float64.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "models: decode record")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.New("models: record must be a JSON object")
	}

	out := Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "models: decode record key")
		}
		name, _ := tok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return eris.Wrapf(err, "models: decode field %q", name)
		}
		out = out.Set(name, jsonScalar(value))
	}
	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "models: decode record")
	}

	*r = out
	return nil
}

func jsonScalar(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return int(i)
	}
	f, _ := n.Float64()
	return f
}

// FormatValue renders a scalar value the way the tabular sinks write it
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return formatFloat(val, 64)
	case float32:
		return formatFloat(float64(val), 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// formatFloat keeps a decimal point on whole numbers so a float column
// reads 20.0 next to 51.77
func formatFloat(v float64, bitSize int) string {
	s := strconv.FormatFloat(v, 'f', -1, bitSize)
	if !math.IsInf(v, 0) && !math.IsNaN(v) && v == math.Trunc(v) {
		s += ".0"
	}
	return s
}

// Float converts a numeric record value to float64
func Float(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}
