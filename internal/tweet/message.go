package tweet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Message is one parsed status object as delivered by the streaming client.
type Message map[string]any

// DecodeMessage parses a JSON status object. Numbers are kept as
// json.Number so 64-bit ids survive intact.
func DecodeMessage(b []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m Message
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("decode message: not an object")
	}
	return m, nil
}

// value returns the value at key. JSON null counts as absent.
func (m Message) value(key string) (any, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// fieldReader walks one message object and remembers the path prefix for errors.
type fieldReader struct {
	msg    Message
	prefix string
}

func (r fieldReader) path(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + "." + key
}

func (r fieldReader) object(key string) (fieldReader, bool, error) {
	v, ok := r.msg.value(key)
	if !ok {
		return fieldReader{}, false, nil
	}
	var m Message
	switch o := v.(type) {
	case Message:
		m = o
	case map[string]any:
		m = Message(o)
	default:
		return fieldReader{}, false, &InvalidFieldError{Field: r.path(key), Want: "object", Got: v}
	}
	return fieldReader{msg: m, prefix: r.path(key)}, true, nil
}

func (r fieldReader) requireObject(key string) (fieldReader, error) {
	o, ok, err := r.object(key)
	if err != nil {
		return fieldReader{}, err
	}
	if !ok {
		return fieldReader{}, &MissingFieldError{Field: r.path(key)}
	}
	return o, nil
}

func (r fieldReader) int64(key string) (*int64, error) {
	v, ok := r.msg.value(key)
	if !ok {
		return nil, nil
	}
	n, ok := toInt64(v)
	if !ok {
		return nil, &InvalidFieldError{Field: r.path(key), Want: "integer", Got: v}
	}
	return &n, nil
}

func (r fieldReader) requireInt64(key string) (int64, error) {
	n, err := r.int64(key)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, &MissingFieldError{Field: r.path(key)}
	}
	return *n, nil
}

func (r fieldReader) string(key string) (*string, error) {
	v, ok := r.msg.value(key)
	if !ok {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, &InvalidFieldError{Field: r.path(key), Want: "string", Got: v}
	}
	return &s, nil
}

func (r fieldReader) requireString(key string) (string, error) {
	s, err := r.string(key)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", &MissingFieldError{Field: r.path(key)}
	}
	return *s, nil
}

func (r fieldReader) requireBool(key string) (bool, error) {
	v, ok := r.msg.value(key)
	if !ok {
		return false, &MissingFieldError{Field: r.path(key)}
	}
	b, ok := v.(bool)
	if !ok {
		return false, &InvalidFieldError{Field: r.path(key), Want: "boolean", Got: v}
	}
	return b, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func floatToInt64(f float64) (int64, bool) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
