package graph

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Record is one result row keyed by the RETURN aliases of the statement.
type Record map[string]any

// DecodeError reports a required field that is missing or has the wrong type.
type DecodeError struct {
	Key  string
	Want string
	Got  any
}

func (e *DecodeError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("graph: field %q: want %s, got null", e.Key, e.Want)
	}
	return fmt.Sprintf("graph: field %q: want %s, got %T", e.Key, e.Want, e.Got)
}

func (r Record) String(key string) (string, error) {
	v, ok := r[key].(string)
	if !ok {
		return "", &DecodeError{Key: key, Want: "string", Got: r[key]}
	}
	return v, nil
}

// Float accepts both integer and float values; Cypher aggregates return
// either depending on the input.
func (r Record) Float(key string) (float64, error) {
	switch v := r[key].(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	}
	return 0, &DecodeError{Key: key, Want: "number", Got: r[key]}
}

func (r Record) Int(key string) (int64, error) {
	switch v := r[key].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v == float64(int64(v)) {
			return int64(v), nil
		}
	}
	return 0, &DecodeError{Key: key, Want: "integer", Got: r[key]}
}

func (r Record) Bool(key string) (bool, error) {
	v, ok := r[key].(bool)
	if !ok {
		return false, &DecodeError{Key: key, Want: "boolean", Got: r[key]}
	}
	return v, nil
}

// Strings decodes a list of strings. A null value is an empty list, since
// collect() over no rows yields an empty list rather than null.
func (r Record) Strings(key string) ([]string, error) {
	raw, present := r[key]
	if !present {
		return nil, &DecodeError{Key: key, Want: "list", Got: nil}
	}
	switch v := raw.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			s, ok := item.(string)
			if !ok {
				return nil, &DecodeError{Key: key, Want: "list of strings", Got: item}
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, &DecodeError{Key: key, Want: "list", Got: raw}
}

func (r Record) Time(key string) (time.Time, error) {
	switch v := r[key].(type) {
	case time.Time:
		return v, nil
	case neo4j.LocalDateTime:
		return v.Time(), nil
	case neo4j.Date:
		return v.Time(), nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, &DecodeError{Key: key, Want: "datetime", Got: r[key]}
}

// Decoder wraps a Record with a sticky error so a row can be decoded field by
// field and checked once.
type Decoder struct {
	rec Record
	err error
}

func (r Record) Decode() *Decoder {
	return &Decoder{rec: r}
}

func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) String(key string) string {
	v, err := d.rec.String(key)
	d.keep(err)
	return v
}

// OptString returns "" for a missing or null field.
func (d *Decoder) OptString(key string) string {
	if d.rec[key] == nil {
		return ""
	}
	return d.String(key)
}

func (d *Decoder) Float(key string) float64 {
	v, err := d.rec.Float(key)
	d.keep(err)
	return v
}

// OptFloat returns 0 for a missing or null field.
func (d *Decoder) OptFloat(key string) float64 {
	if d.rec[key] == nil {
		return 0
	}
	return d.Float(key)
}

func (d *Decoder) Int(key string) int {
	v, err := d.rec.Int(key)
	d.keep(err)
	return int(v)
}

// OptInt returns 0 for a missing or null field.
func (d *Decoder) OptInt(key string) int {
	if d.rec[key] == nil {
		return 0
	}
	return d.Int(key)
}

func (d *Decoder) Bool(key string) bool {
	v, err := d.rec.Bool(key)
	d.keep(err)
	return v
}

func (d *Decoder) Strings(key string) []string {
	v, err := d.rec.Strings(key)
	d.keep(err)
	return v
}

func (d *Decoder) OptTime(key string) time.Time {
	if d.rec[key] == nil {
		return time.Time{}
	}
	v, err := d.rec.Time(key)
	d.keep(err)
	return v
}

func (d *Decoder) keep(err error) {
	if d.err == nil && err != nil {
		d.err = err
	}
}
