// Package transform provides Transformers for values whose stored form
// differs from their in-memory form.
package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"graphorm/internal/metadata"
)

// UUID stores a uuid.UUID as its canonical string. To also accepts a string
// in any form uuid.Parse understands.
func UUID() *metadata.Transformer {
	return &metadata.Transformer{
		To: func(v any) (any, error) {
			switch x := v.(type) {
			case uuid.UUID:
				return x.String(), nil
			case string:
				id, err := uuid.Parse(x)
				if err != nil {
					return nil, err
				}
				return id.String(), nil
			}
			return nil, fmt.Errorf("uuid: unsupported type %T", v)
		},
		From: func(v any) (any, error) {
			switch x := v.(type) {
			case uuid.UUID:
				return x, nil
			case string:
				return uuid.Parse(x)
			case []byte:
				return uuid.FromBytes(x)
			}
			return nil, fmt.Errorf("uuid: unsupported stored type %T", v)
		},
	}
}

// Time stores a time.Time as text in layout, in UTC. An empty layout means
// time.RFC3339Nano.
func Time(layout string) *metadata.Transformer {
	if layout == "" {
		layout = time.RFC3339Nano
	}
	return &metadata.Transformer{
		To: func(v any) (any, error) {
			switch x := v.(type) {
			case time.Time:
				return x.UTC().Format(layout), nil
			case string:
				t, err := time.Parse(layout, x)
				if err != nil {
					return nil, err
				}
				return t.UTC().Format(layout), nil
			}
			return nil, fmt.Errorf("time: unsupported type %T", v)
		},
		From: func(v any) (any, error) {
			switch x := v.(type) {
			case time.Time:
				return x.UTC(), nil
			case string:
				return time.Parse(layout, x)
			}
			return nil, fmt.Errorf("time: unsupported stored type %T", v)
		},
	}
}

// JSON stores any value as a JSON document string. From yields the generic
// decoding, with integral numbers as int64 and others as float64.
func JSON() *metadata.Transformer {
	return &metadata.Transformer{
		To: func(v any) (any, error) {
			doc, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			return string(doc), nil
		},
		From: func(v any) (any, error) {
			var raw []byte
			switch x := v.(type) {
			case string:
				raw = []byte(x)
			case []byte:
				raw = x
			default:
				return v, nil
			}
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			var out any
			if err := dec.Decode(&out); err != nil {
				return nil, err
			}
			return numbers(out), nil
		},
	}
}

func numbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = numbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = numbers(e)
		}
		return x
	}
	return v
}

// ByName returns the transformer a schema file names.
func ByName(name string) (*metadata.Transformer, error) {
	switch name {
	case "":
		return nil, nil
	case "uuid":
		return UUID(), nil
	case "time":
		return Time(""), nil
	case "json":
		return JSON(), nil
	}
	return nil, fmt.Errorf("unknown transform %q", name)
}
