package ogm

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"graphorm/internal/metadata"
	"graphorm/internal/store"
)

// accessor reads and writes the declared properties of one instance.
type accessor interface {
	// get returns the in-memory value and whether it is present.
	get(p *metadata.PropertyDescriptor) (any, bool)
	set(p *metadata.PropertyDescriptor, v any) error
}

type structAccessor struct {
	v reflect.Value
}

func (a structAccessor) get(p *metadata.PropertyDescriptor) (any, bool) {
	f := a.v.FieldByName(p.Field)
	if !f.IsValid() {
		return nil, false
	}
	return presentValue(f)
}

func (a structAccessor) set(p *metadata.PropertyDescriptor, v any) error {
	f := a.v.FieldByName(p.Field)
	if !f.IsValid() || !f.CanSet() {
		return fmt.Errorf("field %s cannot be set", p.Field)
	}
	if err := assign(f, v); err != nil {
		return fmt.Errorf("setting %s: %w", p.Field, err)
	}
	return nil
}

type mapAccessor map[string]any

func (m mapAccessor) get(p *metadata.PropertyDescriptor) (any, bool) {
	v, ok := m[p.Key]
	return v, ok && v != nil
}

func (m mapAccessor) set(p *metadata.PropertyDescriptor, v any) error {
	m[p.Key] = v
	return nil
}

// presentValue dereferences pointers and interfaces. Nil pointers, slices,
// maps and interfaces are absent.
func presentValue(f reflect.Value) (any, bool) {
	switch f.Kind() {
	case reflect.Pointer, reflect.Interface:
		if f.IsNil() {
			return nil, false
		}
		return presentValue(f.Elem())
	case reflect.Slice, reflect.Map:
		if f.IsNil() {
			return nil, false
		}
	}
	return f.Interface(), true
}

var timeType = reflect.TypeFor[time.Time]()

// assign stores v into dst, converting between the driver-neutral value
// types and the field's Go type.
func assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.SetZero()
		return nil
	}
	src := reflect.ValueOf(v)
	dt := dst.Type()

	if src.Type().AssignableTo(dt) {
		dst.Set(src)
		return nil
	}

	switch dt.Kind() {
	case reflect.Pointer:
		elem := reflect.New(dt.Elem())
		if err := assign(elem.Elem(), v); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	case reflect.Interface:
		if src.Type().Implements(dt) {
			dst.Set(src)
			return nil
		}
	}

	if dt == timeType {
		t, err := toTime(v)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}

	switch dt.Kind() {
	case reflect.String:
		if src.Kind() == reflect.String {
			dst.SetString(src.String())
			return nil
		}
	case reflect.Bool:
		if src.Kind() == reflect.Bool {
			dst.SetBool(src.Bool())
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(src)
		if err != nil {
			return err
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("%d overflows %s", n, dt)
		}
		dst.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt64(src)
		if err != nil {
			return err
		}
		if n < 0 || dst.OverflowUint(uint64(n)) {
			return fmt.Errorf("%d overflows %s", n, dt)
		}
		dst.SetUint(uint64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		f, ok := toFloat64(src)
		if !ok {
			break
		}
		dst.SetFloat(f)
		return nil
	case reflect.Slice:
		if src.Kind() == reflect.Slice || src.Kind() == reflect.Array {
			out := reflect.MakeSlice(dt, src.Len(), src.Len())
			for i := 0; i < src.Len(); i++ {
				if err := assign(out.Index(i), src.Index(i).Interface()); err != nil {
					return fmt.Errorf("element %d: %w", i, err)
				}
			}
			dst.Set(out)
			return nil
		}
	case reflect.Map:
		if src.Kind() == reflect.Map && dt.Key().Kind() == reflect.String && src.Type().Key().Kind() == reflect.String {
			out := reflect.MakeMapWithSize(dt, src.Len())
			iter := src.MapRange()
			for iter.Next() {
				elem := reflect.New(dt.Elem()).Elem()
				if err := assign(elem, iter.Value().Interface()); err != nil {
					return fmt.Errorf("key %s: %w", iter.Key().String(), err)
				}
				out.SetMapIndex(reflect.ValueOf(iter.Key().String()).Convert(dt.Key()), elem)
			}
			dst.Set(out)
			return nil
		}
	case reflect.Struct:
		if dst.CanAddr() {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			return json.Unmarshal(data, dst.Addr().Interface())
		}
	}
	return fmt.Errorf("cannot assign %T to %s", v, dt)
}

func toInt64(src reflect.Value) (int64, error) {
	switch src.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return src.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := src.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := src.Float()
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("%v is not an integer", f)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("cannot use %s as an integer", src.Type())
}

func toFloat64(src reflect.Value) (float64, bool) {
	switch src.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(src.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(src.Uint()), true
	case reflect.Float32, reflect.Float64:
		return src.Float(), true
	}
	return 0, false
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing time %q: %w", t, err)
		}
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("cannot use %T as a time", v)
}

// normalize converts an outgoing value to the driver-neutral types every
// backend accepts.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case time.Time, []byte:
		return x, nil
	case json.Marshaler:
		return marshalled(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalize(rv.Elem().Interface())
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return toInt64(rv)
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			e, err := normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map keys must be strings, got %s", rv.Type().Key())
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			e, err := normalize(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = e
		}
		return out, nil
	case reflect.Struct:
		return marshalled(v)
	}
	return nil, fmt.Errorf("unsupported property value %T", v)
}

// marshalled round-trips v through JSON, yielding a map, list or scalar.
func marshalled(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	wrapped, err := store.DecodeProperties(append(append([]byte(`{"v":`), data...), '}'))
	if err != nil {
		return nil, err
	}
	return wrapped["v"], nil
}
