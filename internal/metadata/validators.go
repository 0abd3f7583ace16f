package metadata

import (
	"reflect"
	"regexp"
	"strings"
)

// OneOf accepts strings contained in values.
func OneOf(values ...string) Validator {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return func(value any) bool {
		s, ok := stringValue(value)
		if !ok {
			return false
		}
		_, ok = allowed[s]
		return ok
	}
}

// Pattern accepts strings matching re.
func Pattern(re *regexp.Regexp) Validator {
	return func(value any) bool {
		s, ok := stringValue(value)
		return ok && re.MatchString(s)
	}
}

// Range accepts numbers in [min, max]. A nil bound is open.
func Range(min, max *float64) Validator {
	return func(value any) bool {
		f, ok := floatValue(value)
		if !ok {
			return false
		}
		if min != nil && f < *min {
			return false
		}
		if max != nil && f > *max {
			return false
		}
		return true
	}
}

func NotBlank() Validator {
	return func(value any) bool {
		s, ok := stringValue(value)
		return ok && strings.TrimSpace(s) != ""
	}
}

// All accepts a value only when every validator does.
func All(validators ...Validator) Validator {
	return func(value any) bool {
		for _, v := range validators {
			if v != nil && !v(value) {
				return false
			}
		}
		return true
	}
}

func stringValue(value any) (string, bool) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.String {
		return "", false
	}
	return rv.String(), true
}

func floatValue(value any) (float64, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
