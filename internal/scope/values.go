package scope

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// SafeValue is a string that is written to the output without escaping.
type SafeValue string

// String returns the underlying text.
func (s SafeValue) String() string {
	return string(s)
}

// Safe marks s as already escaped.
func Safe(s string) SafeValue {
	return SafeValue(s)
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

func isStringLike(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case SafeValue:
		return string(s), true
	}
	return "", false
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Truthy reports whether v counts as true in a condition.
func Truthy(v interface{}) bool {
	if isNil(v) {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case SafeValue:
		return t != ""
	}
	if isNumber(v) {
		f := cast.ToFloat64(v)
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// ToString converts v to its output form. Missing values render as "".
func ToString(v interface{}) string {
	if isNil(v) {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case SafeValue:
		return string(t)
	case float64:
		return formatNumber(t)
	case float32:
		return formatNumber(float64(t))
	case []interface{}:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = ToString(item)
		}
		return strings.Join(parts, ",")
	case map[string]interface{}:
		return "[object Object]"
	}

	if s, err := cast.ToStringE(v); err == nil {
		return s
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = ToString(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	case reflect.Map, reflect.Struct, reflect.Ptr:
		return "[object Object]"
	case reflect.Func:
		return ""
	}
	return ""
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	// Exponent form without zero padding, "1e+21" and "1.5e-7".
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + digits
}

// ToNumber converts v to a float64. Values without a numeric form yield NaN.
func ToNumber(v interface{}) float64 {
	if isNil(v) {
		return 0
	}
	if s, ok := isStringLike(v); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return math.NaN()
	}
	return f
}

// StrictEqual implements "===": no coercion between types, except that all
// Go numeric types compare by value.
func StrictEqual(a, b interface{}) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	if isNumber(a) && isNumber(b) {
		return ToNumber(a) == ToNumber(b)
	}
	if sa, ok := isStringLike(a); ok {
		sb, ok := isStringLike(b)
		return ok && sa == sb
	}
	if ba, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ba == bb
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	switch ta.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	if ta.Comparable() {
		return a == b
	}
	return false
}

// LooseEqual implements "==": numbers, numeric strings and booleans are
// compared numerically.
func LooseEqual(a, b interface{}) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	_, aBool := a.(bool)
	_, bBool := b.(bool)
	_, aStr := isStringLike(a)
	_, bStr := isStringLike(b)
	mixed := (isNumber(a) || aBool) && (bStr || isNumber(b) || bBool) ||
		(isNumber(b) || bBool) && (aStr || isNumber(a) || aBool)
	if mixed && !(aBool && bBool) {
		return ToNumber(a) == ToNumber(b)
	}
	return StrictEqual(a, b)
}

// Compare orders two values. Strings compare lexically, everything else
// numerically. ok is false when the values are not ordered (NaN).
func Compare(a, b interface{}) (int, bool) {
	sa, aStr := isStringLike(a)
	sb, bStr := isStringLike(b)
	if aStr && bStr {
		return strings.Compare(sa, sb), true
	}

	x, y := ToNumber(a), ToNumber(b)
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

// Add implements "+": concatenation when either side is a string, numeric
// addition otherwise.
func Add(a, b interface{}) interface{} {
	_, aStr := isStringLike(a)
	_, bStr := isStringLike(b)
	if aStr || bStr {
		return ToString(a) + ToString(b)
	}
	if numeric(a) && numeric(b) {
		return ToNumber(a) + ToNumber(b)
	}
	return ToString(a) + ToString(b)
}

func numeric(v interface{}) bool {
	if isNil(v) || isNumber(v) {
		return true
	}
	_, ok := v.(bool)
	return ok
}

// TypeOf returns the "typeof" name of v.
func TypeOf(v interface{}) string {
	if isNil(v) {
		return "undefined"
	}
	if isNumber(v) {
		return "number"
	}
	switch v.(type) {
	case bool:
		return "boolean"
	case string, SafeValue:
		return "string"
	}
	if reflect.TypeOf(v).Kind() == reflect.Func {
		return "function"
	}
	return "object"
}

// Length returns the length of strings, slices, arrays and maps.
func Length(v interface{}) (int, bool) {
	if s, ok := isStringLike(v); ok {
		return len([]rune(s)), true
	}
	if isNil(v) {
		return 0, false
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len(), true
	}
	return 0, false
}
