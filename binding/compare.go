package binding

import (
	"reflect"
	"strings"
)

// Operator 是条件判断使用的比较运算符。
type Operator string

const (
	OpEq        Operator = "eq"
	OpNeq       Operator = "neq"
	OpGt        Operator = "gt"
	OpGte       Operator = "gte"
	OpLt        Operator = "lt"
	OpLte       Operator = "lte"
	OpIn        Operator = "in"
	OpNotIn     Operator = "notIn"
	OpExists    Operator = "exists"
	OpNotExists Operator = "notExists"
	OpEmpty     Operator = "empty"
	OpNotEmpty  Operator = "notEmpty"
)

// Valid 判断运算符是否受支持。
func (o Operator) Valid() bool {
	switch o {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpIn, OpNotIn,
		OpExists, OpNotExists, OpEmpty, OpNotEmpty:
		return true
	}
	return false
}

// Compare 计算 left op right。exists/notExists 需要调用方通过 found 传入路径是否存在。
// 未知运算符视为 false。
func Compare(op Operator, left any, found bool, right any) bool {
	switch op {
	case OpExists:
		return found && left != nil
	case OpNotExists:
		return !found || left == nil
	case OpEmpty:
		return IsEmpty(left)
	case OpNotEmpty:
		return !IsEmpty(left)
	case OpEq:
		return Equal(left, right)
	case OpNeq:
		return !Equal(left, right)
	case OpGt:
		c, ok := order(left, right)
		return ok && c > 0
	case OpGte:
		c, ok := order(left, right)
		return ok && c >= 0
	case OpLt:
		c, ok := order(left, right)
		return ok && c < 0
	case OpLte:
		c, ok := order(left, right)
		return ok && c <= 0
	case OpIn:
		return contains(right, left)
	case OpNotIn:
		return !contains(right, left)
	default:
		return false
	}
}

// Equal 是严格相等：数字统一为 float64 后比较，其余要求动态类型一致。
// "1" 与 1 不相等。
func Equal(a, b any) bool {
	a, b = normalizeNumber(a), normalizeNumber(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if !reflect.TypeOf(a).Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

func normalizeNumber(v any) any {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, _ := ToFloat(v)
		return f
	}
	return v
}

// order 两侧都能转成数字时按数值比较，否则按字符串比较。
func order(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	fa, okA := ToFloat(a)
	fb, okB := ToFloat(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	return strings.Compare(ToString(a), ToString(b)), true
}

func contains(list, v any) bool {
	items, ok := AsSlice(list)
	if !ok {
		if s, isStr := list.(string); isStr {
			return strings.Contains(s, ToString(v))
		}
		return false
	}
	for _, item := range items {
		if Equal(item, v) {
			return true
		}
	}
	return false
}

// IsEmpty: nil、空串、空数组、空 map 为空。
func IsEmpty(v any) bool {
	switch c := v.(type) {
	case nil:
		return true
	case string:
		return c == ""
	case []any:
		return len(c) == 0
	case map[string]any:
		return len(c) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer:
		return rv.IsNil()
	}
	return false
}

// Truthy 按 false/0/空值 为假的惯例判断。
func Truthy(v any) bool {
	switch c := v.(type) {
	case bool:
		return c
	case string:
		switch strings.ToLower(strings.TrimSpace(c)) {
		case "", "false", "0", "no", "off":
			return false
		}
		return true
	}
	if f, ok := ToFloat(v); ok {
		return f != 0
	}
	return !IsEmpty(v)
}
