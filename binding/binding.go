package binding

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var exprPattern = regexp.MustCompile(`\{\{(.*?)\}\}`)

// parsedCache 缓存已解析的表达式，模板在 Each 中会被反复求值。
var parsedCache sync.Map

// Interpolate 将文本中的 {{path | filter:arg}} 替换为 ctx 中的值。
// 路径不存在时替换为空串；表达式无法解析时保留原占位符。
func Interpolate(text string, ctx Context, filters Filters) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	if filters == nil {
		filters = DefaultFilters()
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		src := strings.TrimSpace(groups[1])
		if src == "" {
			return match
		}
		expr, err := parseCached(src)
		if err != nil {
			return match
		}
		return ToString(expr.Eval(ctx, filters))
	})
}

// HasExpressions 判断文本中是否含有 {{ }} 占位符。
func HasExpressions(text string) bool {
	return exprPattern.MatchString(text)
}

func parseCached(src string) (*Expression, error) {
	if v, ok := parsedCache.Load(src); ok {
		return v.(*Expression), nil
	}
	expr, err := ParseExpression(src)
	if err != nil {
		return nil, err
	}
	parsedCache.Store(src, expr)
	return expr, nil
}

// pathStep 是路径中的一段：字段名或下标。
type pathStep struct {
	key     string
	index   int
	isIndex bool
}

// splitPath 解析 a.b[0]["c d"].e 形式的路径。
func splitPath(path string) ([]pathStep, bool) {
	var steps []pathStep
	segments := strings.Split(path, ".")
	for _, segment := range segments {
		name, indexes, ok := parseSegment(segment)
		if !ok {
			return nil, false
		}
		if name != "" {
			steps = append(steps, pathStep{key: name})
		}
		for _, raw := range indexes {
			if unq, quoted := unquoteKey(raw); quoted {
				steps = append(steps, pathStep{key: unq})
				continue
			}
			idx, err := strconv.Atoi(raw)
			if err != nil {
				return nil, false
			}
			steps = append(steps, pathStep{index: idx, isIndex: true})
		}
	}
	return steps, true
}

func parseSegment(segment string) (string, []string, bool) {
	name := segment
	indexes := []string{}
	if i := strings.Index(segment, "["); i != -1 {
		name = segment[:i]
		rest := segment[i:]
		for len(rest) > 0 {
			if rest[0] != '[' {
				return "", nil, false
			}
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				return "", nil, false
			}
			indexes = append(indexes, strings.TrimSpace(rest[1:end]))
			rest = rest[end+1:]
		}
	}
	return strings.TrimSpace(name), indexes, true
}

func unquoteKey(raw string) (string, bool) {
	if len(raw) >= 2 && (raw[0] == '"' || raw[0] == '\'') && raw[len(raw)-1] == raw[0] {
		return raw[1 : len(raw)-1], true
	}
	return "", false
}

// resolveSteps 从 current 开始逐段下钻。任何一段缺失都返回 (nil, false)。
func resolveSteps(current any, steps []pathStep) (any, bool) {
	for _, step := range steps {
		var ok bool
		if step.isIndex {
			current, ok = descendArray(current, step.index)
			if !ok {
				// 允许对 map 使用数字下标
				current, ok = descendMap(current, strconv.Itoa(step.index))
			}
		} else {
			current, ok = descendMap(current, step.key)
		}
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func descendMap(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]interface{}:
		val, ok := c[key]
		return val, ok
	case map[string]string:
		val, ok := c[key]
		return val, ok
	case nil:
		return nil, false
	}
	rv := reflect.Indirect(reflect.ValueOf(current))
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Struct:
		field := rv.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, key)
		})
		if !field.IsValid() || !field.CanInterface() {
			return nil, false
		}
		return field.Interface(), true
	default:
		return nil, false
	}
}

func descendArray(current any, idx int) (any, bool) {
	switch c := current.(type) {
	case []interface{}:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	case nil:
		return nil, false
	}
	rv := reflect.Indirect(reflect.ValueOf(current))
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	default:
		return nil, false
	}
}

// AsSlice 把任意切片/数组转换为 []any；非数组返回 false。
func AsSlice(v any) ([]any, bool) {
	switch c := v.(type) {
	case []any:
		return c, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// ToString 把值格式化为可打印文本，nil 输出空串。
func ToString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(c), 'f', -1, 32)
	case fmt.Stringer:
		return c.String()
	default:
		return fmt.Sprint(v)
	}
}
