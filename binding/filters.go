package binding

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FilterFunc 接收管道左侧的值与 ':' 分隔的参数，返回新值。
type FilterFunc func(value any, args ...any) any

// Filters 按名称索引过滤器。
type Filters map[string]FilterFunc

// DefaultFilters 返回内置过滤器集合的副本，调用方可以在其上追加。
func DefaultFilters() Filters {
	return Filters{
		"upper":    filterUpper,
		"lower":    filterLower,
		"trim":     filterTrim,
		"title":    filterTitle,
		"default":  filterDefault,
		"number":   filterNumber,
		"currency": filterCurrency,
		"pad":      filterPad,
		"padLeft":  filterPadLeft,
		"truncate": filterTruncate,
		"date":     filterDate,
		"join":     filterJoin,
		"len":      filterLen,
		"yesno":    filterYesNo,
	}
}

// With 返回加入 name 后的新集合。
func (f Filters) With(name string, fn FilterFunc) Filters {
	out := make(Filters, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[name] = fn
	return out
}

var (
	titleCaser = cases.Title(language.Und)
	numPrinter = message.NewPrinter(language.English)
)

func filterUpper(v any, _ ...any) any { return strings.ToUpper(ToString(v)) }
func filterLower(v any, _ ...any) any { return strings.ToLower(ToString(v)) }
func filterTrim(v any, _ ...any) any  { return strings.TrimSpace(ToString(v)) }
func filterTitle(v any, _ ...any) any { return titleCaser.String(ToString(v)) }

// filterDefault 在值为空（nil、空串、空数组）时返回参数。
func filterDefault(v any, args ...any) any {
	if IsEmpty(v) && len(args) > 0 {
		return args[0]
	}
	return v
}

// filterNumber 按固定小数位格式化，带千分位：{{ total | number:2 }}。
func filterNumber(v any, args ...any) any {
	f, ok := ToFloat(v)
	if !ok {
		return v
	}
	return numPrinter.Sprintf(fixedVerb(argInt(args, 0, 0)), f)
}

// filterCurrency 默认前缀 "$"、两位小数：{{ price | currency:"EUR " }}。
func filterCurrency(v any, args ...any) any {
	f, ok := ToFloat(v)
	if !ok {
		return v
	}
	symbol := "$"
	if len(args) > 0 {
		symbol = ToString(args[0])
	}
	decimals := argInt(args, 1, 2)
	sign := ""
	if f < 0 {
		sign = "-"
		f = math.Abs(f)
	}
	return sign + symbol + numPrinter.Sprintf(fixedVerb(decimals), f)
}

// filterPad 右侧补齐到指定宽度（按 rune 计），可选填充字符。
func filterPad(v any, args ...any) any {
	s := ToString(v)
	width := argInt(args, 0, 0)
	fill := argFill(args)
	if n := utf8.RuneCountInString(s); n < width {
		s += strings.Repeat(fill, width-n)
	}
	return s
}

func filterPadLeft(v any, args ...any) any {
	s := ToString(v)
	width := argInt(args, 0, 0)
	fill := argFill(args)
	if n := utf8.RuneCountInString(s); n < width {
		s = strings.Repeat(fill, width-n) + s
	}
	return s
}

// filterTruncate 截断到 n 个字符，可选后缀：{{ name | truncate:10:"..." }}。
func filterTruncate(v any, args ...any) any {
	s := ToString(v)
	n := argInt(args, 0, -1)
	if n < 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	suffix := ""
	if len(args) > 1 {
		suffix = ToString(args[1])
	}
	keep := n - utf8.RuneCountInString(suffix)
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + suffix
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// filterDate 解析 RFC3339/日期字符串或 Unix 秒，按 Go 时间布局输出，默认 2006-01-02。
func filterDate(v any, args ...any) any {
	layout := "2006-01-02"
	if len(args) > 0 {
		layout = ToString(args[0])
	}
	switch t := v.(type) {
	case time.Time:
		return t.Format(layout)
	case string:
		for _, l := range dateLayouts {
			if parsed, err := time.Parse(l, t); err == nil {
				return parsed.Format(layout)
			}
		}
		return t
	}
	if f, ok := ToFloat(v); ok {
		return time.Unix(int64(f), 0).UTC().Format(layout)
	}
	return v
}

func filterJoin(v any, args ...any) any {
	items, ok := AsSlice(v)
	if !ok {
		return v
	}
	sep := ", "
	if len(args) > 0 {
		sep = ToString(args[0])
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = ToString(item)
	}
	return strings.Join(parts, sep)
}

func filterLen(v any, _ ...any) any {
	if items, ok := AsSlice(v); ok {
		return len(items)
	}
	switch c := v.(type) {
	case nil:
		return 0
	case string:
		return utf8.RuneCountInString(c)
	case map[string]any:
		return len(c)
	}
	return 0
}

// filterYesNo 输出 "yes"/"no"，可用参数覆盖：{{ paid | yesno:"PAID":"DUE" }}。
func filterYesNo(v any, args ...any) any {
	yes, no := "yes", "no"
	if len(args) > 0 {
		yes = ToString(args[0])
	}
	if len(args) > 1 {
		no = ToString(args[1])
	}
	if Truthy(v) {
		return yes
	}
	return no
}

func fixedVerb(decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return "%." + strconv.Itoa(decimals) + "f"
}

func argInt(args []any, i, def int) int {
	if i >= len(args) {
		return def
	}
	if f, ok := ToFloat(args[i]); ok {
		return int(f)
	}
	return def
}

func argFill(args []any) string {
	if len(args) > 1 {
		if s := ToString(args[1]); s != "" {
			return s
		}
	}
	return " "
}

// ToFloat 把数字或数字字符串转为 float64。
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case fmt.Stringer:
		return ToFloat(n.String())
	default:
		return 0, false
	}
}
