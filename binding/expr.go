package binding

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	exprLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"|'(?:\\.|[^'])*'`},
		{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
		{Name: "Path", Pattern: `[A-Za-z_$@][A-Za-z0-9_\-$@]*(?:\.[A-Za-z_$@][A-Za-z0-9_\-$@]*|\[(?:\d+|"[^"]*"|'[^']*')\])*`},
		{Name: "Punct", Pattern: `[|:]`},
	})

	exprParser = participle.MustBuild[Expression](
		participle.Lexer(exprLexer),
		participle.Elide("Whitespace"),
	)
)

// Expression 是 {{ }} 内部的表达式：一个取值头部加若干过滤器。
type Expression struct {
	Head    *Literal  `parser:"@@"`
	Filters []*Filter `parser:"( '|' @@ )*"`
}

// Filter 是 name:arg:arg 形式的过滤器调用。
type Filter struct {
	Name string     `parser:"@Path"`
	Args []*Literal `parser:"( ':' @@ )*"`
}

// Literal 是字符串、数字或路径引用（true/false/null 作为关键字）。
type Literal struct {
	Str  *QuotedString `parser:"  @String"`
	Num  *float64      `parser:"| @Number"`
	Path *string       `parser:"| @Path"`
}

// QuotedString 在捕获时去掉引号并处理转义。
type QuotedString string

// Capture implements participle.Capture.
func (s *QuotedString) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	raw := values[0]
	if len(raw) < 2 {
		return fmt.Errorf("invalid string literal %s", raw)
	}
	body := raw[1 : len(raw)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			switch body[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(body[i])
			}
			continue
		}
		b.WriteByte(c)
	}
	*s = QuotedString(b.String())
	return nil
}

// ParseExpression 解析单个表达式（不含 {{ }}）。
func ParseExpression(src string) (*Expression, error) {
	return exprParser.ParseString("", src)
}

// Eval 在 ctx 中求值：先取头部，再依次应用过滤器。未知过滤器原样透传。
func (e *Expression) Eval(ctx Context, filters Filters) any {
	if e == nil || e.Head == nil {
		return nil
	}
	value := e.Head.Value(ctx)
	for _, f := range e.Filters {
		fn, ok := filters[f.Name]
		if !ok {
			continue
		}
		args := make([]any, len(f.Args))
		for i, a := range f.Args {
			args[i] = a.Value(ctx)
		}
		value = fn(value, args...)
	}
	return value
}

// Value 返回字面量的值；路径在 ctx 中解析。
func (l *Literal) Value(ctx Context) any {
	switch {
	case l == nil:
		return nil
	case l.Str != nil:
		return string(*l.Str)
	case l.Num != nil:
		return *l.Num
	case l.Path != nil:
		switch *l.Path {
		case "true":
			return true
		case "false":
			return false
		case "null", "nil":
			return nil
		}
		v, _ := ctx.Lookup(*l.Path)
		return v
	default:
		return nil
	}
}
