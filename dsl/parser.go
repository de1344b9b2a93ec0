package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// 记号种类，Lexeme.Type 取这些值。
const (
	tokNumber = "Number"
	tokString = "String"
	tokIdent  = "Ident"
	tokPunct  = "Punct"
)

// tokens 是文档的词法规则。Number 可带单位后缀；Ident 可以是 a.b[0].c 形式的数据路径，
// 因此路径在参数中只占一个记号。
var tokens = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|#[^\n]*|/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "Newline", Pattern: `\n+`},
	{Name: tokNumber, Pattern: `-?(?:\d+\.\d+|\d+)(?:dots|pt|mm|cm|in|%)?`},
	{Name: tokString, Pattern: `"(?:\\.|[^"])*"`},
	{Name: tokIdent, Pattern: `[A-Za-z_$][A-Za-z0-9_$-]*(?:\.[A-Za-z_$][A-Za-z0-9_$-]*|\[\d+\])*`},
	{Name: tokPunct, Pattern: `[][(),.=+*/%<>!?;:|-]`},
	{Name: "LBrace", Pattern: `{`},
	{Name: "RBrace", Pattern: `}`},
})

// tokenKinds 把 participle 的数字类型映射回规则名。
var tokenKinds = func() map[lexer.TokenType]string {
	out := map[lexer.TokenType]string{}
	for name, tt := range tokens.Symbols() {
		out[tt] = name
	}
	return out
}()

var (
	spaceTokenType   = tokenType("Whitespace")
	newlineTokenType = tokenType("Newline")
	openTokenType    = tokenType("LBrace")
	closeTokenType   = tokenType("RBrace")
	punctTokenType   = tokenType(tokPunct)
	stringTokenType  = tokenType(tokString)
)

var documentParser = participle.MustBuild[Document](
	participle.Lexer(tokens),
	participle.Elide("Whitespace", "Comment"),
)

func tokenType(name string) lexer.TokenType {
	tt, ok := tokens.Symbols()[name]
	if !ok {
		panic("dsl: undefined token " + name)
	}
	return tt
}

// Document 是 `doc Name Version { ... }` 的语法树。
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'doc' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section 是 meta、resources 或 page 段，三者恰有一个非空。
type Section struct {
	Meta      *Block       `parser:"  'meta' @@"`
	Resources *Block       `parser:"| 'resources' @@"`
	Page      *PageSection `parser:"| 'page' @@"`
}

// Name 返回段名。
func (s *Section) Name() string {
	switch {
	case s == nil:
		return ""
	case s.Meta != nil:
		return "meta"
	case s.Resources != nil:
		return "resources"
	default:
		return "page"
	}
}

// PageSection 是 page 段：头部的纸张描述与页面内容。
type PageSection struct {
	Spec  PageSpec `parser:"@@"`
	Block *Block   `parser:"@@"`
}

// PageSpec 是纸张名及其后的参数，例如 `letter landscape margin 0.5in`。
type PageSpec struct {
	Size   string    `parser:"@Ident"`
	Params []*Lexeme `parser:"@@*"`
}

// Block 是花括号中的语句，语句之间用换行或分号分隔。
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement 是赋值、命令或文本字面量之一。
type Statement struct {
	Assignment *Assignment    `parser:"  @@"`
	Command    *Command       `parser:"| @@"`
	Text       *StringLiteral `parser:"| @String"`
}

// Assignment 是 `key: value`。
type Assignment struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident"`
	Value *Value         `parser:"':' Newline* @@"`
}

// Command 是 `name arg... { block }`，块可以换行后开始。
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

// Value 是赋值右侧：字符串、数字、列表，或直到行尾的裸词。
// 列表元素之间用逗号或换行分隔，允许结尾的逗号。
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	List   []*Value       `parser:"| '[' ( Newline | ',' )* ( @@ ( Newline | ',' )* )* ']'"`
	Words  *Words         `parser:"| @@"`
}

// Words 收集裸词，例如 `typeface: roman` 中的 roman。
type Words struct {
	Items []*Lexeme
}

// Parse implements participle.Parseable.
func (w *Words) Parse(lex *lexer.PeekingLexer) error {
	var items []*Lexeme
	for !endOfWords(lex.Peek()) {
		l, err := nextLexeme(lex)
		if err != nil {
			return err
		}
		items = append(items, l)
	}
	if len(items) == 0 {
		return participle.NextMatch
	}
	w.Items = items
	return nil
}

// Lexeme 是命令参数中的单个记号。Value 对字符串已去掉引号。
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse implements participle.Parseable：参数在换行、花括号与分号处结束。
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	if endOfArgs(lex.Peek()) {
		return participle.NextMatch
	}
	next, err := nextLexeme(lex)
	if err != nil {
		return err
	}
	*l = *next
	return nil
}

// StringLiteral 在捕获时去掉引号并处理转义。
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse 解析 r 中的文档。
func Parse(r io.Reader) (*Document, error) {
	return documentParser.Parse("", r)
}

// ParseString 解析字符串形式的文档。
func ParseString(input string) (*Document, error) {
	return documentParser.ParseString("", input)
}

func nextLexeme(lex *lexer.PeekingLexer) (*Lexeme, error) {
	tok := lex.Next()
	if tok.EOF() {
		return nil, participle.NextMatch
	}
	l, err := newLexeme(*tok)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func endOfArgs(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tok.Type {
	case newlineTokenType, openTokenType, closeTokenType:
		return true
	case punctTokenType:
		return tok.Value == ";"
	}
	return false
}

func endOfWords(tok *lexer.Token) bool {
	if endOfArgs(tok) {
		return true
	}
	return tok.Type == punctTokenType && (tok.Value == "," || tok.Value == "]")
}

func newLexeme(tok lexer.Token) (Lexeme, error) {
	kind, ok := tokenKinds[tok.Type]
	if !ok {
		kind = strconv.Itoa(int(tok.Type))
	}
	val := tok.Value
	if tok.Type == stringTokenType {
		unquoted, err := strconv.Unquote(tok.Value)
		if err != nil {
			return Lexeme{}, fmt.Errorf("%s: %w", tok.Pos, err)
		}
		val = unquoted
	}
	return Lexeme{Type: kind, Value: val, Raw: tok.Value, Pos: tok.Pos}, nil
}
