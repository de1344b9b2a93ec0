package dsl

import (
	"fmt"
	"strings"
)

// Meta 是文档元数据，预览 PDF 会写入其中的标题。
type Meta struct {
	Title    string   `json:"title,omitempty"`
	Author   string   `json:"author,omitempty"`
	Subject  string   `json:"subject,omitempty"`
	Creator  string   `json:"creator,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// styleDef 是 resources 中声明的命名样式，Props 与命令参数同名。
type styleDef struct {
	Name    string
	Extends string
	Props   map[string]string
}

// metaFields 把 meta 段的键映射到对应字段。
var metaFields = map[string]func(*Meta, *Value){
	"title":    func(m *Meta, v *Value) { m.Title = valueToString(v) },
	"author":   func(m *Meta, v *Value) { m.Author = valueToString(v) },
	"subject":  func(m *Meta, v *Value) { m.Subject = valueToString(v) },
	"creator":  func(m *Meta, v *Value) { m.Creator = valueToString(v) },
	"keywords": func(m *Meta, v *Value) { m.Keywords = valueToStringSlice(v) },
}

func collectMeta(doc *Document) Meta {
	meta := Meta{Creator: "stylus"}
	for _, sec := range doc.Sections {
		if sec.Meta == nil {
			continue
		}
		for _, st := range sec.Meta.Statements {
			a := st.Assignment
			if a == nil {
				continue
			}
			if set, ok := metaFields[strings.ToLower(a.Key)]; ok {
				set(&meta, a.Value)
			}
		}
	}
	return meta
}

// collectStyles 收集所有 resources 段中的 style 并展开 extends。
func collectStyles(doc *Document) (map[string]styleDef, error) {
	raw := map[string]styleDef{}
	for _, section := range doc.Sections {
		if section.Resources == nil {
			continue
		}
		for _, stmt := range section.Resources.Statements {
			if stmt.Command == nil {
				continue
			}
			if stmt.Command.Name != "style" {
				return nil, fmt.Errorf("第 %d 行：resources 中不支持 %s", stmt.Command.Pos.Line, stmt.Command.Name)
			}
			style := parseStyleResource(stmt.Command)
			if style.Name == "" {
				return nil, fmt.Errorf("第 %d 行：style 缺少名称", stmt.Command.Pos.Line)
			}
			raw[style.Name] = style
		}
	}
	return resolveStyles(raw)
}

func parseStyleResource(cmd *Command) styleDef {
	var def styleDef
	if len(cmd.Args) == 0 {
		return def
	}
	def.Name = cmd.Args[0].Value
	if len(cmd.Args) > 2 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		def.Extends = cmd.Args[2].Value
	}
	def.Props = blockAssignments(cmd.Block)
	return def
}

// resolveStyles 沿 extends 链自底向上合并属性，子样式覆盖父样式。
func resolveStyles(defs map[string]styleDef) (map[string]styleDef, error) {
	out := make(map[string]styleDef, len(defs))
	for name, def := range defs {
		chain := []styleDef{def}
		seen := map[string]struct{}{name: {}}
		for cur := def; cur.Extends != ""; {
			parent, ok := defs[cur.Extends]
			if !ok {
				return nil, fmt.Errorf("style %s 未定义", cur.Extends)
			}
			if _, dup := seen[parent.Name]; dup {
				return nil, fmt.Errorf("style 继承存在循环：%s", parent.Name)
			}
			seen[parent.Name] = struct{}{}
			chain = append(chain, parent)
			cur = parent
		}
		merged := make(map[string]string)
		for i := len(chain) - 1; i >= 0; i-- {
			for k, v := range chain[i].Props {
				merged[k] = v
			}
		}
		def.Props = merged
		out[name] = def
	}
	return out, nil
}

// blockAssignments 取出块中的 key: value 语句。
func blockAssignments(block *Block) map[string]string {
	out := map[string]string{}
	if block == nil {
		return out
	}
	for _, stmt := range block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		if val := valueToString(stmt.Assignment.Value); val != "" {
			out[stmt.Assignment.Key] = val
		}
	}
	return out
}

func extractText(block *Block) string {
	if block == nil {
		return ""
	}
	var builder strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(*stmt.Text))
		}
	}
	return builder.String()
}

func valueToString(val *Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Words != nil:
		parts := make([]string, 0, len(val.Words.Items))
		for _, part := range val.Words.Items {
			parts = append(parts, part.Value)
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

func valueToStringSlice(val *Value) []string {
	if val == nil {
		return nil
	}
	if val.List != nil {
		out := make([]string, 0, len(val.List))
		for _, item := range val.List {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}
