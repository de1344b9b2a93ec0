package dsl_test

import (
	"strings"
	"testing"

	"github.com/ByLCY/stylus/dsl"
)

const sampleDSL = `
// 发票模板
doc Invoice v1 {
  meta {
    title: "Invoice"
    keywords: [
      "finance",
      "internal",
    ]
  }

  resources {
    style Heading {
      bold: true
      typeface: sans serif  # 裸词按空格拼接
    }
  }

  page letter landscape margin 0.5in 18mm {
    text Heading align center { "Hello, {{ user.name }}!" }

    grid column-gap 36 {
      columns {
        column 50% align right
      }
      row each data.items[0].lines as it {
        text { "{{ it.name }}" }
      }
    }

    /* 负数与分号 */
    flex x -5 { spacer flex }; line
  }
}
`

func TestParseDocument(t *testing.T) {
	doc, err := dsl.ParseString(sampleDSL)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if doc.Name != "Invoice" || doc.Version != "v1" {
		t.Fatalf("unexpected header %s %s", doc.Name, doc.Version)
	}
	var names []string
	for _, s := range doc.Sections {
		names = append(names, s.Name())
	}
	if got := strings.Join(names, ","); got != "meta,resources,page" {
		t.Fatalf("unexpected sections: %s", got)
	}

	meta := doc.Sections[0].Meta
	title := meta.Statements[0].Assignment
	if title == nil || title.Key != "title" || string(*title.Value.String) != "Invoice" {
		t.Fatalf("expected title assignment, got %+v", meta.Statements[0])
	}
	keywords := meta.Statements[1].Assignment
	if keywords == nil || len(keywords.Value.List) != 2 {
		t.Fatalf("expected 2 keywords with a trailing comma, got %+v", keywords)
	}

	style := doc.Sections[1].Resources.Statements[0].Command
	typeface := style.Block.Statements[1].Assignment
	if typeface.Value.Words == nil || tokensToString(typeface.Value.Words.Items) != "sans serif" {
		t.Fatalf("bare words should stop at the comment, got %+v", typeface.Value)
	}

	page := doc.Sections[2].Page
	if page.Spec.Size != "letter" {
		t.Fatalf("expected page size letter, got %s", page.Spec.Size)
	}
	if got := tokensToString(page.Spec.Params); got != "landscape margin 0.5in 18mm" {
		t.Fatalf("unexpected page params: %s", got)
	}

	textCmd := page.Block.Statements[0].Command
	if textCmd == nil || textCmd.Name != "text" {
		t.Fatalf("expected text command, got %+v", page.Block.Statements[0])
	}
	if got := tokensToString(textCmd.Args); got != "Heading align center" {
		t.Fatalf("unexpected text args: %s", got)
	}
	if got := string(*textCmd.Block.Statements[0].Text); !strings.Contains(got, "{{ user.name }}") {
		t.Fatalf("expected placeholder in text literal, got %s", got)
	}

	gridCmd := page.Block.Statements[1].Command
	column := gridCmd.Block.Statements[0].Command.Block.Statements[0].Command
	if column.Args[0].Type != "Number" || column.Args[0].Value != "50%" {
		t.Fatalf("unexpected column args: %+v", column.Args)
	}
	row := gridCmd.Block.Statements[1].Command
	if got := tokensToString(row.Args); got != "each data.items[0].lines as it" {
		t.Fatalf("data paths should lex as one token, got %s", got)
	}

	flexCmd := page.Block.Statements[2].Command
	if flexCmd.Args[1].Type != "Number" || flexCmd.Args[1].Value != "-5" {
		t.Fatalf("negative numbers should lex as one token, got %+v", flexCmd.Args)
	}
	if line := page.Block.Statements[3].Command; line == nil || line.Name != "line" {
		t.Fatalf("semicolon should separate statements, got %+v", page.Block.Statements[3])
	}
}

func TestParseStringEscapes(t *testing.T) {
	doc, err := dsl.ParseString(`doc A v1 { page receipt { text { "tab\there \"quoted\"" } } }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	got := string(*doc.Sections[0].Page.Block.Statements[0].Command.Block.Statements[0].Text)
	if got != "tab\there \"quoted\"" {
		t.Fatalf("unexpected unquoted text %q", got)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, src := range []string{
		`doc X v1 { page letter { text { "a" }`,
		`doc X { page letter { } }`,
		`doc X v1 { footer { } }`,
	} {
		if _, err := dsl.ParseString(src); err == nil {
			t.Fatalf("expected parse error for %q", src)
		}
	}
}

func tokensToString(parts []*dsl.Lexeme) string {
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		values = append(values, p.Value)
	}
	return strings.Join(values, " ")
}
