package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ByLCY/stylus/config"
	"github.com/ByLCY/stylus/fonts"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const receiptDSL = `
doc Receipt v1 {
  meta { title: "Receipt" }
  page letter {
    text bold { "STORE" }
    each items as it {
      row {
        text width 2in { "{{ it.name }}" }
        text { "{{ it.qty }}" }
      }
    }
  }
}
`

func receiptData(n int) map[string]any {
	items := make([]any, n)
	for i := range items {
		items[i] = map[string]any{"name": fmt.Sprintf("Widget%d", i), "qty": float64(i + 1)}
	}
	return map[string]any{"items": items}
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatMarkdown, FormatFromPath("notes.MD"))
	assert.Equal(t, FormatMarkdown, FormatFromPath("a/b.markdown"))
	assert.Equal(t, FormatDSL, FormatFromPath("invoice.stylus"))

	f, err := ParseFormat("Markdown")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)
	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatDSL, f)
	_, err = ParseFormat("docx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRenderDSL(t *testing.T) {
	e := New(nil)
	out, err := e.Render(context.Background(), Request{Source: []byte(receiptDSL), Data: receiptData(2)})
	require.NoError(t, err)

	assert.Equal(t, "Receipt", out.Title)
	assert.Equal(t, 1, out.Pages)
	assert.True(t, bytes.HasPrefix(out.Bytes, []byte{0x1B, '@'}), "device.init is on by default")
	for _, s := range []string{"STORE", "Widget0", "Widget1", "2"} {
		assert.True(t, bytes.Contains(out.Bytes, []byte(s)), "missing %q", s)
	}
	assert.Zero(t, bytes.Count(out.Bytes, []byte{0x0C}))
}

func TestRenderPaginates(t *testing.T) {
	e := New(nil)
	req := Request{
		Source: []byte(receiptDSL),
		Data:   receiptData(10),
		Page:   "custom width 8in height 1in margin 0",
	}
	out, err := e.Render(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Pages)
	assert.Equal(t, 1, bytes.Count(out.Bytes, []byte{0x0C}), "one form feed between two pages")

	cfg := config.NewDefaultConfig()
	cfg.Device.EjectLast = true
	out, err = New(cfg).Render(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(out.Bytes, []byte{0x0C}))
}

func TestPercentHeightFollowsPrintableArea(t *testing.T) {
	src := `doc Half v1 { page custom width 8in height 2in margin 0.5in { stack height 50% { text { "x" } } } }`
	e := New(nil)
	laid, err := e.Lay(context.Background(), Request{Source: []byte(src)})
	require.NoError(t, err)
	require.Len(t, laid.Layout.Children, 1)
	// 可打印高度 2in - 1in = 1in = 360 点
	assert.Equal(t, 180, laid.Layout.Children[0].Height)

	laid, err = e.Lay(context.Background(), Request{Source: []byte(src), Page: "receipt"})
	require.NoError(t, err)
	assert.Zero(t, laid.Layout.Children[0].Height, "continuous paper has no height to take a share of")
}

func TestRenderMarkdown(t *testing.T) {
	e := New(nil)
	out, err := e.Render(context.Background(), Request{
		Format: FormatMarkdown,
		Source: []byte("# Notes\n\nHello printer.\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Notes", out.Title)
	assert.True(t, bytes.Contains(out.Bytes, []byte("Hello")))
}

func TestLoadErrors(t *testing.T) {
	e := New(nil)
	_, err := e.Load(Request{Format: "docx"})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = e.Load(Request{Source: []byte("doc {")})
	assert.Error(t, err)

	_, err = e.Load(Request{Source: []byte(receiptDSL), Page: "tabloid"})
	assert.Error(t, err)

	doc, err := e.Load(Request{Source: []byte(receiptDSL), Page: "receipt"})
	require.NoError(t, err)
	assert.Equal(t, "receipt", doc.Page.Size)
	assert.Zero(t, doc.Page.Height)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Render(ctx, Request{Source: []byte(receiptDSL)})
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestLayDocumentIsReusable(t *testing.T) {
	e := New(nil)
	doc, err := e.Load(Request{Source: []byte(receiptDSL)})
	require.NoError(t, err)

	small, err := e.LayDocument(context.Background(), doc, receiptData(1))
	require.NoError(t, err)
	large, err := e.LayDocument(context.Background(), doc, receiptData(5))
	require.NoError(t, err)
	assert.Less(t, small.Layout.Height, large.Layout.Height)
}

func TestInspectWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	err := New(nil).Inspect(context.Background(), Request{Source: []byte(receiptDSL), Data: receiptData(1)}, &buf)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "document")
	assert.Contains(t, decoded, "layout")
	pages := decoded["pages"].(map[string]any)["pages"].([]any)
	assert.Len(t, pages, 1)
}

func TestStagesAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := New(nil, WithLogger(zap.New(core)))
	_, err := e.Render(context.Background(), Request{Source: []byte(receiptDSL)})
	require.NoError(t, err)

	var stages []string
	for _, entry := range logs.FilterMessage("阶段完成").All() {
		stages = append(stages, entry.ContextMap()["stage"].(string))
	}
	assert.Equal(t, []string{"compile", "resolve", "measure", "layout", "paginate", "render"}, stages)
}

func TestPreview(t *testing.T) {
	if _, err := fonts.Find(); err != nil {
		t.Skipf("系统中没有可用的等宽字体: %v", err)
	}
	out, err := New(nil).Preview(context.Background(), Request{Source: []byte(receiptDSL), Data: receiptData(3)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out.Bytes), "%PDF"))
}

func TestPreviewMissingFont(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Preview.FontFile = t.TempDir() + "/missing.ttf"
	_, err := New(cfg).Preview(context.Background(), Request{Source: []byte(receiptDSL)})
	assert.Error(t, err)
}

func TestInvalidDocumentIsTagged(t *testing.T) {
	_, err := New(nil).Render(context.Background(), Request{Source: []byte("doc {")})
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = New(nil).Render(context.Background(), Request{Format: "docx"})
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
