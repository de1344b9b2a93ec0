// Package pipeline wires the resolve, measure, layout, paginate and render
// stages behind one Engine shared by the CLI and the HTTP server.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ByLCY/stylus/binding"
	"github.com/ByLCY/stylus/config"
	"github.com/ByLCY/stylus/dsl"
	"github.com/ByLCY/stylus/escp"
	"github.com/ByLCY/stylus/fonts"
	"github.com/ByLCY/stylus/layout"
	"github.com/ByLCY/stylus/markdown"
	"github.com/ByLCY/stylus/measure"
	"github.com/ByLCY/stylus/metrics"
	"github.com/ByLCY/stylus/node"
	"github.com/ByLCY/stylus/paginate"
	"github.com/ByLCY/stylus/renderer"
	canvasrenderer "github.com/ByLCY/stylus/renderer/canvas"
	"github.com/ByLCY/stylus/resolve"
)

var (
	// ErrUnknownFormat 表示无法识别的输入格式。
	ErrUnknownFormat = errors.New("pipeline: unknown document format")
	// ErrInvalidDocument 包装文档编译与纸张解析阶段的错误，属于调用方的输入问题。
	ErrInvalidDocument = errors.New("pipeline: invalid document")
)

// Format 是输入文档的格式。
type Format string

const (
	FormatDSL      Format = "dsl"
	FormatMarkdown Format = "markdown"
)

// FormatFromPath 按扩展名推断格式，.md/.markdown 以外都按 DSL 处理。
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatDSL
	}
}

// ParseFormat 解析 CLI/HTTP 传入的格式名，空串视为 DSL。
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dsl", "stylus":
		return FormatDSL, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
	}
}

// Request 是一次渲染的输入。
type Request struct {
	// ID 为空时由 Batch 生成。
	ID     string
	Format Format
	Source []byte
	Data   any
	// Page 覆盖文档或配置中的纸张，例如 "a4 landscape margin 10mm"。
	Page string
}

// Document 是编译后、尚未绑定数据的文档。
type Document struct {
	Title string    `json:"title,omitempty"`
	Page  dsl.Page  `json:"page"`
	Root  node.Node `json:"-"`
}

// Laid 是排版与分页的结果。Layout 在文档解析为空时为 nil。
type Laid struct {
	Document *Document        `json:"document"`
	Layout   *layout.Result   `json:"layout,omitempty"`
	Pages    *paginate.Result `json:"pages"`
}

// Output 是渲染出的字节与页数。
type Output struct {
	Title string
	Bytes []byte
	Pages int
}

// Engine 持有设备配置与共享的宽度表，可被多个 goroutine 同时使用。
type Engine struct {
	cfg     *config.Config
	logger  *zap.Logger
	filters binding.Filters
	metrics metrics.Metrics

	fontOnce sync.Once
	font     []byte
	fontErr  error
}

// Option 配置 Engine。
type Option func(*Engine)

// WithLogger 设置日志；默认不输出。
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithFilters 替换模板过滤器集合。
func WithFilters(filters binding.Filters) Option {
	return func(e *Engine) { e.filters = filters }
}

// New 创建 Engine；cfg 为 nil 时使用默认配置。
func New(cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	e := &Engine{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.filters == nil {
		e.filters = binding.DefaultFilters()
	}
	e.metrics = metrics.New(cfg.Device.DPI)
	return e
}

// Config 返回 Engine 使用的配置。
func (e *Engine) Config() *config.Config { return e.cfg }

// Load 编译 req.Source。DSL 文档自带纸张，Markdown 使用配置的默认纸张；
// req.Page 非空时覆盖两者。
func (e *Engine) Load(req Request) (*Document, error) {
	dpi := e.cfg.Device.DPI
	var doc *Document
	switch req.Format {
	case FormatDSL, "":
		compiled, err := dsl.CompileReader(bytes.NewReader(req.Source), dsl.Options{DPI: dpi, Filters: e.filters})
		if err != nil {
			return nil, err
		}
		title := compiled.Meta.Title
		if title == "" {
			title = compiled.Name
		}
		doc = &Document{Title: title, Page: compiled.Page, Root: compiled.Root}
	case FormatMarkdown:
		md := markdown.ConvertBytes(req.Source, markdown.Options{DPI: dpi, Gap: e.cfg.LineSpacing()})
		page, err := e.cfg.DefaultPage()
		if err != nil {
			return nil, err
		}
		doc = &Document{Title: md.Title, Page: page, Root: md.Root}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, req.Format)
	}

	if req.Page != "" {
		page, err := dsl.ResolvePage(req.Page, dpi)
		if err != nil {
			return nil, err
		}
		doc.Page = page
	}
	return doc, nil
}

// Lay 依次执行 resolve、measure、layout 与 paginate。
func (e *Engine) Lay(ctx context.Context, req Request) (*Laid, error) {
	var doc *Document
	if err := e.stage(ctx, "compile", func() (err error) {
		if doc, err = e.Load(req); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return e.LayDocument(ctx, doc, req.Data)
}

// LayDocument 对已编译的文档绑定 data 并分页，同一个 Document 可重复使用。
func (e *Engine) LayDocument(ctx context.Context, doc *Document, data any) (*Laid, error) {
	laid := &Laid{Document: doc}

	var static node.Node
	if err := e.stage(ctx, "resolve", func() (err error) {
		r := &resolve.Resolver{Logger: e.logger, Filters: e.filters}
		static, err = r.Resolve(doc.Root, binding.NewContext(data))
		return err
	}); err != nil {
		return nil, err
	}
	if static == nil {
		e.logger.Debug("文档解析为空", zap.String("title", doc.Title))
		laid.Pages = &paginate.Result{Pages: []paginate.Segment{{Index: 0}}}
		return laid, nil
	}

	box := doc.Page.Box()
	avail := measure.Size{Width: box.Width}
	if doc.Page.Height > 0 {
		// 百分比高度相对于可打印高度；连续纸不限高
		avail.Height = doc.Page.PageConfig().PrintableHeight()
	}
	var measured *measure.Node
	if err := e.stage(ctx, "measure", func() (err error) {
		measured, err = measure.Measure(static, avail, e.deviceStyle(), measure.Options{
			Metrics:     e.metrics,
			LineSpacing: e.cfg.LineSpacing(),
		})
		return err
	}); err != nil {
		return nil, err
	}

	if err := e.stage(ctx, "layout", func() (err error) {
		laid.Layout, err = layout.Layout(measured, box)
		return err
	}); err != nil {
		return nil, err
	}

	if err := e.stage(ctx, "paginate", func() error {
		laid.Pages = paginate.Paginate(laid.Layout, doc.Page.PageConfig())
		return nil
	}); err != nil {
		return nil, err
	}
	e.logger.Debug("分页完成",
		zap.String("title", doc.Title),
		zap.Int("pages", laid.Pages.PageCount()),
		zap.Int("items", laid.Pages.ItemCount()),
	)
	return laid, nil
}

// Render 输出 ESC/P 命令流。
func (e *Engine) Render(ctx context.Context, req Request) (*Output, error) {
	laid, err := e.Lay(ctx, req)
	if err != nil {
		return nil, err
	}
	return e.output(ctx, laid, e.Printer())
}

// Preview 输出字符网格的 PDF 预览。
func (e *Engine) Preview(ctx context.Context, req Request) (*Output, error) {
	laid, err := e.Lay(ctx, req)
	if err != nil {
		return nil, err
	}
	r, err := e.previewer(laid.Document)
	if err != nil {
		return nil, err
	}
	return e.output(ctx, laid, r)
}

// Inspect 把排版与分页结果以 JSON 写入 w。
func (e *Engine) Inspect(ctx context.Context, req Request, w io.Writer) error {
	laid, err := e.Lay(ctx, req)
	if err != nil {
		return err
	}
	return layout.WriteDebugJSON(w, laid)
}

// Printer 返回按设备配置初始化的 ESC/P 渲染器。
func (e *Engine) Printer() *renderer.Printer {
	return &renderer.Printer{Options: renderer.Options{
		Metrics:   e.metrics,
		Encoder:   escp.NewEncoder(e.cfg.Device.DPI),
		Init:      e.cfg.Device.Init,
		EjectLast: e.cfg.Device.EjectLast,
	}}
}

func (e *Engine) previewer(doc *Document) (*canvasrenderer.Renderer, error) {
	font, err := e.previewFont()
	if err != nil {
		return nil, err
	}
	return canvasrenderer.NewRenderer(canvasrenderer.Options{
		FontBytes:  font,
		Metrics:    e.metrics,
		DPI:        e.cfg.Device.DPI,
		PageWidth:  doc.Page.Width,
		PageHeight: doc.Page.Height,
		Title:      doc.Title,
	}), nil
}

// previewFont 只读取一次字体文件。
func (e *Engine) previewFont() ([]byte, error) {
	e.fontOnce.Do(func() {
		path := e.cfg.Preview.FontFile
		if path == "" {
			path, e.fontErr = fonts.Find()
			if e.fontErr != nil {
				return
			}
		}
		e.font, e.fontErr = fonts.Load(path)
	})
	return e.font, e.fontErr
}

func (e *Engine) output(ctx context.Context, laid *Laid, r renderer.Renderer) (*Output, error) {
	out := &Output{Title: laid.Document.Title, Pages: laid.Pages.PageCount()}
	if err := e.stage(ctx, "render", func() (err error) {
		out.Bytes, err = r.Render(laid.Pages)
		return err
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// deviceStyle 是根节点继承的样式：打印机当前的国际字符集与代码页。
func (e *Engine) deviceStyle() node.ResolvedStyle {
	st := node.DefaultStyle()
	st.Charset = e.cfg.Charset()
	st.Table = e.cfg.Table()
	return st
}

// stage 在每个阶段前检查 ctx，并在 debug 级别记录耗时。
func (e *Engine) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	if err != nil {
		e.logger.Debug("阶段失败", zap.String("stage", name), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	e.logger.Debug("阶段完成", zap.String("stage", name), zap.Duration("elapsed", time.Since(start)))
	return nil
}
