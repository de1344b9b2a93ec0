// Package renderer turns positioned layout into output bytes. The package-level
// functions produce ESC/P command streams; renderer/canvas produces PDF previews.
package renderer

import (
	"bytes"
	"fmt"

	"github.com/ByLCY/stylus/escp"
	"github.com/ByLCY/stylus/layout"
	"github.com/ByLCY/stylus/metrics"
	"github.com/ByLCY/stylus/paginate"
)

// Renderer 将分页结果输出为最终文件，例如 ESC/P 命令流或 PDF。
type Renderer interface {
	Render(result *paginate.Result) ([]byte, error)
}

// Options 配置一次渲染。Metrics 必须与测量阶段使用的实现一致。
type Options struct {
	Metrics metrics.Metrics
	Encoder *escp.Encoder
	// StartY 是渲染前打印头所在的纵向位置（点）。
	StartY int
	// Init 为 true 时在输出前写入 ESC @ 与单位设置。
	Init bool
	// EjectLast 为 true 时 Document 在最后一页后也输出换页符。
	EjectLast bool
}

func (o Options) withDefaults() Options {
	if o.Encoder == nil {
		o.Encoder = escp.NewEncoder(escp.DefaultDPI)
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New(o.Encoder.DPI)
	}
	return o
}

// Output 是一次渲染的字节与结束时的纵向光标位置。
type Output struct {
	Bytes  []byte
	FinalY int
}

// Render 展平、截断、排序并编码 items。未知的结果类型视为流水线错误。
func Render(items []*layout.Result, opts Options) (*Output, error) {
	opts = opts.withDefaults()
	for _, r := range items {
		if err := check(r); err != nil {
			return nil, err
		}
	}
	flat := Flatten(items, opts.Metrics)
	sortItems(flat)

	e := newEmitter(opts.Encoder, opts.Metrics, opts.StartY)
	if opts.Init {
		e.buf.Write(opts.Encoder.Init())
	}
	for _, it := range flat {
		e.emit(it)
	}
	return &Output{Bytes: e.buf.Bytes(), FinalY: e.y}, nil
}

// RenderPages 对每一页独立渲染，每页光标从页顶开始。
func RenderPages(p *paginate.Result, opts Options) ([]*Output, error) {
	if p == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	opts.StartY = 0
	opts.Init = false
	out := make([]*Output, 0, len(p.Pages))
	for _, page := range p.Pages {
		o, err := Render(page.Items, opts)
		if err != nil {
			return nil, fmt.Errorf("渲染第 %d 页失败: %w", page.Index+1, err)
		}
		out = append(out, o)
	}
	return out, nil
}

// Document 输出完整文档：opts.Init 为 true 时先初始化一次，页与页之间以换页符分隔。
func Document(p *paginate.Result, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	pages, err := RenderPages(p, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if opts.Init {
		buf.Write(opts.Encoder.Init())
	}
	eject := func() {
		// 换页前把打印头送回左边距
		buf.Write(opts.Encoder.CarriageReturn())
		buf.Write(opts.Encoder.FormFeed())
	}
	for i, page := range pages {
		if i > 0 {
			eject()
		}
		buf.Write(page.Bytes)
	}
	if opts.EjectLast {
		eject()
	}
	return buf.Bytes(), nil
}

// Printer 以 ESC/P 命令流实现 Renderer。
type Printer struct {
	Options Options
}

var _ Renderer = (*Printer)(nil)

// Render implements Renderer.
func (p *Printer) Render(result *paginate.Result) ([]byte, error) {
	return Document(result, p.Options)
}

func check(r *layout.Result) error {
	var err error
	r.Walk(func(cur *layout.Result) bool {
		if cur.Kind.String() == "" {
			err = fmt.Errorf("未知的布局结果类型: %d", cur.Kind)
			return false
		}
		return true
	})
	return err
}
