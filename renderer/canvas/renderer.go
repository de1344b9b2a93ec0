package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/stylus/fonts"
	"github.com/ByLCY/stylus/metrics"
	"github.com/ByLCY/stylus/node"
	"github.com/ByLCY/stylus/paginate"
	"github.com/ByLCY/stylus/renderer"
)

// underlineWidth 是下划线的线宽（mm）。
const underlineWidth = 0.2

// Renderer 把分页结果绘制为 PDF，用于在没有打印机时预览字符网格。
type Renderer struct {
	opts Options

	fontMu sync.Mutex
	family *canvas.FontFamily
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the preview renderer.
type Options struct {
	// FontFile 是等宽字体路径；为空且 FontBytes 为空时在系统字体目录中查找。
	FontFile  string
	FontBytes []byte
	// Metrics 必须与排版时一致，字符逐个按其步进宽度落位。
	Metrics metrics.Metrics
	DPI     int
	// PageWidth/PageHeight 是纸张尺寸（点）；为 0 时按内容推算。
	PageWidth  int
	PageHeight int
	Title      string
}

// NewRenderer creates a preview renderer.
func NewRenderer(opts Options) *Renderer {
	if opts.DPI <= 0 {
		opts.DPI = 360
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(opts.DPI)
	}
	return &Renderer{opts: opts}
}

// Render renders every page into one PDF.
func (r *Renderer) Render(result *paginate.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	family, err := r.fontFamily()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	var writer *pdf.PDF
	for i, page := range result.Pages {
		items := renderer.Flatten(page.Items, r.opts.Metrics)
		w, h := r.pageSize(page, items)
		if i == 0 {
			writer = pdf.New(&buf, w, h, nil)
			writer.SetInfo(r.opts.Title, "", "", "", "stylus")
		} else {
			writer.NewPage(w, h)
		}
		c := canvas.New(w, h)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
		for _, it := range items {
			r.drawItem(ctx, family, it)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// pageSize 返回页面尺寸（mm）。
func (r *Renderer) pageSize(page paginate.Segment, items []renderer.Item) (float64, float64) {
	w, h := r.opts.PageWidth, r.opts.PageHeight
	if w <= 0 {
		for _, it := range items {
			w = max(w, it.Right())
		}
		w = max(w, r.opts.DPI)
	}
	if h <= 0 {
		h = max(page.Extent, r.opts.DPI)
	}
	return r.mm(w), r.mm(h)
}

func (r *Renderer) mm(dots int) float64 {
	return float64(dots) * 25.4 / float64(r.opts.DPI)
}

// drawItem 逐字符落位，保持与打印机一致的字符网格。
func (r *Renderer) drawItem(ctx *canvas.Context, family *canvas.FontFamily, it renderer.Item) {
	st := it.Style
	style := canvas.FontRegular
	if st.Bold {
		style = canvas.FontBold
	}
	if st.Italic {
		style |= canvas.FontItalic
	}

	x, y := it.X, it.Y
	for _, ch := range it.Text {
		cw := metrics.RuneWidth(r.opts.Metrics, ch, st)
		face := family.Face(r.fontSize(cw, st), color.Black, style, canvas.FontNormal)
		baseline := r.mm(y) + face.Metrics().Ascent
		line := canvas.NewTextLine(face, string(ch), canvas.Left)
		ctx.DrawText(r.mm(x), baseline, line)
		if st.DoubleStrike {
			ctx.DrawText(r.mm(x)+0.1, baseline, line)
		}
		if it.Vertical {
			y += it.LineHeight
		} else {
			x += cw
		}
	}

	if st.Underline && !it.Vertical {
		under := r.mm(it.Y + it.LineHeight*9/10)
		ctx.SetStrokeColor(color.Black)
		ctx.SetStrokeWidth(underlineWidth)
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(r.mm(it.Width), 0)
		ctx.DrawPath(r.mm(it.X), under, p)
	}
}

// fontSize 由字符步进推算字号（pt）：等宽字体的步进约为 0.6em。
// 倍高只影响行距，不放大字形。
func (r *Renderer) fontSize(cellDots int, st node.ResolvedStyle) float64 {
	inches := float64(cellDots) / float64(r.opts.DPI)
	if st.DoubleWidth {
		inches /= 2
	}
	return inches * 72 / 0.6
}

func (r *Renderer) fontFamily() (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if r.family != nil {
		return r.family, nil
	}

	data := r.opts.FontBytes
	if len(data) == 0 {
		path := r.opts.FontFile
		if path == "" {
			found, err := fonts.Find()
			if err != nil {
				return nil, err
			}
			path = found
		}
		loaded, err := fonts.Load(path)
		if err != nil {
			return nil, err
		}
		data = loaded
	}

	family := canvas.NewFontFamily("stylus-preview")
	// 单个字体文件同时承担四种字形，粗体与斜体由预览近似
	for _, style := range []canvas.FontStyle{canvas.FontRegular, canvas.FontBold, canvas.FontItalic, canvas.FontBold | canvas.FontItalic} {
		if err := family.LoadFont(data, 0, style); err != nil {
			return nil, fmt.Errorf("加载预览字体失败: %w", err)
		}
	}
	r.family = family
	return family, nil
}
