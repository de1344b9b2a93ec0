// Package paginate slices a positioned layout tree into fixed-height pages.
package paginate

import (
	"sort"

	"github.com/ByLCY/stylus/layout"
	"github.com/ByLCY/stylus/node"
)

// PageConfig 描述页面几何。可打印高度由页高与上下边距推导，不单独配置。
type PageConfig struct {
	PageHeight   int `json:"pageHeight"`
	TopMargin    int `json:"topMargin"`
	BottomMargin int `json:"bottomMargin"`
}

// PrintableHeight 返回可打印高度；PageHeight<=0 表示不分页。
func (c PageConfig) PrintableHeight() int {
	if c.PageHeight <= 0 {
		return int(^uint(0) >> 1)
	}
	return max(0, c.PageHeight-c.TopMargin-c.BottomMargin)
}

// Segment 是一页：按原顺序排列的原子项（Y 已换算为页内坐标）与该页的纵向范围。
type Segment struct {
	Index  int              `json:"index"`
	Items  []*layout.Result `json:"items"`
	Extent int              `json:"extent"`
}

// Result 是分页结果，至少包含一页。
type Result struct {
	Pages []Segment `json:"pages"`
}

// PageCount 返回页数。
func (r *Result) PageCount() int { return len(r.Pages) }

// ItemCount 返回所有页上的原子项总数。
func (r *Result) ItemCount() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Items)
	}
	return n
}

// item 是一个原子分页单元及其继承的分页提示。
type item struct {
	res      *layout.Result
	before   bool
	after    bool
	keep     bool
	absolute bool
}

// Paginate 将定位后的树切分为页。任何输入都至少产生一页；
// 高于整页的组原地溢出，不会无限换页。
func Paginate(root *layout.Result, cfg PageConfig) *Result {
	var flow, abs []item
	for _, it := range extract(root, layout.Point{}) {
		if it.absolute {
			abs = append(abs, it)
		} else {
			flow = append(flow, it)
		}
	}
	sort.SliceStable(flow, func(i, j int) bool { return flow[i].res.Y < flow[j].res.Y })

	p := &pager{cfg: cfg, printable: cfg.PrintableHeight()}
	p.pages = []*Segment{{Index: 0}}
	groups := groupByY(flow)
	for gi := range groups {
		var next *group
		if gi+1 < len(groups) {
			next = &groups[gi+1]
		}
		p.place(groups[gi], next)
	}
	for _, it := range abs {
		p.placeAbsolute(it)
	}

	out := &Result{Pages: make([]Segment, len(p.pages))}
	for i, seg := range p.pages {
		out.Pages[i] = *seg
	}
	return out
}

// group 是原始 Y 相同的一组项（例如同一 flex 行），共享同一个位移。
type group struct {
	items  []item
	top    int
	bottom int
	before bool
	after  bool
	keep   bool
}

func (g group) height() int { return g.bottom - g.top }

func groupByY(flow []item) []group {
	var out []group
	for _, it := range flow {
		if n := len(out); n > 0 && out[n-1].top == it.res.Y {
			g := &out[n-1]
			g.items = append(g.items, it)
			g.bottom = max(g.bottom, it.res.Bottom())
			g.before = g.before || it.before
			g.after = g.after || it.after
			g.keep = g.keep || it.keep
			continue
		}
		out = append(out, group{
			items:  []item{it},
			top:    it.res.Y,
			bottom: it.res.Bottom(),
			before: it.before,
			after:  it.after,
			keep:   it.keep,
		})
	}
	return out
}

type pager struct {
	cfg       PageConfig
	printable int
	pages     []*Segment
	origin    int
	pending   bool
}

func (p *pager) current() *Segment { return p.pages[len(p.pages)-1] }

func (p *pager) newPage(origin int) {
	p.pages = append(p.pages, &Segment{Index: len(p.pages)})
	p.origin = origin
}

func (p *pager) place(g group, next *group) {
	cur := p.current()
	forced := p.pending || g.before
	p.pending = false

	switch {
	case forced && len(cur.Items) > 0:
		p.newPage(g.top)
	case len(cur.Items) > 0:
		offset := g.top - p.origin
		fits := offset+g.height() <= p.printable
		if !fits && g.height() <= p.printable {
			p.newPage(g.top)
			break
		}
		if fits && g.keep && next != nil {
			need := next.bottom - g.top
			if offset+need > p.printable && need <= p.printable {
				p.newPage(g.top)
			}
		}
	}

	cur = p.current()
	dy := p.cfg.TopMargin - p.origin
	for _, it := range g.items {
		it.res.Translate(dy)
		cur.Items = append(cur.Items, it.res)
		cur.Extent = max(cur.Extent, it.res.Bottom())
	}
	if g.after {
		p.pending = true
	}
}

// placeAbsolute 按原始 Y 直接落到对应页，不参与流式分页。
func (p *pager) placeAbsolute(it item) {
	idx := 0
	if p.cfg.PageHeight > 0 {
		idx = max(0, it.res.Y) / p.cfg.PageHeight
	}
	for len(p.pages) <= idx {
		p.pages = append(p.pages, &Segment{Index: len(p.pages)})
	}
	seg := p.pages[idx]
	it.res.Translate(-idx * p.cfg.PageHeight)
	seg.Items = append(seg.Items, it.res)
	seg.Extent = max(seg.Extent, it.res.Bottom())
}

// extract 把树拆成原子项。off 是祖先相对偏移之和。
func extract(r *layout.Result, off layout.Point) []item {
	if r == nil {
		return nil
	}
	if r.Position == node.Absolute {
		return []item{{res: atomic(r, off), absolute: true}}
	}
	if r.Kind.Leaf() || r.Break.KeepTogether {
		return []item{hinted(atomic(r, off), r)}
	}

	own := off
	if r.Offset != nil {
		own.X += r.Offset.X
		own.Y += r.Offset.Y
	}

	var items []item
	if r.Kind == layout.KindGrid {
		for _, row := range r.Children {
			if row.Kind != layout.KindGridRow {
				items = append(items, extract(row, own)...)
				continue
			}
			items = append(items, item{
				res:    atomic(row, own),
				before: row.Break.Before,
				keep:   row.KeepWithNext,
			})
		}
	} else {
		for _, c := range r.Children {
			items = append(items, extract(c, own)...)
		}
	}

	if b := r.Break; (b.Orphans > 0 || b.Widows > 0) && countFlow(items) <= b.Orphans+b.Widows {
		return []item{hinted(atomic(r, off), r)}
	}
	first, last := -1, -1
	for i, it := range items {
		if it.absolute {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first >= 0 {
		items[first].before = items[first].before || r.Break.Before
		items[last].after = items[last].after || r.Break.After
	}
	return items
}

func hinted(res *layout.Result, src *layout.Result) item {
	return item{res: res, before: src.Break.Before, after: src.Break.After, keep: src.KeepWithNext}
}

// atomic 深拷贝 r，并把祖先偏移折叠进它自己的 Offset。
func atomic(r *layout.Result, off layout.Point) *layout.Result {
	c := r.Clone()
	if off.X == 0 && off.Y == 0 {
		return c
	}
	sum := off
	if c.Offset != nil {
		sum.X += c.Offset.X
		sum.Y += c.Offset.Y
	}
	c.Offset = &sum
	return c
}

func countFlow(items []item) int {
	n := 0
	for _, it := range items {
		if !it.absolute {
			n++
		}
	}
	return n
}
