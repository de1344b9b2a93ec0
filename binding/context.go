package binding

import "strings"

// SpaceContext 描述求值时的可用空间（单位：点）与页码。
type SpaceContext struct {
	AvailableWidth  int
	AvailableHeight int
	RemainingWidth  int
	RemainingHeight int
	PageNumber      int
}

// Context 是数据绑定的求值环境。值语义，不可变：With/WithIndex 返回浅拷贝。
type Context struct {
	Data     any
	Vars     map[string]any
	Space    SpaceContext
	Index    int
	Total    int
	HasIndex bool
}

// NewContext 以 data 作为根数据创建上下文。
func NewContext(data any) Context {
	return Context{Data: data}
}

// With 返回绑定了 name=value 的新上下文，原上下文不受影响。
func (c Context) With(name string, value any) Context {
	vars := make(map[string]any, len(c.Vars)+1)
	for k, v := range c.Vars {
		vars[k] = v
	}
	vars[name] = value
	c.Vars = vars
	return c
}

// WithIndex 记录迭代位置。
func (c Context) WithIndex(index, total int) Context {
	c.Index = index
	c.Total = total
	c.HasIndex = true
	return c
}

// WithSpace 替换空间信息。
func (c Context) WithSpace(space SpaceContext) Context {
	c.Space = space
	return c
}

// Lookup 解析路径。先查循环变量，再查根数据；"." 或空串指向根数据。
// 路径缺失不会报错，只返回 (nil, false)。
func (c Context) Lookup(path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" || path == "." {
		return c.Data, c.Data != nil
	}
	steps, ok := splitPath(path)
	if !ok || len(steps) == 0 {
		return nil, false
	}
	head := steps[0]
	if !head.isIndex {
		if v, ok := c.Vars[head.key]; ok {
			return resolveSteps(v, steps[1:])
		}
		switch head.key {
		case "$index":
			if c.HasIndex {
				return resolveSteps(c.Index, steps[1:])
			}
		case "$total":
			if c.HasIndex {
				return resolveSteps(c.Total, steps[1:])
			}
		case "$page":
			return resolveSteps(c.Space.PageNumber, steps[1:])
		}
	}
	return resolveSteps(c.Data, steps)
}
