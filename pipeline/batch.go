package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Mode 选择批处理的输出。
type Mode string

const (
	ModeRender  Mode = "render"
	ModePreview Mode = "preview"
)

// JobResult 是批处理中一个文档的结果。单个文档失败不会中止其它文档。
type JobResult struct {
	ID      string        `json:"id"`
	Title   string        `json:"title,omitempty"`
	Pages   int           `json:"pages"`
	Bytes   []byte        `json:"-"`
	Elapsed time.Duration `json:"elapsed"`
	Err     error         `json:"-"`
}

// Batch 并发渲染 reqs，并发数取 batch.concurrency。结果顺序与 reqs 一致；
// 只有 ctx 被取消时才返回错误。
func (e *Engine) Batch(ctx context.Context, reqs []Request, mode Mode) ([]JobResult, error) {
	results := make([]JobResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.cfg.Batch.Concurrency))

	for i, req := range reqs {
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		results[i].ID = req.ID
		g.Go(func() error {
			start := time.Now()
			out, err := e.run(gctx, req, mode)
			res := &results[i]
			res.Elapsed = time.Since(start)
			if err != nil {
				res.Err = err
				e.logger.Warn("批处理文档失败", zap.String("job_id", req.ID), zap.Error(err))
				return nil
			}
			res.Title, res.Pages, res.Bytes = out.Title, out.Pages, out.Bytes
			e.logger.Debug("批处理文档完成", zap.String("job_id", req.ID), zap.Int("pages", out.Pages), zap.Duration("elapsed", res.Elapsed))
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}

func (e *Engine) run(ctx context.Context, req Request, mode Mode) (*Output, error) {
	if mode == ModePreview {
		return e.Preview(ctx, req)
	}
	return e.Render(ctx, req)
}
