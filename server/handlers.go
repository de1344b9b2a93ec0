package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/ByLCY/stylus/pipeline"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBatch 是一次批处理请求允许的文档数。
const maxBatch = 64

// documentRequest 是 /v1 接口的请求体。
type documentRequest struct {
	ID     string `json:"id,omitempty"`
	Format string `json:"format,omitempty"`
	Source string `json:"source"`
	Data   any    `json:"data,omitempty"`
	Page   string `json:"page,omitempty"`
}

func (d documentRequest) toPipeline() (pipeline.Request, error) {
	format, err := pipeline.ParseFormat(d.Format)
	if err != nil {
		return pipeline.Request{}, err
	}
	if d.Source == "" {
		return pipeline.Request{}, fmt.Errorf("source is required")
	}
	return pipeline.Request{ID: d.ID, Format: format, Source: []byte(d.Source), Data: d.Data, Page: d.Page}, nil
}

type batchRequest struct {
	Mode      string            `json:"mode,omitempty"`
	Documents []documentRequest `json:"documents"`
}

type batchItem struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Pages   int    `json:"pages"`
	Output  []byte `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
	Elapsed int64  `json:"elapsed_ms"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeDocument(w, r)
	if !ok {
		return
	}
	out, err := s.engine.Render(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOutput(w, "application/octet-stream", out)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeDocument(w, r)
	if !ok {
		return
	}
	out, err := s.engine.Preview(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOutput(w, "application/pdf", out)
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeDocument(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := s.engine.Inspect(r.Context(), req, &buf); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var body batchRequest
	if !s.decode(w, r, &body) {
		return
	}
	if len(body.Documents) == 0 {
		jsonError(w, "documents is required", http.StatusBadRequest)
		return
	}
	if len(body.Documents) > maxBatch {
		jsonError(w, fmt.Sprintf("too many documents (max %d)", maxBatch), http.StatusBadRequest)
		return
	}
	mode := pipeline.Mode(body.Mode)
	switch mode {
	case "":
		mode = pipeline.ModeRender
	case pipeline.ModeRender, pipeline.ModePreview:
	default:
		jsonError(w, "unknown mode: "+body.Mode, http.StatusBadRequest)
		return
	}

	reqs := make([]pipeline.Request, len(body.Documents))
	for i, d := range body.Documents {
		req, err := d.toPipeline()
		if err != nil {
			jsonError(w, fmt.Sprintf("documents[%d]: %v", i, err), http.StatusBadRequest)
			return
		}
		reqs[i] = req
	}

	results, err := s.engine.Batch(r.Context(), reqs, mode)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items := make([]batchItem, len(results))
	for i, res := range results {
		items[i] = batchItem{ID: res.ID, Title: res.Title, Pages: res.Pages, Output: res.Bytes, Elapsed: res.Elapsed.Milliseconds()}
		if res.Err != nil {
			items[i].Error = res.Err.Error()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": items})
}

func (s *Server) decodeDocument(w http.ResponseWriter, r *http.Request) (pipeline.Request, bool) {
	var body documentRequest
	if !s.decode(w, r, &body) {
		return pipeline.Request{}, false
	}
	req, err := body.toPipeline()
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return pipeline.Request{}, false
	}
	return req, true
}

// decode 读取 JSON 请求体，超过 max_body_bytes 时返回 413。
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	// jsoniter 的解码器不会包装读取错误，先读完再判断是否超限
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "read request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if err := jsonAPI.Unmarshal(body, v); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// fail 把流水线错误映射为状态码：文档错误 400，超时 504，其余 500。
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidDocument):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		jsonError(w, "render timed out", http.StatusGatewayTimeout)
	case errors.Is(err, context.Canceled):
		// 客户端已断开
	default:
		s.log.Error("渲染失败", zap.String("path", r.URL.Path), zap.Error(err))
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeOutput(w http.ResponseWriter, contentType string, out *pipeline.Output) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Bytes)))
	w.Header().Set("X-Stylus-Pages", strconv.Itoa(out.Pages))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Bytes)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonAPI.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
