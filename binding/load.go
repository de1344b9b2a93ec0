package binding

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat 表示无法识别的数据格式。
var ErrUnknownFormat = errors.New("binding: unknown data format")

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Format 是数据文件格式。
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath 根据扩展名推断格式，未知扩展名按 JSON 处理。
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadData 读取绑定数据。YAML 中的 map[any]any 与整数会被规整成 JSON 形态
// （map[string]any、float64），使 Equal 的比较结果与 JSON 输入一致。
func LoadData(r io.Reader, format Format) (any, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取数据失败: %w", err)
	}
	var out any
	switch format {
	case FormatJSON, "":
		if err := jsonAPI.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("解析 JSON 数据失败: %w", err)
		}
		return out, nil
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("解析 YAML 数据失败: %w", err)
		}
		return normalize(out), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// ParseJSON 解析内联 JSON 字符串（CLI 的 --data 参数）。
func ParseJSON(s string) (any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return LoadData(strings.NewReader(s), FormatJSON)
}

func normalize(v any) any {
	switch c := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, val := range c {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(c))
		for k, val := range c {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(c))
		for i, val := range c {
			out[i] = normalize(val)
		}
		return out
	case int:
		return float64(c)
	case int64:
		return float64(c)
	case uint64:
		return float64(c)
	default:
		return v
	}
}
