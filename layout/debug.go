package layout

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

var debugJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteDebugJSON 将布局结果（或分页结果）以缩进 JSON 写入 w，便于调试或可视化。
func WriteDebugJSON(w io.Writer, v any) error {
	enc := debugJSON.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
