package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ByLCY/stylus/binding"
	"github.com/ByLCY/stylus/observability"
	"github.com/ByLCY/stylus/pipeline"
)

// inputFlags 是 render、preview、inspect 共用的输入参数。
type inputFlags struct {
	output   string
	format   string
	dataFile string
	dataJSON string
	page     string
}

func (f *inputFlags) register(cmd *cobra.Command, outputHelp string) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "-", outputHelp)
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "input format: dsl or markdown (default: from the file extension)")
	cmd.Flags().StringVarP(&f.dataFile, "data", "d", "", "JSON or YAML file bound to the document")
	cmd.Flags().StringVar(&f.dataJSON, "data-json", "", "inline JSON bound to the document")
	cmd.Flags().StringVarP(&f.page, "page", "p", "", `paper override, e.g. "a4 landscape margin 10mm"`)
}

// request 读取输入文档（路径为空或 "-" 时读 stdin）与绑定数据。
func (f *inputFlags) request(cmd *cobra.Command, args []string) (pipeline.Request, error) {
	path := "-"
	if len(args) > 0 {
		path = args[0]
	}
	source, err := readInput(cmd, path)
	if err != nil {
		return pipeline.Request{}, err
	}

	format := pipeline.FormatFromPath(path)
	if f.format != "" {
		if format, err = pipeline.ParseFormat(f.format); err != nil {
			return pipeline.Request{}, err
		}
	}

	data, err := loadData(f.dataFile, f.dataJSON)
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{Format: format, Source: source, Data: data, Page: f.page}, nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	full, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("无法读取文档 %s: %w", path, err)
	}
	return data, nil
}

// loadData 优先使用数据文件，其次是内联 JSON；都为空时返回 nil。
func loadData(file, inline string) (any, error) {
	if file == "" {
		data, err := binding.ParseJSON(inline)
		if err != nil {
			return nil, fmt.Errorf("解析 --data-json 失败: %w", err)
		}
		return data, nil
	}
	full, err := homedir.Expand(file)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("无法打开数据文件 %s: %w", file, err)
	}
	defer fh.Close()
	return binding.LoadData(fh, binding.FormatFromPath(full))
}

// writeOutput 写到文件，path 为 "-" 时写到 stdout。
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "-" || path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	full, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return nil
}

func newRenderCmd(a *app) *cobra.Command {
	var f inputFlags
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a document to an ESC/P command stream",
		Long: `Render a stylus DSL or markdown document to the raw ESC/P bytes a
dot-matrix printer consumes. Send the output straight to the device, e.g.

  stylus render invoice.stylus -d order.json -o /dev/usb/lp0`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd, args)
			if err != nil {
				return err
			}
			out, err := a.engine.Render(cmd.Context(), req)
			if err != nil {
				return err
			}
			observability.GetLogger().Info("渲染完成", zap.String("title", out.Title), zap.Int("pages", out.Pages), zap.Int("bytes", len(out.Bytes)))
			return writeOutput(cmd, f.output, out.Bytes)
		},
	}
	f.register(cmd, `output file ("-" for stdout)`)
	return cmd
}

func newPreviewCmd(a *app) *cobra.Command {
	var f inputFlags
	cmd := &cobra.Command{
		Use:   "preview [file]",
		Short: "Render a PDF preview of the printed character grid",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd, args)
			if err != nil {
				return err
			}
			output := f.output
			if output == "-" && len(args) > 0 && args[0] != "-" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".pdf"
			}
			out, err := a.engine.Preview(cmd.Context(), req)
			if err != nil {
				return err
			}
			observability.GetLogger().Info("预览完成", zap.String("output", output), zap.Int("pages", out.Pages))
			return writeOutput(cmd, output, out.Bytes)
		},
	}
	f.register(cmd, `output PDF (default: the input path with a .pdf extension, or stdout)`)
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	var f inputFlags
	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Print the positioned and paginated layout as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd, args)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := a.engine.Inspect(cmd.Context(), req, &buf); err != nil {
				return err
			}
			return writeOutput(cmd, f.output, buf.Bytes())
		},
	}
	f.register(cmd, `output file ("-" for stdout)`)
	return cmd
}
