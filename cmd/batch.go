package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ByLCY/stylus/observability"
	"github.com/ByLCY/stylus/pipeline"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		outDir   string
		mode     string
		dataFile string
		page     string
	)
	cmd := &cobra.Command{
		Use:   "batch file...",
		Short: "Render several documents concurrently",
		Long: `Render every document concurrently (batch.concurrency at a time) and write
<name>.prn, or <name>.pdf with --mode preview, into the output directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := pipeline.Mode(mode)
			ext := ".prn"
			switch m {
			case pipeline.ModeRender:
			case pipeline.ModePreview:
				ext = ".pdf"
			default:
				return fmt.Errorf("unknown mode %q (render or preview)", mode)
			}
			data, err := loadData(dataFile, "")
			if err != nil {
				return err
			}

			reqs := make([]pipeline.Request, len(args))
			for i, path := range args {
				source, err := readInput(cmd, path)
				if err != nil {
					return err
				}
				reqs[i] = pipeline.Request{Format: pipeline.FormatFromPath(path), Source: source, Data: data, Page: page}
			}

			results, err := a.engine.Batch(cmd.Context(), reqs, m)
			if err != nil {
				return err
			}
			log := observability.GetLogger()
			failed := 0
			for i, res := range results {
				name := strings.TrimSuffix(filepath.Base(args[i]), filepath.Ext(args[i])) + ext
				if res.Err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", args[i], res.Err)
					continue
				}
				target := filepath.Join(outDir, name)
				if err := writeOutput(cmd, target, res.Bytes); err != nil {
					return err
				}
				log.Info("已写入", zap.String("job_id", res.ID), zap.String("output", target), zap.Int("pages", res.Pages), zap.Duration("elapsed", res.Elapsed))
				fmt.Fprintln(cmd.OutOrStdout(), target)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out-dir", "O", ".", "output directory")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(pipeline.ModeRender), "render or preview")
	cmd.Flags().StringVarP(&dataFile, "data", "d", "", "JSON or YAML file bound to every document")
	cmd.Flags().StringVarP(&page, "page", "p", "", "paper override for every document")
	return cmd
}
