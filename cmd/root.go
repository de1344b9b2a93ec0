// Package cmd implements the stylus command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ByLCY/stylus/config"
	"github.com/ByLCY/stylus/observability"
	"github.com/ByLCY/stylus/pipeline"
)

// app 是一次命令执行共享的状态，由 PersistentPreRunE 填充。
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	engine  *pipeline.Engine
}

// NewRootCmd 创建完整的命令树。每次调用都使用独立的 viper 实例。
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:           "stylus",
		Short:         "stylus renders declarative documents to ESC/P printer commands.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./stylus.yaml or ~/.stylus/stylus.yaml)")
	flags.Int("dpi", 0, "device resolution: 60, 120, 180 or 360 (overrides config/env)")
	flags.String("log-level", "", "log level (overrides config/env)")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newRenderCmd(a),
		newPreviewCmd(a),
		newInspectCmd(a),
		newBatchCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

// initialize 绑定命令行参数、加载配置并初始化日志与 Engine。
func (a *app) initialize(cmd *cobra.Command) error {
	for key, name := range map[string]string{
		"device.dpi":   "dpi",
		"logger.level": "log-level",
		"server.addr":  "addr",
	} {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if err := a.v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "stylus"})
		return err
	}
	a.cfg = cfg
	observability.InitializeLogger(cfg.Logger)
	a.engine = pipeline.New(cfg, pipeline.WithLogger(observability.GetLogger()))
	observability.GetLogger().Debug("配置已加载",
		zap.String("version", Version),
		zap.String("config", a.v.ConfigFileUsed()),
		zap.Int("dpi", cfg.Device.DPI),
	)
	return nil
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	observability.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
