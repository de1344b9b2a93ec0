package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ByLCY/stylus/observability"
	"github.com/ByLCY/stylus/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := server.New(a.engine, observability.GetLogger(), a.cfg.Server)
			return srv.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	return cmd
}
