package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowkeeper/internal/api"
	"github.com/matzehuels/flowkeeper/pkg/session"
)

// serveCommand creates the "serve" command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve projects over HTTP and websockets",
		Long: `Start the HTTP API. Each project is opened once and kept in memory; changes are
written to the store after a short quiet period and on shutdown.

Drop-to-group prompts are answered per request with the "attach" field of a
change batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.Config.Server
			if addr != "" {
				cfg.Addr = addr
			}

			store, err := openStore(ctx, c.Config.Storage)
			if err != nil {
				return err
			}
			defer store.Close()

			opts := c.sessionOptions(false, nil)
			opts.Logger = c.Logger.WithPrefix("session")
			manager := session.NewManager(store, opts)

			srv := api.New(manager, cfg, c.Logger.WithPrefix("api"))
			printInfo("Serving on %s", StyleLink.Render("http://"+cfg.Addr))
			printDetail("Storage: %s", c.Config.Storage.Backend)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
