package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowkeeper/pkg/config"
	"github.com/matzehuels/flowkeeper/pkg/errors"
)

// storeCommand creates the storage management command.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect and clean the project store",
	}

	cmd.AddCommand(c.storePathCommand())
	cmd.AddCommand(c.storeRemoveCommand())

	return cmd
}

// storePathCommand creates the "store path" subcommand.
func (c *CLI) storePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where projects are stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := c.Config.Storage
			switch st.Backend {
			case config.BackendFile:
				fmt.Fprintln(cmd.OutOrStdout(), st.File.Dir)
			case config.BackendBadger:
				if st.Badger.InMemory {
					fmt.Fprintln(cmd.OutOrStdout(), "badger (in memory)")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), st.Badger.Path)
				}
			case config.BackendRedis:
				fmt.Fprintln(cmd.OutOrStdout(), "redis://"+st.Redis.Addr)
			case config.BackendMongo:
				fmt.Fprintln(cmd.OutOrStdout(), st.Mongo.URI)
			case config.BackendPostgres:
				fmt.Fprintln(cmd.OutOrStdout(), "postgres table "+st.Postgres.Table)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), st.Backend)
			}
			return nil
		},
	}
}

// storeRemoveCommand creates the "store rm" subcommand.
func (c *CLI) storeRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm",
		Aliases: []string{"clear"},
		Short:   "Delete the project record and its layout record",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := errors.ValidateProjectID(c.project); err != nil {
				return err
			}
			store, err := openStore(ctx, c.Config.Storage)
			if err != nil {
				return err
			}
			defer store.Close()

			keyer := c.keyer()
			for _, key := range []string{keyer.ProjectKey(c.project), keyer.LayoutKey(c.project)} {
				if err := store.Delete(ctx, key); err != nil {
					return errors.Wrap(errors.ErrCodeStorage, err, "delete %s", key)
				}
			}

			printSuccess("Removed project %s", c.project)
			printDetail("Backend: %s", c.Config.Storage.Backend)
			return nil
		},
	}
}
