package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexesCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the store and key-vault indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.store.EnsureIndexes(ctx); err != nil {
				return err
			}
			if err := app.vault.EnsureIndexes(ctx); err != nil {
				return err
			}
			fmt.Println("indexes ensured")
			return nil
		},
	}
}
