package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmynk/cartsaver/internal/storage/sqlite"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <list.yaml>",
		Short: "Load a YAML shopping list into the item store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lf, err := readListFile(args[0])
			if err != nil {
				return err
			}
			if lf.ListID == "" {
				return fmt.Errorf("list file must set list_id")
			}

			store, err := sqlite.New(opts.dbPath)
			if err != nil {
				return fmt.Errorf("failed to open item store: %w", err)
			}
			defer store.Close()

			for i := range lf.Items {
				if err := store.CreateItem(cmd.Context(), &lf.Items[i]); err != nil {
					return fmt.Errorf("failed to create item %q: %w", lf.Items[i].Name, err)
				}
				slog.Debug("Seeded item", "item_id", lf.Items[i].ID, "name", lf.Items[i].Name)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d items into list %s\n", len(lf.Items), lf.ListID)
			return nil
		},
	}
}
