package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mmynk/cartsaver/internal/models"
	"github.com/mmynk/cartsaver/internal/storage/sqlite"
	"github.com/mmynk/cartsaver/pkg/api"
)

func newOptimizeCmd(opts *rootOptions) *cobra.Command {
	var (
		accept bool
		lat    float64
		lng    float64
	)

	cmd := &cobra.Command{
		Use:   "optimize <list.yaml>",
		Short: "Start an optimization session for a list and print the plan",
		Long: `Start an optimization session for the list in the given YAML file.

Items are read from the item store when the file names a seeded list_id,
otherwise the file's items are sent inline. --lat/--lng override the file's
location. With --accept a viable plan is applied immediately.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lf, err := readListFile(args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
				lf.Location = &models.Location{Latitude: lat, Longitude: lng}
			}
			if lf.Location == nil {
				return fmt.Errorf("a location is required (set it in the file or pass --lat/--lng)")
			}

			items := lf.Items
			fromStore := false
			if lf.ListID != "" {
				stored, err := loadList(cmd, opts.dbPath, lf.ListID)
				if err != nil {
					return err
				}
				if len(stored) > 0 {
					items = stored
					fromStore = true
				}
			}
			if !fromStore {
				for i := range items {
					if items[i].ID == "" {
						items[i].ID = uuid.New().String()
					}
				}
			}
			constraints, err := resolveConstraints(lf.Constraints, items)
			if err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd.Context())
			defer cancel()
			client := opts.client()

			req := connect.NewRequest(&api.StartSessionRequest{
				Location:    lf.Location,
				Constraints: constraints,
			})
			if fromStore {
				req.Msg.ListID = lf.ListID
			} else {
				req.Msg.Items = items
			}
			opts.authorize(req)

			resp, err := client.StartSession(ctx, req)
			if err != nil {
				return rpcError("StartSession", err)
			}
			out := cmd.OutOrStdout()
			printSession(out, resp.Msg)

			if !accept || resp.Msg.Outcome != "plan" {
				return nil
			}

			acceptReq := connect.NewRequest(&api.AcceptPlanRequest{SessionID: resp.Msg.SessionID})
			opts.authorize(acceptReq)
			accepted, err := client.AcceptPlan(ctx, acceptReq)
			if err != nil {
				return rpcError("AcceptPlan", err)
			}
			fmt.Fprintf(out, "\nApplied %d items", len(accepted.Msg.AppliedItems))
			if n := len(accepted.Msg.FailedItems); n > 0 {
				fmt.Fprintf(out, ", %d failed", n)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&accept, "accept", false, "Apply the plan when one is produced")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Shopper latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Shopper longitude")
	return cmd
}

func loadList(cmd *cobra.Command, dbPath, listID string) ([]models.ShoppingItem, error) {
	store, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open item store: %w", err)
	}
	defer store.Close()

	stored, err := store.ListItems(cmd.Context(), listID)
	if err != nil {
		return nil, fmt.Errorf("failed to load list %s: %w", listID, err)
	}
	items := make([]models.ShoppingItem, len(stored))
	for i, item := range stored {
		items[i] = *item
	}
	return items, nil
}

func printSession(w io.Writer, s *api.SessionResponse) {
	fmt.Fprintf(w, "Session %s (%s)\n", s.SessionID, s.State)
	for _, warning := range s.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}

	if s.Outcome != "plan" {
		fmt.Fprintf(w, "No viable plan: potential savings $%.2f\n", s.TotalPotentialSavings)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, g := range s.OptimizedGroups {
		fmt.Fprintf(tw, "\n%s\t%s\tsaves $%.2f\n", g.StoreName, g.TravelDistance, g.TotalSavings)
		for _, item := range g.Items {
			note := ""
			if item.Locked {
				note = "locked"
			}
			fmt.Fprintf(tw, "  %s\t$%.2f\t$%.2f\t%s\n", item.ItemID, item.OptimizedPrice, item.Savings, note)
		}
	}
	tw.Flush()
	fmt.Fprintf(w, "\nTotal potential savings: $%.2f\n", s.TotalPotentialSavings)
}
