package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/cartsaver/pkg/api"
)

func newRunsCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded optimization runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			req := connect.NewRequest(&api.ListRunsRequest{Limit: limit})
			opts.authorize(req)
			resp, err := opts.client().ListRuns(ctx, req)
			if err != nil {
				return rpcError("ListRuns", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SESSION\tSTATE\tOUTCOME\tSAVINGS\tAPPLIED\tUPDATED")
			for _, r := range resp.Msg.Runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t$%.2f\t%d\t%s\n",
					r.ID, r.State, r.Outcome, r.TotalPotentialSavings, r.AppliedItems,
					time.Unix(r.UpdatedAt, 0).Format(time.RFC3339),
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}
