// Command cartctl seeds shopping lists and drives optimization sessions
// against a running cartsaver server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/cartsaver/pkg/api"
	"github.com/mmynk/cartsaver/pkg/logging"
)

type rootOptions struct {
	serverURL string
	dbPath    string
	token     string
	logLevel  string
	timeout   time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "cartctl",
		Short: "Seed shopping lists and run cart optimizations",
		Long: `cartctl talks to a cartsaver server and its SQLite item store.

Available subcommands:
  seed     - Load items from a YAML list file into the item store
  optimize - Start an optimization session and print the plan
  runs     - List recorded optimization runs
  token    - Mint a bearer token for a user (needs JWT_SECRET)`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(opts.logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.serverURL, "server", envOr("CARTSAVER_URL", "http://localhost:8080"), "cartsaver server URL")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", envOr("DB_PATH", "./data/cartsaver.db"), "SQLite database path")
	cmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("CARTSAVER_TOKEN"), "Bearer token sent with RPCs")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "RPC timeout")

	cmd.AddCommand(
		newSeedCmd(opts),
		newOptimizeCmd(opts),
		newRunsCmd(opts),
		newTokenCmd(),
	)
	return cmd
}

func (o *rootOptions) client() api.OptimizerServiceClient {
	return api.NewOptimizerServiceClient(http.DefaultClient, o.serverURL)
}

// authorize attaches the bearer token, if any, to an outgoing request.
func (o *rootOptions) authorize(req interface{ Header() http.Header }) {
	if o.token != "" {
		req.Header().Set("Authorization", "Bearer "+o.token)
	}
}

func (o *rootOptions) context(parent context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, o.timeout)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func rpcError(op string, err error) error {
	if code := connect.CodeOf(err); code != connect.CodeUnknown {
		return fmt.Errorf("%s failed (%s): %w", op, code, err)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}
