package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/topmover/backend/internal/api"
	"github.com/wonny/topmover/backend/internal/api/handlers"
	"github.com/wonny/topmover/backend/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the read-side API server",
	Long: `Serves the most recent daily winners.

Endpoints:
  GET     /movers   - latest 7 winners, newest first
  OPTIONS /movers   - CORS preflight
  GET     /health   - health check
  GET     /metrics  - Prometheus metrics (METRICS_ENABLED)

Example:
  go run ./cmd/movers api
  go run ./cmd/movers api --port 8081`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "override PORT")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	cache := redis.NewCache(a.redis, keyPrefix)
	moversHandler := handlers.NewMoversHandler(a.winnerStore(), cache, a.cfg.Store.PartitionKey, a.log.Module("api"))
	router := api.NewRouter(moversHandler, a.log, api.RouterOptions{Metrics: a.cfg.MetricsEnabled})
	server := api.New(a.cfg, a.log, router)

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "Server running on http://localhost:%s (Ctrl+C to stop)\n", a.cfg.Port)
	return server.Run(ctx)
}
