package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/marloweh/suggestd/internal/api"
)

// statusCmd queries a running server's /ml/status endpoint, so operators
// can confirm what rollout settings the server actually applied (as
// opposed to what the config file says).
func statusCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the rollout status of a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := &http.Client{Timeout: 5 * time.Second}

			resp, err := client.Get(fmt.Sprintf("http://%s/ml/status", addr))
			if err != nil {
				return fmt.Errorf("failed to reach server at %s: %w", addr, err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server returned %s", resp.Status)
			}

			var status api.StatusResponse
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return fmt.Errorf("failed to decode status response: %w", err)
			}

			cmd.Printf("mode:            %s\n", status.Mode)
			cmd.Printf("model_version:   %s\n", status.ModelVersion)
			cmd.Printf("feature_schema:  %s\n", status.FeatureSchema)
			cmd.Printf("canary_pct:      %d\n", status.CanaryPct)
			cmd.Printf("shadow:          %v\n", status.Shadow)
			cmd.Printf("min_confidence:  %.2f\n", status.MinConfidence)
			cmd.Printf("top_k:           %d\n", status.TopK)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8900", "server address (host:port)")

	return cmd
}
