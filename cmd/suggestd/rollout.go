package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/marloweh/suggestd/internal/common"
	"github.com/marloweh/suggestd/internal/model"
)

func rolloutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollout",
		Short: "Inspect or change rollout configuration",
	}
	cmd.AddCommand(rolloutSetCmd())
	cmd.AddCommand(rolloutShowCmd())
	return cmd
}

// rolloutSetCmd writes rollout settings to the config file. A running
// server watching that file applies the change; the write plus the apply
// log form the audit trail for ramp changes (0 -> 10 -> 50 -> 100, or a
// rollback to 0).
func rolloutSetCmd() *cobra.Command {
	var (
		mode          string
		canaryPct     int
		shadow        bool
		minConfidence float64
		topK          int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Write new rollout settings to the config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile == "" {
				return fmt.Errorf("%w: rollout set requires --config pointing at the server's config file", common.ErrMissingConfig)
			}

			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}

			if cmd.Flags().Changed("mode") {
				viper.Set("mode", mode)
			}
			if cmd.Flags().Changed("canary-pct") {
				viper.Set("canary_pct", canaryPct)
			}
			if cmd.Flags().Changed("shadow") {
				viper.Set("shadow", shadow)
			}
			if cmd.Flags().Changed("min-confidence") {
				viper.Set("min_confidence", minConfidence)
			}
			if cmd.Flags().Changed("top-k") {
				viper.Set("top_k", topK)
			}

			next := model.RolloutConfig{
				Mode:          model.RolloutMode(viper.GetString("mode")),
				CanaryPct:     viper.GetInt("canary_pct"),
				Shadow:        viper.GetBool("shadow"),
				MinConfidence: viper.GetFloat64("min_confidence"),
				TopK:          viper.GetInt("top_k"),
			}
			if err := next.Validate(); err != nil {
				return err
			}

			if err := viper.WriteConfigAs(cfgFile); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			cmd.Printf("Rollout config updated: mode=%s canary_pct=%d shadow=%v min_confidence=%.2f top_k=%d\n",
				next.Mode, next.CanaryPct, next.Shadow, next.MinConfidence, next.TopK)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "rollout mode (heuristic, model, auto)")
	cmd.Flags().IntVar(&canaryPct, "canary-pct", 0, "canary percentage 0-100")
	cmd.Flags().BoolVar(&shadow, "shadow", false, "run scorer in shadow")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "model serve gate")
	cmd.Flags().IntVar(&topK, "top-k", 0, "max candidates returned")

	return cmd
}

func rolloutShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the rollout settings in the config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile == "" {
				return fmt.Errorf("%w: rollout show requires --config", common.ErrMissingConfig)
			}

			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}

			cmd.Printf("mode=%s canary_pct=%d shadow=%v min_confidence=%.2f top_k=%d\n",
				viper.GetString("mode"),
				viper.GetInt("canary_pct"),
				viper.GetBool("shadow"),
				viper.GetFloat64("min_confidence"),
				viper.GetInt("top_k"))
			return nil
		},
	}
}
