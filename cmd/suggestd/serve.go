package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/marloweh/suggestd/internal/api"
	"github.com/marloweh/suggestd/internal/common"
	"github.com/marloweh/suggestd/internal/config"
	"github.com/marloweh/suggestd/internal/engine"
	"github.com/marloweh/suggestd/internal/heuristic"
	"github.com/marloweh/suggestd/internal/ledger"
	"github.com/marloweh/suggestd/internal/memory"
	"github.com/marloweh/suggestd/internal/metrics"
	"github.com/marloweh/suggestd/internal/model"
	"github.com/marloweh/suggestd/internal/rollout"
	"github.com/marloweh/suggestd/internal/rules"
	"github.com/marloweh/suggestd/internal/scorer"
	"github.com/marloweh/suggestd/internal/storage"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the suggestion HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if !cfg.Enabled {
		return common.NewUserError("suggestion engine is disabled, set SUGGEST_ENABLED=true to serve", nil)
	}

	// Opening can hit a transient lock when another process (a migrate
	// invocation, a previous instance shutting down) still holds the file.
	var store *storage.SQLiteStorage
	err = common.WithRetry(ctx, func() error {
		s, serr := storage.NewSQLiteStorage(cfg.DatabasePath)
		if serr != nil {
			return serr
		}
		store = s
		return nil
	}, common.RetryOptions{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond})
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate storage: %w", err)
	}

	ctrl, err := rollout.New(cfg.Rollout())
	if err != nil {
		return err
	}
	if cfgFile != "" {
		config.Watch(func(rc model.RolloutConfig) {
			if err := ctrl.Apply(rc); err != nil {
				slog.Error("Failed to apply rollout config change", "error", err)
			}
		})
	}

	var sc scorer.Scorer = scorer.Noop{}
	if cfg.ModelPath != "" {
		var artifact *scorer.ArtifactScorer
		err := common.WithRetry(ctx, func() error {
			a, lerr := scorer.LoadArtifact(cfg.ModelPath)
			if lerr != nil {
				return lerr
			}
			artifact = a
			return nil
		}, common.RetryOptions{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond})
		if err != nil {
			// Best available suggestion, not model-or-nothing: serve rule
			// and heuristic candidates while the model is unavailable.
			slog.Error("Model artifact unavailable, serving without scorer",
				"path", cfg.ModelPath, "error", err)
		} else {
			sc = artifact
			slog.Info("Loaded model artifact", "version", artifact.Version())
		}
	}

	ruleList, err := store.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	slog.Info("Loaded rules", "count", len(ruleList))

	m := metrics.New()
	cache := memory.New(store, cfg.CacheTTL, m)
	tracker := ledger.New(store, store, m)

	// Expired merchant-memory rows already read as misses; pruning just
	// keeps the table from growing without bound.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed, err := cache.Prune(ctx); err != nil {
					slog.Warn("Merchant memory prune failed", "error", err)
				} else if removed > 0 {
					slog.Info("Pruned merchant memory", "removed", removed)
				}
			}
		}
	}()

	eng := engine.New(
		rules.NewMatcher(ruleList, store),
		heuristic.New(store),
		sc,
		ctrl,
		cache,
		tracker,
		m,
	)

	server, err := api.NewServer(eng, tracker, store, ctrl, sc.Version, api.Config{
		Host: cfg.HTTPHost,
		Port: cfg.HTTPPort,
	})
	if err != nil {
		return err
	}

	return server.Start(ctx)
}
