// caresbot is a customer support agent for an electronics retailer: an
// LLM orchestration loop over policy-governed tools, SQLite for orders and
// policy knowledge, and a small HTTP chat surface.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/caresbot/caresbot/internal/agent"
	"github.com/caresbot/caresbot/internal/config"
	"github.com/caresbot/caresbot/internal/eligibility"
	"github.com/caresbot/caresbot/internal/openrouter"
	"github.com/caresbot/caresbot/internal/policy"
	"github.com/caresbot/caresbot/internal/server"
	"github.com/caresbot/caresbot/internal/session"
	"github.com/caresbot/caresbot/internal/store"
	"github.com/caresbot/caresbot/internal/tools"
	"github.com/caresbot/caresbot/internal/tools/knowledge"
	"github.com/caresbot/caresbot/internal/tools/orders"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Optional .env for local development; real deployments set env vars.
	if err := godotenv.Load(); err == nil {
		log.Printf("[MAIN] loaded .env")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	logStore := store.NewLogStore(db)

	if cfg.SeedDemoData {
		if err := db.SeedDemoData(ctx); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}

	rules := policy.DefaultRules()
	if cfg.PolicyRulesPath != "" {
		rules, err = policy.LoadRules(cfg.PolicyRulesPath)
		if err != nil {
			return fmt.Errorf("loading policy rules: %w", err)
		}
	}
	engine := policy.NewEngine(rules)

	client := openrouter.NewClient(cfg.OpenRouterAPIKey, cfg.Model, cfg.EmbeddingModel)

	retriever := knowledge.NewRetriever(db, client)
	if cfg.PolicyDocsPath != "" {
		if err := retriever.Seed(ctx, cfg.PolicyDocsPath); err != nil {
			log.Printf("[MAIN] policy seeding failed, retrieval may be empty: %v", err)
			_ = logStore.LogWarn(ctx, "main", fmt.Sprintf("policy seeding failed: %v", err))
		}
	}

	ordersBackend := orders.NewBackend(db, engine)
	checker := eligibility.NewChecker(ordersBackend, retriever, cfg.RetrieveK)

	registry := tools.NewRegistry(cfg.ToolTimeout)
	if err := ordersBackend.Register(registry); err != nil {
		return fmt.Errorf("registering order tools: %w", err)
	}
	if err := retriever.Register(registry, cfg.RetrieveK); err != nil {
		return fmt.Errorf("registering knowledge tools: %w", err)
	}
	if err := checker.Register(registry); err != nil {
		return fmt.Errorf("registering eligibility tool: %w", err)
	}
	registry.Seal()

	sessions, err := session.NewStore(cfg.SessionMaxEntries, cfg.SessionIdleTTL)
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}

	loop := agent.NewLoop(cfg, client, registry, sessions, engine, db, logStore)
	srv := server.New(cfg.Addr, loop)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		sessions.Janitor(gctx, cfg.SessionIdleTTL/4)
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(6 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := logStore.Cleanup(gctx); err != nil {
					log.Printf("[MAIN] log cleanup: %v", err)
				}
			}
		}
	})

	log.Printf("[MAIN] caresbot ready: model=%s tools=%d", cfg.Model, len(registry.Definitions()))
	return g.Wait()
}
