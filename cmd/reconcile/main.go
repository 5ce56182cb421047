// Reconciliation report runner. Intended for cron; exits non-zero when the
// ledger needs attention so the scheduler can alert on it.
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"secmomo/internal/reconcile"
	"secmomo/internal/store/postgres"
	"secmomo/pkg/config"
	"secmomo/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("ledger-reconcile")

	cfg := config.Load()
	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	st := postgres.New(db, cfg.Ledger.MaxAgentBalance)
	svc := reconcile.NewService(st, cfg.Ledger.MaxAgentBalance, cfg.Ledger.PendingReconcileAge, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := svc.Run(ctx)
	if err != nil {
		log.Fatal("Reconciliation failed", map[string]interface{}{"error": err.Error()})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatal("Failed to write report", map[string]interface{}{"error": err.Error()})
	}

	if !report.Clean() {
		os.Exit(1)
	}
}
