// Seeds a handful of agents for local development.
package main

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"secmomo/internal/domain"
	"secmomo/internal/store/postgres"
	"secmomo/pkg/config"
	"secmomo/pkg/errors"
	"secmomo/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("ledger-seed")

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
	ctx := context.Background()
	now := time.Now().UTC()

	seeds := []struct {
		email   string
		number  string
		balance string
	}{
		{"kofi@agents.dev", "+233200000001", "5000.00"},
		{"ama@agents.dev", "+233200000002", "1200.50"},
		{"yaw@agents.dev", "+233200000003", "0.00"},
	}

	for _, s := range seeds {
		agent := &domain.Agent{
			Code:      domain.NewAgentCode(),
			Email:     s.email,
			Number:    s.number,
			Balance:   decimal.RequireFromString(s.balance),
			CreatedAt: now,
			UpdatedAt: now,
		}
		err := st.CreateAgent(ctx, agent)
		if errors.Is(err, errors.ErrAgentAlreadyExists) {
			log.Info("Agent already seeded", map[string]interface{}{"email": s.email})
			continue
		}
		if err != nil {
			log.Fatal("Failed to seed agent", map[string]interface{}{
				"email": s.email,
				"error": err.Error(),
			})
		}
		log.Info("Seeded agent", map[string]interface{}{
			"agent_code": agent.Code,
			"email":      s.email,
			"balance":    s.balance,
		})
	}
}
