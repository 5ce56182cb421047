package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"secmomo/internal/domain"
	"secmomo/pkg/errors"
)

func (s *Store) CreateAgent(ctx context.Context, agent *domain.Agent) error {
	query := `
		INSERT INTO agents (agent_code, email, number, balance, created_at, updated_at)
		VALUES (:agent_code, :email, :number, :balance, :created_at, :updated_at)
	`
	_, err := s.db.NamedExecContext(ctx, query, agent)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.ErrAgentAlreadyExists
		}
		return errors.Wrap(err, "failed to create agent")
	}
	return nil
}

func (s *Store) FindAgentByCode(ctx context.Context, code string) (*domain.Agent, error) {
	agent := &domain.Agent{}
	query := `SELECT * FROM agents WHERE agent_code = $1`
	err := s.db.GetContext(ctx, agent, query, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAgentNotFound
		}
		return nil, errors.Wrap(err, "failed to find agent by code")
	}
	return agent, nil
}

func (s *Store) AgentsOutsideBounds(ctx context.Context, ceiling decimal.Decimal) ([]*domain.Agent, error) {
	var agents []*domain.Agent
	query := `SELECT * FROM agents WHERE balance < 0 OR balance > $1`
	err := s.db.SelectContext(ctx, &agents, query, ceiling)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan agents outside bounds")
	}
	return agents, nil
}
