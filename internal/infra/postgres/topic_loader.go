package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-room-service/internal/domain"
)

// TopicLoader loads question-bank JSONB from Postgres.
type TopicLoader struct {
	pool *pgxpool.Pool
}

func NewTopicLoader(pool *pgxpool.Pool) *TopicLoader {
	return &TopicLoader{pool: pool}
}

func (l *TopicLoader) LoadBank(ctx context.Context, topic string) (domain.TopicBank, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM topics WHERE topic=$1`, topic).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TopicBank{}, domain.ErrTopicNotFound
	}
	if err != nil {
		return domain.TopicBank{}, fmt.Errorf("load topic bank: %w", err)
	}
	var bank domain.TopicBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return domain.TopicBank{}, fmt.Errorf("unmarshal topic bank: %w", err)
	}
	return bank, nil
}
