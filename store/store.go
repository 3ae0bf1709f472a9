package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/safwentrabelsi/delegate-notifier/config"
	"github.com/safwentrabelsi/delegate-notifier/types"
)

type PostgresStore struct {
	db *sql.DB
}

type Storer interface {
	SaveDelivery(ctx context.Context, d types.Delivery) error
	GetDeliveries(ctx context.Context, topic types.Topic, limit int) ([]types.Delivery, error)
}

// NewPostgresStore creates a new instance of PostgresStore
func NewPostgresStore(cfg *config.DBConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.GetPostgresqlDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &PostgresStore{
		db: db,
	}

	if err := store.init(); err != nil {
		return nil, err
	}

	return store, nil
}

// init is called to initialize necessary tables in the database
func (s *PostgresStore) init() error {
	return s.createDeliveryTable()
}

func (s *PostgresStore) createDeliveryTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS deliveries (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			topic TEXT NOT NULL,
			endpoint_host TEXT NOT NULL,
			platform TEXT NOT NULL,
			transaction_id TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS deliveries_topic_created_at_idx ON deliveries (topic, created_at DESC);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create deliveries table: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveDelivery(ctx context.Context, d types.Delivery) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (id, created_at, topic, endpoint_host, platform, transaction_id, status, error) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.CreatedAt, string(d.Topic), d.EndpointHost, d.Platform, d.TransactionID, d.Status, d.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save delivery: %w", err)
	}
	return nil
}

// GetDeliveries returns the newest deliveries first, optionally filtered by topic.
func (s *PostgresStore) GetDeliveries(ctx context.Context, topic types.Topic, limit int) ([]types.Delivery, error) {
	var rows *sql.Rows
	var err error

	if topic != "" {
		query := `
			SELECT id, created_at, topic, endpoint_host, platform, transaction_id, status, error
			FROM deliveries
			WHERE topic = $1
			ORDER BY created_at DESC
			LIMIT $2
		`
		rows, err = s.db.QueryContext(ctx, query, string(topic), limit)
	} else {
		query := `
			SELECT id, created_at, topic, endpoint_host, platform, transaction_id, status, error
			FROM deliveries
			ORDER BY created_at DESC
			LIMIT $1
		`
		rows, err = s.db.QueryContext(ctx, query, limit)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deliveries := []types.Delivery{}
	for rows.Next() {
		var d types.Delivery
		var topic string
		if err := rows.Scan(&d.ID, &d.CreatedAt, &topic, &d.EndpointHost, &d.Platform, &d.TransactionID, &d.Status, &d.Error); err != nil {
			return nil, err
		}
		d.Topic = types.Topic(topic)
		deliveries = append(deliveries, d)
	}

	return deliveries, rows.Err()
}
