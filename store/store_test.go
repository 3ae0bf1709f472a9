package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/safwentrabelsi/delegate-notifier/types"
	"github.com/stretchr/testify/assert"
)

const selectColumns = "SELECT id, created_at, topic, endpoint_host, platform, transaction_id, status, error"

var columns = []string{"id", "created_at", "topic", "endpoint_host", "platform", "transaction_id", "status", "error"}

func TestSaveDelivery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	store := &PostgresStore{db: db}
	ctx := context.Background()
	d := types.Delivery{
		ID:            "6f1c1c3e-7d0b-4b3a-9f25-0a4a3c1e0f11",
		CreatedAt:     time.Now(),
		Topic:         types.TopicVoteCast,
		EndpointHost:  "discord.com",
		Platform:      "discord",
		TransactionID: "tx1",
		Status:        types.DeliverySent,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO deliveries (id, created_at, topic, endpoint_host, platform, transaction_id, status, error) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)")).
		WithArgs(d.ID, d.CreatedAt, "vote-cast", d.EndpointHost, d.Platform, d.TransactionID, d.Status, "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.SaveDelivery(ctx, d)
	assert.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO deliveries")).WillReturnError(sql.ErrConnDone)
	err = store.SaveDelivery(ctx, d)
	assert.ErrorIs(t, err, sql.ErrConnDone)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestGetDeliveries(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	store := &PostgresStore{db: db}
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery("(?s)"+regexp.QuoteMeta(selectColumns)+".*WHERE topic = \\$1.*LIMIT \\$2").
		WithArgs("vote-cast", 10).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("id1", now, "vote-cast", "discord.com", "discord", "tx1", "sent", ""))

	deliveries, err := store.GetDeliveries(ctx, types.TopicVoteCast, 10)
	assert.NoError(t, err)
	assert.Len(t, deliveries, 1, "Expected one delivery for vote-cast")
	assert.Equal(t, types.TopicVoteCast, deliveries[0].Topic)

	mock.ExpectQuery("(?s)" + regexp.QuoteMeta(selectColumns) + ".*ORDER BY created_at DESC.*LIMIT \\$1").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("id2", now, "transaction-applied", "hooks.slack.com", "slack", "tx2", "failed", "delivery failed").
			AddRow("id3", now.Add(-time.Minute), "vote-withdrawn", "example.com", "fallback", "tx3", "sent", ""))

	all, err := store.GetDeliveries(ctx, "", 50)
	assert.NoError(t, err)
	assert.Len(t, all, 2, "Expected two deliveries for all topics")

	mock.ExpectQuery(regexp.QuoteMeta(selectColumns)).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(columns))

	empty, err := store.GetDeliveries(ctx, "", 50)
	assert.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	mock.ExpectQuery(regexp.QuoteMeta(selectColumns)).
		WithArgs(50).
		WillReturnError(sql.ErrConnDone)

	_, err = store.GetDeliveries(ctx, "", 50)
	assert.Error(t, err)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
