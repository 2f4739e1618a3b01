package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jdibridge/bridge/pkg/audit"
	"github.com/jdibridge/bridge/pkg/config"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("jdibridge_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	client, err := NewClient(ctx, config.AuditDB{
		Enabled:         true,
		Host:            host,
		Port:            port.Int(),
		User:            "test",
		Password:        "test",
		Name:            "jdibridge_test",
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewClientAppliesMigrations(t *testing.T) {
	client := newTestClient(t)
	var count int
	err := client.DB().QueryRow(`SELECT count(*) FROM audit_records`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSinkRecordPersistsRow(t *testing.T) {
	client := newTestClient(t)
	sink := NewSink(client)

	rec := audit.Record{
		RequestKind: "breakpoint",
		RequestID:   "abc-123",
		NaturalKey:  "Foo.java:10",
		Transition:  audit.TransitionCreated,
		OccurredAt:  time.Now().UTC(),
	}
	require.NoError(t, sink.Record(context.Background(), rec))

	var kind, id string
	err := client.DB().QueryRow(`SELECT request_kind, request_id FROM audit_records WHERE request_id = $1`, rec.RequestID).
		Scan(&kind, &id)
	require.NoError(t, err)
	assert.Equal(t, "breakpoint", kind)
	assert.Equal(t, "abc-123", id)
}

func TestHealthReportsHealthyForLiveConnection(t *testing.T) {
	client := newTestClient(t)
	status, err := Health(context.Background(), client.DB())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
}
