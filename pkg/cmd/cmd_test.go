package cmd

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/subflow/pkg/persistence/file"
	"github.com/dukex/subflow/pkg/persistence/memory"
	"github.com/dukex/subflow/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParsePersistenceProvider(t *testing.T) {
	tests := map[string]string{
		"":                                 "memory",
		"memory://":                        "memory",
		"file://./data":                    "file",
		"./data":                           "file",
		"postgres://u:p@localhost/subflow": "postgres",
		"postgresql://localhost/subflow":   "postgresql",
		"mongodb://localhost":              "mongodb",
	}

	for url, want := range tests {
		assert.Equal(t, want, parsePersistenceProvider(url), url)
	}
}

func TestNewPersistence(t *testing.T) {
	ctx := context.Background()

	p, err := NewPersistence(ctx, discardLogger(), "memory://")
	require.NoError(t, err)
	assert.IsType(t, &memory.Persistence{}, p)

	p, err = NewPersistence(ctx, discardLogger(), "file://"+t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)

	_, err = NewPersistence(ctx, discardLogger(), "mongodb://localhost")
	require.Error(t, err)
}

func TestNewQueueAndEventBus(t *testing.T) {
	ctx := context.Background()

	q, err := NewQueue(ctx, "gochannel", "", discardLogger(), "subflow-test")
	require.NoError(t, err)
	assert.IsType(t, &queue.WatermillQueue{}, q)
	require.NoError(t, q.Close())

	_, err = NewQueue(ctx, "carrier-pigeon", "", discardLogger(), "subflow-test")
	require.Error(t, err)

	t.Setenv("KAFKA_BROKERS", "")

	_, err = NewQueue(ctx, "kafka", "", discardLogger(), "subflow-test")
	require.Error(t, err)

	bus, err := NewEventBus("gochannel", discardLogger(), "subflow-test")
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	_, err = NewEventBus("carrier-pigeon", discardLogger(), "subflow-test")
	require.Error(t, err)
}
