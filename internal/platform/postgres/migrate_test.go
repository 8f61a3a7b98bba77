package postgres

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	content, err := fs.ReadFile(migrationsFS, migrationsDir+"/00001_create_events.sql")
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- +goose Up")
	assert.Contains(t, string(content), "-- +goose Down")
	assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS events")
}

func TestMigrate_UnknownCommand(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	err := Migrate(context.Background(), nil, "sideways", logger)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migration command: sideways")
}

func TestSlogGooseLogger(t *testing.T) {
	var buf bytes.Buffer
	l := &slogGooseLogger{logger: slog.New(slog.NewTextHandler(&buf, nil))}

	assert.NotPanics(t, func() {
		l.Printf("applied %d migrations\n", 1)
		l.Fatalf("failed %s", "badly")
	})

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "applied 1 migrations")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "failed badly")
}
