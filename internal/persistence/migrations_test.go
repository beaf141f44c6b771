package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingExecer struct {
	statements []string
	err        error
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.statements = append(r.statements, sql)
	return pgconn.CommandTag{}, r.err
}

func TestRunMigrations(t *testing.T) {
	db := &recordingExecer{}
	require.NoError(t, RunMigrations(context.Background(), db, zap.NewNop()))
	require.Len(t, db.statements, 1)
	assert.Contains(t, db.statements[0], "CREATE TABLE IF NOT EXISTS console_sessions")
}

func TestRunMigrations_Failure(t *testing.T) {
	db := &recordingExecer{err: errors.New("permission denied")}
	err := RunMigrations(context.Background(), db, zap.NewNop())
	assert.ErrorContains(t, err, "apply migration migrations/0001_console_sessions.sql")
}
