package migration

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSourcePath(t *testing.T) {
	assert.Equal(t, "migrations/postgres", SourcePath("migrations", "postgres"))
	assert.Equal(t, "/app/migrations/mysql", SourcePath("/app/migrations", "mysql"))
}

func TestNew_UnsupportedDialect(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = New(db, "sqlite", "migrations", zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
	assert.Contains(t, err.Error(), "sqlite")
}
