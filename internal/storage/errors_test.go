package storage

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, wrap("op", nil))
	assert.Equal(t, ErrNotFound, wrap("op", gorm.ErrRecordNotFound))
	assert.ErrorIs(t, wrap("op", gorm.ErrDuplicatedKey), ErrConflict)
	assert.ErrorIs(t, wrap("op", &pgconn.PgError{Code: pgUniqueViolation}), ErrConflict)

	missing := wrap("list messages", &pgconn.PgError{Code: pgUndefinedTable, Message: `relation "team_messages" does not exist`})
	assert.ErrorIs(t, missing, ErrStorage)
	assert.True(t, IsMissingTable(missing))
	assert.Contains(t, missing.Error(), "table missing")

	down := wrap("create message", errors.New("connection refused"))
	assert.ErrorIs(t, down, ErrStorage)
	assert.False(t, IsMissingTable(down))
	assert.Equal(t, "storage: create message: connection refused", down.Error())
}
