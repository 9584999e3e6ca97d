package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yatube/config"
)

func TestSqliteDSN(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "yatube.db?_foreign_keys=1"},
		{"blog.db", "blog.db?_foreign_keys=1"},
		{":memory:", ":memory:?_foreign_keys=1"},
		{"file:blog.db?cache=shared", "file:blog.db?cache=shared&_foreign_keys=1"},
		{"blog.db?_fk=1", "blog.db?_fk=1"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sqliteDSN(tt.input))
		})
	}
}

func TestConnectDb_ForeignKeysEnabled(t *testing.T) {
	db, err := ConnectDb(&config.Config{DBDriver: "sqlite", DatabaseDSN: ":memory:"}, zap.NewNop())
	require.NoError(t, err)

	var enabled int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&enabled).Error)
	assert.Equal(t, 1, enabled)
}

func TestConnectDb_UnknownDriver(t *testing.T) {
	_, err := ConnectDb(&config.Config{DBDriver: "oracle"}, zap.NewNop())
	assert.Error(t, err)
}
