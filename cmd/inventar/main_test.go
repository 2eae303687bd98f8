package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

func TestFlagsOverrideConfig(t *testing.T) {
	t.Setenv("INVENTAR_ADDR", ":9000")
	t.Setenv("INVENTAR_DB", "from-env.sqlite3")

	flags := newFlagSet("serve", serveHelp)
	flags.stringKey("addr", "a", "addr")
	require.NoError(t, flags.parse([]string{"-d", "from-flag.sqlite3"}))

	cfg, _, closeLog, err := flags.load()
	require.NoError(t, err)
	defer closeLog()

	assert.Equal(t, "from-flag.sqlite3", cfg.DB)
	assert.Equal(t, ":9000", cfg.Addr, "unset flags keep the environment value")
}

func TestInitDatabaseCreatesAdmin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventar.sqlite3")
	ctx := context.Background()

	database, password, err := initDatabase(ctx, path, "root@example.com", "Root")
	require.NoError(t, err)
	defer database.Close()
	assert.Len(t, password, 16)

	admin, err := store.GetUserByEmail(ctx, database, "root@example.com")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.NoError(t, auth.CheckPassword(admin.PasswordHash, password))
}

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(24)
	require.NoError(t, err)
	b, err := generatePassword(24)
	require.NoError(t, err)
	assert.Len(t, a, 24)
	assert.NotEqual(t, a, b)
}
