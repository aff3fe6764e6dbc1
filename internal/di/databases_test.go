package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/elasticom/internal/config"
	"github.com/aristath/elasticom/internal/database"
)

func TestInitializeDatabases(t *testing.T) {
	// Create temporary directory for test databases
	tmpDir := t.TempDir()

	cfg := &config.Config{
		DataDir: tmpDir,
	}

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container)
	defer container.Close()

	assert.NotNil(t, container.TransactionsDB)
	assert.NotNil(t, container.SimulationsDB)
	assert.Equal(t, database.ProfileLedger, container.TransactionsDB.Profile())
	assert.Equal(t, database.ProfileStandard, container.SimulationsDB.Profile())

	// Verify database files are created
	assert.FileExists(t, filepath.Join(tmpDir, "transactions.db"))
	assert.FileExists(t, filepath.Join(tmpDir, "simulations.db"))
}

func TestInitializeDatabases_InvalidPath(t *testing.T) {
	// A regular file where the data directory should be
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	cfg := &config.Config{
		DataDir: filepath.Join(blocker, "data"),
	}

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, container)
}

func TestInitializeDatabases_SchemaMigration(t *testing.T) {
	cfg := &config.Config{
		DataDir: t.TempDir(),
	}

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	// Basic smoke test; full schema tests are in the database package
	var count int
	err = container.TransactionsDB.Conn().QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = container.SimulationsDB.Conn().QueryRow("SELECT COUNT(*) FROM simulations").Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInitializeDatabases_Reopen(t *testing.T) {
	cfg := &config.Config{
		DataDir: t.TempDir(),
	}

	first, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}
