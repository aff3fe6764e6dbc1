package scheduler

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aristath/elasticom/internal/database"
	testingpkg "github.com/aristath/elasticom/internal/testing"
)

func TestCheckWALCheckpointsJob_Name(t *testing.T) {
	job := &CheckWALCheckpointsJob{
		log: zerolog.Nop(),
	}
	assert.Equal(t, "check_wal_checkpoints", job.Name())
}

func TestCheckWALCheckpointsJob_Run_NoDatabases(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	job := NewCheckWALCheckpointsJob(nil, nil)
	job.SetLogger(log)

	err := job.Run()
	assert.NoError(t, err) // Should handle nil databases gracefully
}

func TestCheckWALCheckpointsJob_Run_WithDatabases(t *testing.T) {
	transactionsDB, _ := testingpkg.NewTestDB(t, database.NameTransactions)
	simulationsDB, _ := testingpkg.NewTestDB(t, database.NameSimulations)

	job := NewCheckWALCheckpointsJob(transactionsDB, simulationsDB)
	job.SetLogger(zerolog.New(nil).Level(zerolog.Disabled))

	assert.NoError(t, job.Run())
}

func TestCheckWALCheckpointsJob_Run_ClosedDatabaseIsSkipped(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, database.NameSimulations)
	cleanup()

	job := NewCheckWALCheckpointsJob(db)
	job.SetLogger(zerolog.New(nil).Level(zerolog.Disabled))

	assert.NoError(t, job.Run())
}
