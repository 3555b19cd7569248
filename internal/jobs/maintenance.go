package jobs

import (
	"log/slog"

	"careerpulse/internal/database"
)

// MaintenanceJob keeps the sqlite database compact under sustained event
// ingestion: it truncates the WAL and refreshes the query planner stats.
type MaintenanceJob struct {
	dbManager *database.DBManager
	logger    *slog.Logger
}

func NewMaintenanceJob(dbManager *database.DBManager, logger *slog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		dbManager: dbManager,
		logger:    logger,
	}
}

// Run performs one maintenance pass.
func (j *MaintenanceJob) Run() error {
	j.logger.Debug("Running database maintenance")

	if err := j.dbManager.CheckpointWAL("TRUNCATE"); err != nil {
		j.logger.Error("WAL checkpoint failed", slog.Any("error", err))
		return err
	}

	db := j.dbManager.GetConnection()
	if err := db.Exec("PRAGMA optimize").Error; err != nil {
		j.logger.Error("PRAGMA optimize failed", slog.Any("error", err))
		return err
	}

	j.logger.Info("Database maintenance completed")
	return nil
}
