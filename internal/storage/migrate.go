// ABOUTME: Data migration between storage backends.
// ABOUTME: Copies steps, health logs and medications for one user from source to destination.
package storage

import (
	"context"
	"fmt"
	"os"
)

// MigrateSummary holds counts of migrated records.
type MigrateSummary struct {
	Steps       int
	HealthLogs  int
	Medications int
}

// MigrateData copies all of userID's records from src to dst. Records with
// the same key in dst are replaced.
func MigrateData(ctx context.Context, src, dst Repository, userID string) (*MigrateSummary, error) {
	data, err := src.GetAllData(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	if err := dst.ImportData(ctx, userID, data); err != nil {
		return nil, fmt.Errorf("write destination: %w", err)
	}
	return &MigrateSummary{
		Steps:       len(data.Steps),
		HealthLogs:  len(data.HealthLogs),
		Medications: len(data.Medications),
	}, nil
}

// IsDirNonEmpty checks whether a directory exists and contains any files or subdirectories.
func IsDirNonEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read directory %q: %w", path, err)
	}
	return len(entries) > 0, nil
}
