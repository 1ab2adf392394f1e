package vecspace

import (
	"context"
	"fmt"
	"time"
)

// MigrationService moves vectors between collections in the background.
type MigrationService struct {
	mgr managerUseCase
	obs *observer
}

// Start enqueues a migration of every vector in source into target.
func (s *MigrationService) Start(ctx context.Context, source, target string) (_ MigrationInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("migration.start", start, err) }()

	task, err := s.mgr.EnqueueMigration(ctx, source, target)
	if err != nil {
		return MigrationInfo{}, fmt.Errorf("start migration: %w", err)
	}
	return fromInternalTask(task), nil
}

// Status returns the current state of a migration.
func (s *MigrationService) Status(ctx context.Context, id string) (_ MigrationInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("migration.status", start, err) }()

	task, err := s.mgr.MigrationStatus(ctx, id)
	if err != nil {
		return MigrationInfo{}, fmt.Errorf("migration status: %w", err)
	}
	return fromInternalTask(task), nil
}

// List returns up to limit migrations, newest first.
func (s *MigrationService) List(ctx context.Context, limit int) (_ []MigrationInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("migration.list", start, err) }()

	tasks, err := s.mgr.ListMigrations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	out := make([]MigrationInfo, len(tasks))
	for i, t := range tasks {
		out[i] = fromInternalTask(t)
	}
	return out, nil
}

// Wait polls until the migration completes or fails, or ctx is done.
// A failed migration is returned without error; check Status.
func (s *MigrationService) Wait(ctx context.Context, id string, poll time.Duration) (MigrationInfo, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		info, err := s.Status(ctx, id)
		if err != nil || info.Done() {
			return info, err
		}
		select {
		case <-ctx.Done():
			return info, fmt.Errorf("wait migration %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}
