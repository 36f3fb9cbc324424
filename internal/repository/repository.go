// Package repository is the GORM/SQLite-backed persistence layer for runs,
// run-items, metrics, and artifacts. It is the single writer of the
// authoritative state the engine and the aggregation package read from.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/forkadarshp/metrix/internal/core"
	"github.com/forkadarshp/metrix/internal/domain"
)

// Repository wraps a GORM database handle with the metrix domain's read and
// write operations.
type Repository struct {
	db *gorm.DB
}

// Open opens (and migrates) the SQLite database at dsn.
func Open(dsn string) (*Repository, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: open %s: %w", dsn, err)
	}

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	err := r.db.AutoMigrate(
		&gormRun{},
		&gormRunItem{},
		&gormMetric{},
		&gormArtifact{},
		&gormScript{},
		&gormScriptItem{},
	)
	if err != nil {
		return fmt.Errorf("repository: migrate: %w", err)
	}

	return nil
}

// CreateRun atomically persists a Run and all of its expanded RunItems.
func (r *Repository) CreateRun(ctx context.Context, run domain.Run, items []domain.RunItem) error {
	runRow, err := runToRow(run)
	if err != nil {
		return fmt.Errorf("repository: encode run: %w", err)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&runRow).Error; err != nil {
			return fmt.Errorf("repository: insert run: %w", err)
		}

		if len(items) == 0 {
			return nil
		}

		rows := make([]gormRunItem, 0, len(items))
		for _, item := range items {
			rows = append(rows, itemToRow(item))
		}

		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("repository: insert run items: %w", err)
		}

		return nil
	})
}

// SetRunStatus updates a run's terminal status and, for a terminal
// transition, its finished-at timestamp.
func (r *Repository) SetRunStatus(ctx context.Context, runID string, status domain.Status, startedAt, finishedAt *time.Time) error {
	updates := map[string]any{"status": string(status)}
	if startedAt != nil {
		updates["started_at"] = *startedAt
	}

	if finishedAt != nil {
		updates["finished_at"] = *finishedAt
	}

	result := r.db.WithContext(ctx).Model(&gormRun{}).Where("id = ?", runID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("repository: set run status: %w", result.Error)
	}

	return nil
}

// SetItemStatus transitions a run-item's status, recording a failure reason
// when terminal and failed.
func (r *Repository) SetItemStatus(ctx context.Context, itemID string, status domain.Status, failureReason string, finishedAt *time.Time) error {
	updates := map[string]any{"status": string(status)}
	if failureReason != "" {
		updates["failure_reason"] = failureReason
	}

	if finishedAt != nil {
		updates["finished_at"] = *finishedAt
	}

	result := r.db.WithContext(ctx).Model(&gormRunItem{}).Where("id = ?", itemID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("repository: set item status: %w", result.Error)
	}

	return nil
}

// SetItemArtifactLocators records the audio/transcript locators and sidecar
// flags computed while processing a run-item.
func (r *Repository) SetItemArtifactLocators(ctx context.Context, itemID, audioLocator, transcriptLocator string, sidecar domain.Sidecar, summary string) error {
	updates := map[string]any{
		"audio_locator":      audioLocator,
		"transcript_loc":     transcriptLocator,
		"metrics_summary":    summary,
		"duration_estimated": sidecar.DurationEstimated,
		"anomaly_flag":       sidecar.AnomalyFlag,
	}

	result := r.db.WithContext(ctx).Model(&gormRunItem{}).Where("id = ?", itemID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("repository: set item artifact locators: %w", result.Error)
	}

	return nil
}

// RecordMetric inserts a Metric row. A duplicate (RunItemID, Name) pair
// violates the unique index and is surfaced as an IntegrityError, never
// silently overwritten.
func (r *Repository) RecordMetric(ctx context.Context, metric domain.Metric) error {
	row := metricToRow(metric)

	err := r.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		return &core.IntegrityError{
			Constraint: "unique (run_item_id, name)",
			Detail:     fmt.Sprintf("metric %s for item %s: %v", metric.Name, metric.RunItemID, err),
		}
	}

	return nil
}

// RecordArtifact inserts an Artifact row. A duplicate (RunItemID, Kind) pair
// violates the unique index, matching the "written once" lifecycle rule.
func (r *Repository) RecordArtifact(ctx context.Context, artifact domain.Artifact) error {
	row := artifactToRow(artifact)

	err := r.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		return &core.IntegrityError{
			Constraint: "unique (run_item_id, kind)",
			Detail:     fmt.Sprintf("artifact %s for item %s: %v", artifact.Kind, artifact.RunItemID, err),
		}
	}

	return nil
}

// ErrNotFound is returned by single-row lookups when no matching row exists.
var ErrNotFound = errors.New("repository: not found")

// GetRun returns a run's metadata and its items.
func (r *Repository) GetRun(ctx context.Context, runID string) (domain.Run, []domain.RunItem, error) {
	var runRow gormRun

	err := r.db.WithContext(ctx).First(&runRow, "id = ?", runID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Run{}, nil, fmt.Errorf("%w: run %s", ErrNotFound, runID)
		}

		return domain.Run{}, nil, fmt.Errorf("repository: get run: %w", err)
	}

	run, err := rowToRun(runRow)
	if err != nil {
		return domain.Run{}, nil, fmt.Errorf("repository: decode run: %w", err)
	}

	items, err := r.ListItemsByRun(ctx, runID)
	if err != nil {
		return domain.Run{}, nil, err
	}

	return run, items, nil
}

// ListRuns returns all runs ordered newest-first.
func (r *Repository) ListRuns(ctx context.Context) ([]domain.Run, error) {
	var rows []gormRun

	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("repository: list runs: %w", err)
	}

	runs := make([]domain.Run, 0, len(rows))

	for _, row := range rows {
		run, err := rowToRun(row)
		if err != nil {
			return nil, fmt.Errorf("repository: decode run %s: %w", row.ID, err)
		}

		runs = append(runs, run)
	}

	return runs, nil
}

// GetItem returns a single run-item by id.
func (r *Repository) GetItem(ctx context.Context, itemID string) (domain.RunItem, error) {
	var row gormRunItem

	err := r.db.WithContext(ctx).First(&row, "id = ?", itemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RunItem{}, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
		}

		return domain.RunItem{}, fmt.Errorf("repository: get item: %w", err)
	}

	return rowToItem(row), nil
}

// ListItemsByRun returns every item belonging to runID, in creation order.
func (r *Repository) ListItemsByRun(ctx context.Context, runID string) ([]domain.RunItem, error) {
	var rows []gormRunItem

	err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("created_at ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("repository: list items: %w", err)
	}

	items := make([]domain.RunItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, rowToItem(row))
	}

	return items, nil
}

// ItemMetrics returns every metric recorded for a run-item.
func (r *Repository) ItemMetrics(ctx context.Context, itemID string) ([]domain.Metric, error) {
	var rows []gormMetric

	err := r.db.WithContext(ctx).Where("run_item_id = ?", itemID).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("repository: item metrics: %w", err)
	}

	metrics := make([]domain.Metric, 0, len(rows))
	for _, row := range rows {
		metrics = append(metrics, rowToMetric(row))
	}

	return metrics, nil
}

// FetchArtifact returns the artifact record of the given kind for itemID.
func (r *Repository) FetchArtifact(ctx context.Context, itemID string, kind domain.ArtifactKind) (domain.Artifact, error) {
	var row gormArtifact

	err := r.db.WithContext(ctx).
		Where("run_item_id = ? AND kind = ?", itemID, string(kind)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Artifact{}, fmt.Errorf("%w: artifact %s/%s", ErrNotFound, itemID, kind)
		}

		return domain.Artifact{}, fmt.Errorf("repository: fetch artifact: %w", err)
	}

	return rowToArtifact(row), nil
}

// TimeWindowItems returns every completed run-item created within [since,
// until), the basis for aggregation's dashboard rollups.
func (r *Repository) TimeWindowItems(ctx context.Context, since, until time.Time) ([]domain.RunItem, error) {
	var rows []gormRunItem

	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", since, until).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("repository: time window items: %w", err)
	}

	items := make([]domain.RunItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, rowToItem(row))
	}

	return items, nil
}

// ListScripts returns every available reference script with its item count,
// without loading item bodies.
func (r *Repository) ListScripts(ctx context.Context) ([]domain.Script, error) {
	var scriptRows []gormScript

	err := r.db.WithContext(ctx).Find(&scriptRows).Error
	if err != nil {
		return nil, fmt.Errorf("repository: list scripts: %w", err)
	}

	scripts := make([]domain.Script, 0, len(scriptRows))

	for _, s := range scriptRows {
		var itemRows []gormScriptItem

		err := r.db.WithContext(ctx).
			Where("script_id = ?", s.ID).
			Order("\"index\" ASC").
			Find(&itemRows).Error
		if err != nil {
			return nil, fmt.Errorf("repository: list script items for %s: %w", s.ID, err)
		}

		items := make([]domain.ScriptItem, 0, len(itemRows))
		for _, ir := range itemRows {
			items = append(items, domain.ScriptItem{Index: ir.Index, Text: ir.Text})
		}

		scripts = append(scripts, domain.Script{ID: s.ID, Name: s.Name, Items: items})
	}

	return scripts, nil
}

// PurgeRun hard-deletes a run and its full item/metric/artifact tree inside
// one transaction. This is the only destruction path Run supports: GORM's
// soft-delete backs nothing here, purge means real removal.
func (r *Repository) PurgeRun(ctx context.Context, runID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var itemIDs []string

		if err := tx.Model(&gormRunItem{}).Where("run_id = ?", runID).Pluck("id", &itemIDs).Error; err != nil {
			return fmt.Errorf("repository: purge: list items: %w", err)
		}

		if len(itemIDs) > 0 {
			if err := tx.Where("run_item_id IN ?", itemIDs).Delete(&gormMetric{}).Error; err != nil {
				return fmt.Errorf("repository: purge: delete metrics: %w", err)
			}

			if err := tx.Where("run_item_id IN ?", itemIDs).Delete(&gormArtifact{}).Error; err != nil {
				return fmt.Errorf("repository: purge: delete artifacts: %w", err)
			}

			if err := tx.Where("run_id = ?", runID).Delete(&gormRunItem{}).Error; err != nil {
				return fmt.Errorf("repository: purge: delete items: %w", err)
			}
		}

		if err := tx.Where("id = ?", runID).Delete(&gormRun{}).Error; err != nil {
			return fmt.Errorf("repository: purge: delete run: %w", err)
		}

		return nil
	})
}
