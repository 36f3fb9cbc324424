package repository

import "time"

// gormRun is the persisted row shape for domain.Run.
type gormRun struct {
	ID         string `gorm:"primaryKey"`
	CreatedAt  time.Time
	Mode       string
	Vendors    string `gorm:"type:text"` // comma-joined
	Service    string
	ChainTTS   string
	ChainSTT   string
	Models     string `gorm:"type:text"` // JSON-encoded map[string]string
	VoiceID    string
	Language   string
	Status     string
	StartedAt  *time.Time
	FinishedAt *time.Time
}

func (gormRun) TableName() string { return "runs" }

// gormRunItem is the persisted row shape for domain.RunItem.
type gormRunItem struct {
	ID                string `gorm:"primaryKey"`
	RunID             string `gorm:"index;not null"`
	InputText         string `gorm:"type:text"`
	VendorLabel       string
	Status            string
	FailureReason     string
	MetricsSummary    string `gorm:"type:text"`
	AudioLocator      string
	TranscriptLoc     string
	ServiceType       string
	TTSVendor         string
	STTVendor         string
	Model             string
	VoiceID           string
	Language          string
	DurationEstimated bool
	AnomalyFlag       bool
	CreatedAt         time.Time
	FinishedAt        *time.Time
}

func (gormRunItem) TableName() string { return "run_items" }

// gormMetric is the persisted row shape for domain.Metric. No duplicate
// (RunItemID, Name) pair may exist; enforced by a unique index.
type gormMetric struct {
	ID        uint   `gorm:"primaryKey"`
	RunItemID string `gorm:"uniqueIndex:idx_metric_item_name;not null"`
	Name      string `gorm:"uniqueIndex:idx_metric_item_name;not null"`
	Value     float64
	Unit      string
}

func (gormMetric) TableName() string { return "metrics" }

// gormArtifact is the persisted row shape for domain.Artifact.
type gormArtifact struct {
	ID          uint   `gorm:"primaryKey"`
	RunItemID   string `gorm:"uniqueIndex:idx_artifact_item_kind;not null"`
	Kind        string `gorm:"uniqueIndex:idx_artifact_item_kind;not null"`
	ContentType string
	Locator     string
	ByteLength  int64
}

func (gormArtifact) TableName() string { return "artifacts" }

// gormScript and gormScriptItem back the read-only reference-script model.
type gormScript struct {
	ID   string `gorm:"primaryKey"`
	Name string
}

func (gormScript) TableName() string { return "scripts" }

type gormScriptItem struct {
	ID       uint `gorm:"primaryKey"`
	ScriptID string `gorm:"index;not null"`
	Index    int
	Text     string `gorm:"type:text"`
}

func (gormScriptItem) TableName() string { return "script_items" }
