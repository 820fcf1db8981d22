// Package refs defines core types shared across subsystems.
package refs

import (
	"time"
)

// Status represents the capture lifecycle state of a reference row.
type Status string

// Status values persisted in the reference store.
const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
)

// TagColumns lists the tag fields editable per row. The names are the
// actual column names in the store and in CSV exports.
var TagColumns = []string{
	"SILHOUETTE",
	"COLOR",
	"DETAIL",
	"MATERIAL",
	"MOOD",
	"FUNCTION",
	"USE_CASE",
}

// ExportColumns is the exact column order written by CSV/XLSX exports.
var ExportColumns = []string{
	"id",
	"brand",
	"season",
	"item",
	"source_url",
	"page_title",
	"image_path",
	"captured_at",
	"SILHOUETTE",
	"COLOR",
	"DETAIL",
	"MATERIAL",
	"MOOD",
	"FUNCTION",
	"USE_CASE",
	"fit_key",
	"apc_fit_score",
	"notes",
	"status",
	"error_message",
	"created_at",
	"updated_at",
}

// Reference is one catalogued item with its tags and capture result.
type Reference struct {
	ID           string    `json:"id"`
	Brand        string    `json:"brand"`
	Season       string    `json:"season"`
	Item         string    `json:"item"`
	SourceURL    string    `json:"source_url"`
	PageTitle    string    `json:"page_title"`
	ImagePath    string    `json:"image_path"`
	CapturedAt   string    `json:"captured_at"`
	Silhouette   string    `json:"SILHOUETTE"`
	Color        string    `json:"COLOR"`
	Detail       string    `json:"DETAIL"`
	Material     string    `json:"MATERIAL"`
	Mood         string    `json:"MOOD"`
	Function     string    `json:"FUNCTION"`
	UseCase      string    `json:"USE_CASE"`
	FitKey       string    `json:"fit_key"`
	APCFitScore  *int      `json:"apc_fit_score"`
	Notes        string    `json:"notes"`
	Status       Status    `json:"status"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewRef captures everything needed to enqueue one URL for capture.
type NewRef struct {
	Brand     string `json:"brand"`
	Season    string `json:"season"`
	Item      string `json:"item"`
	SourceURL string `json:"source_url"`
}

// CaptureResult is what the worker writes back onto a claimed row.
type CaptureResult struct {
	ImagePath    string
	CapturedAt   string
	PageTitle    string
	Status       Status
	ErrorMessage string
}

// TagUpdate is one row of human edits from the tagging surface.
// APCFitScore arrives as text; non-numeric input becomes NULL on write.
type TagUpdate struct {
	ID          string `json:"id"`
	Silhouette  string `json:"SILHOUETTE"`
	Color       string `json:"COLOR"`
	Detail      string `json:"DETAIL"`
	Material    string `json:"MATERIAL"`
	Mood        string `json:"MOOD"`
	Function    string `json:"FUNCTION"`
	UseCase     string `json:"USE_CASE"`
	FitKey      string `json:"fit_key"`
	APCFitScore string `json:"apc_fit_score"`
	Notes       string `json:"notes"`
	Status      string `json:"status"`
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	Brand  string
	Season string
	Item   string
	Status string // "ALL" or a Status value
	Limit  int
}

// Stats holds per-status row counts.
type Stats struct {
	Pending    int `json:"PENDING"`
	Processing int `json:"PROCESSING"`
	Success    int `json:"SUCCESS"`
	Failed     int `json:"FAILED"`
	Total      int `json:"TOTAL"`
}

// PendingRef is the slim projection the worker claims from the queue.
type PendingRef struct {
	ID        string
	Brand     string
	Season    string
	Item      string
	SourceURL string
}

// CaptureEvent is published after the worker finishes a row.
type CaptureEvent struct {
	ID        string `json:"id"`
	Brand     string `json:"brand"`
	Season    string `json:"season"`
	Item      string `json:"item"`
	SourceURL string `json:"url"`
	Status    Status `json:"status"`
	ImageURI  string `json:"image_uri,omitempty"`
	Timestamp string `json:"timestamp"`
}
