package types

import (
	"time"
)

// VideoStatus is the lifecycle state of a video record.
type VideoStatus string

// VideoStatus values
const (
	VideoStatusPending    VideoStatus = "PENDING"
	VideoStatusGenerating VideoStatus = "GENERATING"
	VideoStatusCompleted  VideoStatus = "COMPLETED"
	VideoStatusFailed     VideoStatus = "FAILED"
)

// transitions lists the states each state may move to.
var transitions = map[VideoStatus][]VideoStatus{
	VideoStatusPending:    {VideoStatusGenerating},
	VideoStatusGenerating: {VideoStatusCompleted, VideoStatusFailed},
}

// Valid reports whether s is a known status.
func (s VideoStatus) Valid() bool {
	switch s {
	case VideoStatusPending, VideoStatusGenerating, VideoStatusCompleted, VideoStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s VideoStatus) Terminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

// CanTransition reports whether a record may move from one status to another.
func CanTransition(from, to VideoStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedSources returns the statuses from which to is reachable.
func AllowedSources(to VideoStatus) []VideoStatus {
	var sources []VideoStatus
	for from, nexts := range transitions {
		for _, next := range nexts {
			if next == to {
				sources = append(sources, from)
			}
		}
	}
	return sources
}

// VideoRecord is the persisted state of one generation job.
type VideoRecord struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Prompt       string            `json:"prompt"`
	Options      GenerationOptions `json:"options"`
	Script       *string           `json:"script"`
	Status       VideoStatus       `json:"status"`
	VideoURL     *string           `json:"videoUrl"`
	ThumbnailURL *string           `json:"thumbnailUrl"`
	Duration     *float64          `json:"duration"` // seconds
	ErrorMessage *string           `json:"errorMessage,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// VideoStatusView is the polling view of a record.
// URL fields are only populated once the record is COMPLETED.
type VideoStatusView struct {
	ID           string      `json:"id"`
	Status       VideoStatus `json:"status"`
	VideoURL     *string     `json:"videoUrl"`
	ThumbnailURL *string     `json:"thumbnailUrl"`
	Duration     *float64    `json:"duration"`
	LastUpdated  time.Time   `json:"lastUpdated"`
}

// StatusView projects the record onto its polling view.
func (v *VideoRecord) StatusView() VideoStatusView {
	view := VideoStatusView{
		ID:          v.ID,
		Status:      v.Status,
		LastUpdated: v.UpdatedAt,
	}
	if v.Status == VideoStatusCompleted {
		view.VideoURL = v.VideoURL
		view.ThumbnailURL = v.ThumbnailURL
		view.Duration = v.Duration
	}
	return view
}
