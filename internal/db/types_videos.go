package db

import (
	"errors"
	"fmt"

	"github.com/jonathan/mathmotion/internal/types"
)

// ErrNotFound is returned when a transition targets a missing record.
var ErrNotFound = errors.New("video not found")

// ErrDuplicateID is returned when a record with the same ID already exists.
var ErrDuplicateID = errors.New("video id already exists")

// TransitionError is returned when a status update is not allowed from the record's current status.
type TransitionError struct {
	ID   string
	From types.VideoStatus
	To   types.VideoStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("video %s cannot move from %s to %s", e.ID, e.From, e.To)
}

// NewVideo is the input for CreateVideo.
type NewVideo struct {
	ID      string
	Title   string
	Prompt  string
	Options types.GenerationOptions
	// Script may be set when the record is created from an already generated script.
	Script *string
}

// Completion carries the published URLs for MarkCompleted.
type Completion struct {
	VideoURL     string
	ThumbnailURL string
	Duration     *float64
}

// ListFilter narrows ListVideos.
type ListFilter struct {
	Status *types.VideoStatus
	Limit  int
	Offset int
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Normalized applies the default and maximum page size.
func (f ListFilter) Normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
