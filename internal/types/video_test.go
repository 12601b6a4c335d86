//nolint:revive // types is a standard Go package name pattern
package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to VideoStatus
		want     bool
	}{
		{VideoStatusPending, VideoStatusGenerating, true},
		{VideoStatusGenerating, VideoStatusCompleted, true},
		{VideoStatusGenerating, VideoStatusFailed, true},
		{VideoStatusPending, VideoStatusCompleted, false},
		{VideoStatusPending, VideoStatusFailed, false},
		{VideoStatusCompleted, VideoStatusGenerating, false},
		{VideoStatusFailed, VideoStatusPending, false},
		{VideoStatusCompleted, VideoStatusFailed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestAllowedSources(t *testing.T) {
	assert.ElementsMatch(t, []VideoStatus{VideoStatusPending}, AllowedSources(VideoStatusGenerating))
	assert.ElementsMatch(t, []VideoStatus{VideoStatusGenerating}, AllowedSources(VideoStatusFailed))
	assert.Empty(t, AllowedSources(VideoStatusPending))
}

func TestVideoStatus_Terminal(t *testing.T) {
	assert.True(t, VideoStatusCompleted.Terminal())
	assert.True(t, VideoStatusFailed.Terminal())
	assert.False(t, VideoStatusPending.Terminal())
	assert.False(t, VideoStatus("bogus").Valid())
}

func TestVideoRecord_StatusView(t *testing.T) {
	url := "https://media.example/v.mp4"
	thumb := "https://media.example/v.jpg"
	dur := 12.5
	now := time.Now()

	rec := VideoRecord{ID: "abc", Status: VideoStatusGenerating, VideoURL: &url, ThumbnailURL: &thumb, Duration: &dur, UpdatedAt: now}
	view := rec.StatusView()
	assert.Nil(t, view.VideoURL, "urls hidden until completed")
	assert.Equal(t, now, view.LastUpdated)

	rec.Status = VideoStatusCompleted
	view = rec.StatusView()
	assert.Equal(t, &url, view.VideoURL)
	assert.Equal(t, &thumb, view.ThumbnailURL)
	assert.Equal(t, &dur, view.Duration)
}
