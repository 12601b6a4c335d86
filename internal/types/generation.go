// Package types provides type definitions for structured data used throughout the mathmotion system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Option defaults mirror the generator form in the web UI.
const (
	DefaultTopic      = "Calculus"
	DefaultComplexity = "Intermediate"
	DefaultDuration   = 5
	DefaultStyle      = "3Blue1Brown"
	DefaultNarration  = "None"

	// MaxTitleLength is the number of prompt characters kept in a video title.
	MaxTitleLength = 100
)

// GenerationOptions are the user-selected knobs that shape the generated script.
type GenerationOptions struct {
	Topic      string `json:"topic,omitempty" validate:"omitempty,max=100"`
	Complexity string `json:"complexity,omitempty" validate:"omitempty,oneof=Beginner Intermediate Advanced Expert"`
	Duration   int    `json:"duration,omitempty" validate:"omitempty,min=1,max=30"` // minutes
	Style      string `json:"style,omitempty" validate:"omitempty,max=100"`
	Narration  string `json:"narration,omitempty" validate:"omitempty,max=100"`
}

// WithDefaults returns a copy with empty fields filled in.
// The receiver is never modified so the caller's options can be echoed unchanged.
func (o GenerationOptions) WithDefaults() GenerationOptions {
	if o.Topic == "" {
		o.Topic = DefaultTopic
	}
	if o.Complexity == "" {
		o.Complexity = DefaultComplexity
	}
	if o.Duration == 0 {
		o.Duration = DefaultDuration
	}
	if o.Style == "" {
		o.Style = DefaultStyle
	}
	if o.Narration == "" {
		o.Narration = DefaultNarration
	}
	return o
}

// GenerationRequest is a single user submission. It is not modified after it is accepted.
type GenerationRequest struct {
	Prompt  string            `json:"prompt" validate:"required,max=4000"`
	Options GenerationOptions `json:"options"`
}

// Validate checks the request. A prompt made only of whitespace is treated as missing.
func (r *GenerationRequest) Validate() error {
	trimmed := *r
	trimmed.Prompt = strings.TrimSpace(r.Prompt)
	validate := validator.New()
	return validate.Struct(&trimmed)
}

// Title derives a display title from the prompt.
func (r *GenerationRequest) Title() string {
	prompt := strings.TrimSpace(r.Prompt)
	runes := []rune(prompt)
	if len(runes) <= MaxTitleLength {
		return prompt
	}
	return string(runes[:MaxTitleLength]) + "..."
}
