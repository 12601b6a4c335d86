// Package scriptgen turns a natural-language prompt into an animation script using an LLM.
package scriptgen

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/mathmotion/internal/llm"
	"github.com/jonathan/mathmotion/internal/prompts"
	"github.com/jonathan/mathmotion/internal/types"
)

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 60 * time.Second

// Script is the generator's output. Code is the model text exactly as returned.
type Script struct {
	Code    string                  `json:"script"`
	Title   string                  `json:"title"`
	Prompt  string                  `json:"prompt"`
	Options types.GenerationOptions `json:"options"`
	Model   string                  `json:"model"`
}

// Generator produces animation scripts.
type Generator struct {
	client  llm.Client
	timeout time.Duration
}

// New returns a Generator using client. A zero timeout selects DefaultTimeout.
func New(client llm.Client, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{client: client, timeout: timeout}
}

// Generate validates req and asks the model for a script.
// The returned options echo what the caller sent; defaults only shape the prompt.
func (g *Generator) Generate(ctx context.Context, req types.GenerationRequest) (*Script, error) {
	if err := req.Validate(); err != nil {
		return nil, toValidationError(err)
	}

	prompt, err := BuildPrompt(req)
	if err != nil {
		return nil, &APICallError{Message: "failed to build prompt", Cause: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.client.GenerateContent(callCtx, prompt, llm.TierStandard)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &APICallError{Message: fmt.Sprintf("model did not answer within %s", g.timeout), Cause: err}
		}
		return nil, &APICallError{Message: "model call failed", Cause: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &APICallError{Message: "model returned an empty script"}
	}

	return &Script{
		Code:    text,
		Title:   req.Title(),
		Prompt:  req.Prompt,
		Options: req.Options,
		Model:   g.client.GetModel(llm.TierStandard),
	}, nil
}

// BuildPrompt renders the scene prompt for req with option defaults applied.
func BuildPrompt(req types.GenerationRequest) (string, error) {
	tmpl, err := prompts.Get(prompts.ManimFile, "generate-scene")
	if err != nil {
		return "", err
	}
	opts := req.Options.WithDefaults()
	return prompts.Format(tmpl, map[string]string{
		"Prompt":     strings.TrimSpace(req.Prompt),
		"Topic":      opts.Topic,
		"Complexity": opts.Complexity,
		"Duration":   strconv.Itoa(opts.Duration),
		"Style":      opts.Style,
		"Narration":  opts.Narration,
	}), nil
}

// SystemInstruction returns the system prompt the LLM client should be configured with.
func SystemInstruction() string {
	return prompts.MustGet(prompts.ManimFile, "system")
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		if field == "prompt" && fe.Tag() == "required" {
			return &ValidationError{Field: field, Message: "prompt is required"}
		}
		return &ValidationError{Field: field, Message: fmt.Sprintf("failed %q constraint", fe.Tag())}
	}
	return &ValidationError{Message: err.Error()}
}
