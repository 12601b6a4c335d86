package scriptgen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/mathmotion/internal/llm"
	"github.com/jonathan/mathmotion/internal/types"
)

type fakeClient struct {
	answer     string
	err        error
	block      bool
	calls      int
	lastPrompt string
}

func (f *fakeClient) GenerateContent(ctx context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.answer, f.err
}

func (f *fakeClient) GetModel(llm.ModelTier) string { return "fake-model" }
func (f *fakeClient) Close() error                  { return nil }

func TestGenerate_Success(t *testing.T) {
	raw := "```python\nfrom manim import *\n```"
	client := &fakeClient{answer: raw}
	g := New(client, time.Second)

	req := types.GenerationRequest{Prompt: "Show a unit circle", Options: types.GenerationOptions{Topic: "Trigonometry"}}
	script, err := g.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, raw, script.Code, "script text is passed through untouched")
	assert.Equal(t, "Show a unit circle", script.Title)
	assert.Equal(t, req.Options, script.Options, "options are echoed without defaults")
	assert.Equal(t, "fake-model", script.Model)
	assert.Contains(t, client.lastPrompt, `"Show a unit circle"`)
	assert.Contains(t, client.lastPrompt, "Topic: Trigonometry")
	assert.Contains(t, client.lastPrompt, "Audience level: Intermediate")
}

func TestGenerate_EmptyPromptSkipsUpstream(t *testing.T) {
	for _, prompt := range []string{"", "   \n"} {
		client := &fakeClient{answer: "x"}
		g := New(client, time.Second)

		_, err := g.Generate(context.Background(), types.GenerationRequest{Prompt: prompt})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "prompt", verr.Field)
		assert.Equal(t, 0, client.calls)
	}
}

func TestGenerate_UpstreamError(t *testing.T) {
	upstream := errors.New("quota exceeded")
	g := New(&fakeClient{err: upstream}, time.Second)

	_, err := g.Generate(context.Background(), types.GenerationRequest{Prompt: "integrals"})
	var apiErr *APICallError
	require.ErrorAs(t, err, &apiErr)
	assert.ErrorIs(t, err, upstream)
}

func TestGenerate_Timeout(t *testing.T) {
	g := New(&fakeClient{block: true}, 10*time.Millisecond)

	_, err := g.Generate(context.Background(), types.GenerationRequest{Prompt: "integrals"})
	var apiErr *APICallError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "did not answer")
}

func TestGenerate_EmptyAnswer(t *testing.T) {
	g := New(&fakeClient{answer: "  "}, time.Second)

	_, err := g.Generate(context.Background(), types.GenerationRequest{Prompt: "integrals"})
	var apiErr *APICallError
	require.ErrorAs(t, err, &apiErr)
}

func TestSystemInstruction(t *testing.T) {
	assert.Contains(t, SystemInstruction(), "Manim")
}
