package main

import (
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLI_Help(t *testing.T) {
	binary := getBinaryPath(t)

	out, err := exec.Command(binary, "--help").CombinedOutput()
	require.NoError(t, err)
	for _, sub := range []string{"serve", "migrate", "check", "generate", "render", "run", "status"} {
		assert.Contains(t, string(out), sub)
	}
}

func TestCLI_GenerateRequiresPrompt(t *testing.T) {
	binary := getBinaryPath(t)

	out, err := exec.Command(binary, "generate").CombinedOutput()
	require.Error(t, err)
	assert.True(t, strings.Contains(string(out), "prompt"), "output: %s", out)
}

func TestCLI_RenderRequiresScript(t *testing.T) {
	binary := getBinaryPath(t)

	_, err := exec.Command(binary, "render").CombinedOutput()
	assert.Error(t, err)
}

func TestCLI_StatusRequiresID(t *testing.T) {
	binary := getBinaryPath(t)

	_, err := exec.Command(binary, "status").CombinedOutput()
	assert.Error(t, err)
}
