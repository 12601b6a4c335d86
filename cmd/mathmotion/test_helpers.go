package main

import (
	"os"
	"path/filepath"
	"testing"
)

// getBinaryPath returns the built mathmotion binary, skipping when it is absent.
func getBinaryPath(t *testing.T) string {
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := filepath.Join("..", "..", "bin", "mathmotion")
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it with 'go build -o bin/mathmotion ./cmd/mathmotion'", binaryPath)
	}
	return binaryPath
}
