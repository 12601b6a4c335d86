package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "python fence",
			input:    "```python\nfrom manim import *\n\nclass S(Scene):\n    pass\n```",
			expected: "from manim import *\n\nclass S(Scene):\n    pass",
		},
		{
			name:     "bare fence",
			input:    "```\nfrom manim import *\n```",
			expected: "from manim import *",
		},
		{
			name:     "fence with code on first line",
			input:    "```from manim import *\nx = 1\n```",
			expected: "from manim import *\nx = 1",
		},
		{
			name:     "plain code",
			input:    "  from manim import *\n",
			expected: "from manim import *",
		},
		{
			name:     "inner fences in plain code untouched",
			input:    "x = '```'",
			expected: "x = '```'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanCodeBlock(tt.input))
		})
	}
}
