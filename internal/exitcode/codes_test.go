package exitcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{Success, "Success"},
		{Error, "Error"},
		{MaxIterations, "MaxIterations"},
		{Terminated, "Terminated"},
		{Exited, "Exited"},
		{Interrupted, "Interrupted"},
		{99, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Name(tt.code))
	}
}

func TestFromVerdict(t *testing.T) {
	tests := []struct {
		verdict  string
		expected int
	}{
		{"accept", Success},
		{"terminate", Terminated},
		{"max_iterations", MaxIterations},
		{"exit", Exited},
		{"", Error},
		{"garbage", Error},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, FromVerdict(tt.verdict), "verdict %q", tt.verdict)
	}
}
