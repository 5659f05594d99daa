package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		event    string
		contains []string
	}{
		{EventAccepted, []string{"myproj", "[0]", "accepted", "2", "exit 0"}},
		{EventTerminated, []string{"terminated by checker"}},
		{EventMaxIterations, []string{"max iterations"}},
		{EventExited, []string{"exited voluntarily"}},
		{EventInterrupted, []string{"interrupted"}},
		{EventWorkflowDone, []string{"workflow finished"}},
		{"mystery", []string{"event: mystery"}},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			msg := FormatEvent(tt.event, "myproj", "0", 2, 0)
			for _, want := range tt.contains {
				assert.Contains(t, msg, want)
			}
		})
	}
}

func TestSendNotification_NoChatIDIsNoop(t *testing.T) {
	// must return immediately without attempting to send
	SendNotification("http://127.0.0.1:1/webhook", "telegram", "", "msg")
}
