package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreCheck(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		wantFails bool
	}{
		{name: "too short", message: "hi", wantFails: true},
		{name: "generic hello", message: "Hello", wantFails: true},
		{name: "generic ok case-insensitive", message: "OK", wantFails: true},
		{name: "on-topic reply passes precheck", message: "Good morning, I'd like to discuss the Q3 budget shortfall.", wantFails: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, matched := preCheck(tt.message)
			assert.Equal(t, tt.wantFails, matched)
			if tt.wantFails {
				assert.False(t, decision.GoalAchieved)
				assert.Equal(t, 0.0, decision.ConfidenceScore)
				assert.Equal(t, ActionContinue, decision.NextAction)
				assert.Equal(t, preCheckHint, decision.HintMessage)
			}
		})
	}
}

func TestDecodeDecision(t *testing.T) {
	t.Run("valid tool call", func(t *testing.T) {
		raw := []byte(`{"goal_achieved":true,"confidence_score":0.9,"reasoning":"on topic","next_action":"progress","should_progress":true}`)
		decision, err := decodeDecision(raw)
		assert.NoError(t, err)
		assert.True(t, decision.GoalAchieved)
		assert.Equal(t, ActionProgress, decision.NextAction)
		assert.True(t, decision.ShouldProgress)
	})

	t.Run("unknown next_action falls back to error", func(t *testing.T) {
		raw := []byte(`{"goal_achieved":false,"confidence_score":0.1,"next_action":"explode","should_progress":false}`)
		_, err := decodeDecision(raw)
		assert.Error(t, err)
	})

	t.Run("malformed json falls back to error", func(t *testing.T) {
		_, err := decodeDecision([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-0.5, 0, 1))
	assert.Equal(t, 1.0, clamp(1.5, 0, 1))
	assert.Equal(t, 0.5, clamp(0.5, 0, 1))
}
