package validator

import (
	"encoding/json"
	"fmt"
)

type judgementArgs struct {
	GoalAchieved    bool    `json:"goal_achieved"`
	ConfidenceScore float64 `json:"confidence_score"`
	Reasoning       string  `json:"reasoning"`
	NextAction      string  `json:"next_action"`
	HintMessage     string  `json:"hint_message"`
	ShouldProgress  bool    `json:"should_progress"`
}

// decodeDecision parses the raw tool-call arguments into a Decision,
// validating next_action against the fixed enum.
func decodeDecision(raw json.RawMessage) (Decision, error) {
	var args judgementArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Decision{}, fmt.Errorf("failed to decode tool call arguments: %w", err)
	}

	var action NextAction
	switch NextAction(args.NextAction) {
	case ActionContinue, ActionProgress, ActionHint, ActionForceProgress:
		action = NextAction(args.NextAction)
	default:
		return Decision{}, fmt.Errorf("unknown next_action %q", args.NextAction)
	}

	return Decision{
		GoalAchieved:    args.GoalAchieved,
		ConfidenceScore: args.ConfidenceScore,
		Reasoning:       args.Reasoning,
		NextAction:      action,
		HintMessage:     args.HintMessage,
		ShouldProgress:  args.ShouldProgress,
	}, nil
}
