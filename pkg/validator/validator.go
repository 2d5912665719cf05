// Package validator implements the goal validator (C4): an LLM-as-judge
// that decides whether the last user turn achieved the scene's success
// metric, via a single structured tool call.
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codeready-toolchain/simulator/pkg/llm"
	"github.com/codeready-toolchain/simulator/pkg/store"
)

// NextAction enumerates the validator's requested next step.
type NextAction string

const (
	ActionContinue      NextAction = "continue"
	ActionProgress      NextAction = "progress"
	ActionHint          NextAction = "hint"
	ActionForceProgress NextAction = "force_progress"
)

// Decision is the validator's judgement for one turn.
type Decision struct {
	GoalAchieved    bool
	ConfidenceScore float64
	Reasoning       string
	NextAction      NextAction
	HintMessage     string
	ShouldProgress  bool
}

// genericReplies is the fixed set of short/generic responses the pre-check
// rejects without an LLM call.
var genericReplies = map[string]struct{}{
	"test": {}, "hello": {}, "ok": {}, "hi": {}, "thanks": {}, "hey": {}, "goodbye": {}, "bye": {},
}

const preCheckHint = "Please provide a response that directly addresses the scene's goal and aligns with the success metric."

const toolName = "submit_goal_judgement"

// Validator wraps an llm.Client and applies the fixed judging contract.
type Validator struct {
	client llm.Client
	logger *slog.Logger
}

// New creates a Validator backed by client.
func New(client llm.Client) *Validator {
	return &Validator{client: client, logger: slog.With("component", "validator")}
}

// Evaluate judges the last user message against the scene's success metric.
// recentHistory is provided for context only. scenarioObjectives is used
// only as the success-metric fallback (the first objective, when the scene
// has no metric); the objectives are not otherwise shown to the model.
func (v *Validator) Evaluate(ctx context.Context, scene *store.Scene, scenarioObjectives []string, lastUserMessage string, recentHistory []*store.ConversationLog, attemptNumber int) Decision {
	if decision, ok := preCheck(lastUserMessage); ok {
		return decision
	}

	req := llm.Request{
		Messages: []llm.Message{
			llm.SystemMessage(buildSystemPrompt(scene, scenarioObjectives, attemptNumber)),
			llm.UserMessage(buildHistoryPrompt(recentHistory, lastUserMessage)),
		},
		Tools:      []llm.ToolDefinition{judgementTool()},
		ToolChoice: toolName,
	}

	resp, err := v.client.Complete(ctx, req)
	if err != nil {
		v.logger.Warn("goal validator LLM call failed, falling back to continue", "error", err)
		return fallbackDecision()
	}

	call, ok := resp.FirstToolCall()
	if !ok {
		v.logger.Warn("goal validator LLM returned no tool call, falling back to continue")
		return fallbackDecision()
	}

	decision, err := decodeDecision(call.Arguments)
	if err != nil {
		v.logger.Warn("goal validator tool call was malformed, falling back to continue", "error", err)
		return fallbackDecision()
	}

	decision.ConfidenceScore = clamp(decision.ConfidenceScore, 0, 1)
	return decision
}

// preCheck short-circuits short or generic replies without an LLM call.
func preCheck(lastUserMessage string) (Decision, bool) {
	trimmed := strings.TrimSpace(lastUserMessage)
	if len(trimmed) < 3 {
		return preCheckFailure(), true
	}
	if _, generic := genericReplies[strings.ToLower(trimmed)]; generic {
		return preCheckFailure(), true
	}
	return Decision{}, false
}

func preCheckFailure() Decision {
	return Decision{
		GoalAchieved:    false,
		ConfidenceScore: 0,
		NextAction:      ActionContinue,
		HintMessage:     preCheckHint,
	}
}

func fallbackDecision() Decision {
	return Decision{GoalAchieved: false, ConfidenceScore: 0, NextAction: ActionContinue}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func buildSystemPrompt(scene *store.Scene, scenarioObjectives []string, attemptNumber int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are judging whether the learner's last message achieves this scene's success metric.\n")
	fmt.Fprintf(&b, "Success metric (primary grading target): %s\n", scene.EffectiveSuccessMetric(scenarioObjectives))
	fmt.Fprintf(&b, "Scene goal (secondary): %s\n", scene.UserGoal)
	b.WriteString("Learning objectives are explicitly excluded from this judgement -- do not consider them.\n")
	b.WriteString("Be moderately lenient: an on-topic, good-faith attempt is a pass. Only mark failure for off-topic or generic replies.\n")
	b.WriteString("If you reject the attempt, your reasoning must explain why in general terms -- never quote the user's message verbatim.\n")
	fmt.Fprintf(&b, "This is attempt number %d for this scene (max %d, for context only).\n", attemptNumber, scene.MaxAttempts)
	b.WriteString("You must respond only via the submit_goal_judgement tool call.\n")
	return b.String()
}

func buildHistoryPrompt(recentHistory []*store.ConversationLog, lastUserMessage string) string {
	var b strings.Builder
	if len(recentHistory) > 0 {
		b.WriteString("Recent conversation (for context only):\n")
		for _, entry := range recentHistory {
			fmt.Fprintf(&b, "%s (%s): %s\n", entry.SenderName, entry.MessageType, entry.MessageContent)
		}
	}
	fmt.Fprintf(&b, "\nLast user message to judge: %s\n", lastUserMessage)
	return b.String()
}

func judgementTool() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        toolName,
		Description: "Submit the judgement for whether the learner's last message achieved the scene's success metric.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"goal_achieved":    map[string]interface{}{"type": "boolean"},
				"confidence_score": map[string]interface{}{"type": "number", "description": "0.0 to 1.0"},
				"reasoning":        map[string]interface{}{"type": "string"},
				"next_action":      map[string]interface{}{"type": "string", "enum": []string{"continue", "progress", "hint", "force_progress"}},
				"hint_message":     map[string]interface{}{"type": "string"},
				"should_progress":  map[string]interface{}{"type": "boolean"},
			},
			"required": []string{"goal_achieved", "confidence_score", "reasoning", "next_action", "should_progress"},
		},
	}
}
