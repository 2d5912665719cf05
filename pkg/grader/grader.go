// Package grader implements per-scene and overall grading (C7), invoked
// once a run is over via a separate grade request.
package grader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/codeready-toolchain/simulator/pkg/llm"
	"github.com/codeready-toolchain/simulator/pkg/router"
	"github.com/codeready-toolchain/simulator/pkg/store"
)

// SceneGrade is the per-scene entry in the grading report.
type SceneGrade struct {
	SceneID       string
	Title         string
	Objective     string
	UserResponses []string
	Score         int
	Feedback      string
	TeachingNotes string
}

// Report is the full grading output for one run.
type Report struct {
	OverallScore    int
	OverallFeedback string
	Scenes          []SceneGrade
}

// Grader wraps an llm.Client and the domain store to produce grading reports.
type Grader struct {
	store  *store.Store
	client llm.Client
	logger *slog.Logger
}

// New creates a Grader. client may be nil, in which case every scene falls
// back to its recorded SceneProgress score.
func New(st *store.Store, client llm.Client) *Grader {
	return &Grader{store: st, client: client, logger: slog.With("component", "grader")}
}

// Grade produces the full report for progress: per-scene scores in
// scene_order, then the overall arithmetic-mean score and a separate
// narrative feedback call whose own suggested score is discarded.
func (g *Grader) Grade(ctx context.Context, progress *store.UserProgress, scenario *store.Scenario, scenes []*store.Scene) (*Report, error) {
	sceneProgresses, err := g.store.ListSceneProgresses(ctx, progress.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scene progress for grading: %w", err)
	}

	report := &Report{}
	var allResponses []string
	var sum int

	for _, scene := range scenes {
		sp := sceneProgresses[scene.ID]
		responses, err := g.store.ListUserResponses(ctx, progress.ID, scene.ID, router.SubmitForGradingSentinel)
		if err != nil {
			return nil, fmt.Errorf("failed to load user responses for scene %s: %w", scene.ID, err)
		}

		texts := make([]string, len(responses))
		for i, r := range responses {
			texts[i] = r.MessageContent
		}
		allResponses = append(allResponses, texts...)

		metric := scene.EffectiveSuccessMetric(scenario.LearningObjectives)
		grade := g.gradeScene(ctx, scene, metric, texts, sp)
		grade.UserResponses = texts
		report.Scenes = append(report.Scenes, grade)
		sum += grade.Score
	}

	if len(scenes) > 0 {
		report.OverallScore = roundMean(sum, len(scenes))
	}
	report.OverallFeedback = g.overallFeedback(ctx, scenario, allResponses)

	return report, nil
}

func (g *Grader) gradeScene(ctx context.Context, scene *store.Scene, metric string, responses []string, sp *store.SceneProgress) SceneGrade {
	grade := SceneGrade{SceneID: scene.ID, Title: scene.Title, Objective: metric}

	if metric == "" || len(responses) == 0 || g.client == nil {
		score, feedback := fallbackGrade(sp)
		grade.Score = score
		grade.Feedback = feedback
		return grade
	}

	req := llm.Request{
		Messages: []llm.Message{
			llm.SystemMessage(sceneGradingSystemPrompt(scene, metric)),
			llm.UserMessage(strings.Join(responses, "\n---\n")),
		},
	}

	resp, err := g.client.Complete(ctx, req)
	if err != nil {
		g.logger.Warn("scene grading LLM call failed, falling back to recorded score", "scene_id", scene.ID, "error", err)
		score, feedback := fallbackGrade(sp)
		grade.Score = score
		grade.Feedback = feedback
		return grade
	}

	parsed, err := parseSceneGrade(resp.Content)
	if err != nil {
		g.logger.Warn("scene grading response malformed, falling back to recorded score", "scene_id", scene.ID, "error", err)
		score, feedback := fallbackGrade(sp)
		grade.Score = score
		grade.Feedback = feedback
		return grade
	}

	grade.Score = parsed.Score
	grade.Feedback = parsed.Feedback
	return grade
}

func (g *Grader) overallFeedback(ctx context.Context, scenario *store.Scenario, allResponses []string) string {
	if g.client == nil || len(allResponses) == 0 {
		return "No learner responses were recorded for this run."
	}

	req := llm.Request{
		Messages: []llm.Message{
			llm.SystemMessage(overallFeedbackSystemPrompt(scenario)),
			llm.UserMessage(strings.Join(allResponses, "\n---\n")),
		},
	}

	resp, err := g.client.Complete(ctx, req)
	if err != nil {
		g.logger.Warn("overall feedback LLM call failed", "error", err)
		return "Overall feedback unavailable."
	}

	parsed, err := parseOverallFeedback(resp.Content)
	if err != nil {
		g.logger.Warn("overall feedback response malformed", "error", err)
		return "Overall feedback unavailable."
	}
	return parsed
}

func fallbackGrade(sp *store.SceneProgress) (int, string) {
	if sp == nil || sp.GoalAchievementScore == nil {
		return 0, "No recorded attempt for this scene."
	}
	return *sp.GoalAchievementScore, "Scored from the recorded in-scene attempt; no grading model response was available."
}

func roundMean(sum, n int) int {
	if n == 0 {
		return 0
	}
	// integer rounding: add half the divisor before truncating division.
	return (sum + n/2) / n
}

func sceneGradingSystemPrompt(scene *store.Scene, metric string) string {
	var b strings.Builder
	b.WriteString("Grade ONLY the success metric below. The scene goal is secondary context. Ignore learning outcomes entirely.\n")
	fmt.Fprintf(&b, "Success metric: %s\n", metric)
	fmt.Fprintf(&b, "Scene goal (secondary): %s\n", scene.UserGoal)
	b.WriteString("Be moderately lenient: on-topic, good-faith attempts should score 60 or above. Completely off-topic or irrelevant responses score very low.\n")
	b.WriteString("Respond with JSON only, of the exact shape {\"score\": <0-100 integer>, \"feedback\": \"<string>\"}. No prose outside the JSON.\n")
	return b.String()
}

func overallFeedbackSystemPrompt(scenario *store.Scenario) string {
	var b strings.Builder
	b.WriteString("You are writing overall narrative feedback for a learner who just completed a simulation.\n")
	fmt.Fprintf(&b, "Learning objectives: %s\n", strings.Join(scenario.LearningObjectives, "; "))
	b.WriteString("Respond with JSON only, of the exact shape {\"overall_feedback\": \"<string>\"}. Any score you might be tempted to include is ignored by the caller -- do not include one.\n")
	return b.String()
}

type sceneGradeResponse struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

type overallFeedbackResponse struct {
	OverallFeedback string `json:"overall_feedback"`
}

// jsonFence strips a leading/trailing markdown code fence and any prose
// surrounding a JSON object, mirroring the teacher's "defensive last-line
// extraction" precedent but adapted to a strict-JSON contract: instead of
// parsing a trailing number, this isolates the outermost {...} block.
var jsonFence = regexp.MustCompile(`(?s)\{.*\}`)

func extractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	match := jsonFence.FindString(trimmed)
	if match == "" {
		return "", fmt.Errorf("no JSON object found in grading response")
	}
	return match, nil
}

func parseSceneGrade(text string) (sceneGradeResponse, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return sceneGradeResponse{}, err
	}
	var parsed sceneGradeResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return sceneGradeResponse{}, fmt.Errorf("failed to decode scene grade: %w", err)
	}
	if parsed.Score < 0 {
		parsed.Score = 0
	}
	if parsed.Score > 100 {
		parsed.Score = 100
	}
	return parsed, nil
}

func parseOverallFeedback(text string) (string, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return "", err
	}
	var parsed overallFeedbackResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return "", fmt.Errorf("failed to decode overall feedback: %w", err)
	}
	return parsed.OverallFeedback, nil
}
