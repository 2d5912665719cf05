package grader

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/simulator/pkg/llm"
	"github.com/codeready-toolchain/simulator/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	responses []string
	call      int
	err       error
}

func (f *fakeClient) Name() string  { return "fake" }
func (f *fakeClient) Model() string { return "fake-model" }
func (f *fakeClient) Complete(_ context.Context, _ llm.Request) (llm.Response, error) {
	if f.err != nil {
		return llm.Response{}, f.err
	}
	resp := f.responses[f.call%len(f.responses)]
	f.call++
	return llm.Response{Content: resp}, nil
}

func TestRoundMean(t *testing.T) {
	assert.Equal(t, 67, roundMean(200, 3))
	assert.Equal(t, 50, roundMean(100, 2))
	assert.Equal(t, 0, roundMean(0, 0))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain json", `{"score": 80, "feedback": "good"}`, `{"score": 80, "feedback": "good"}`},
		{"fenced json", "```json\n{\"score\": 80, \"feedback\": \"good\"}\n```", `{"score": 80, "feedback": "good"}`},
		{"prose before and after", "Here is my grade:\n{\"score\": 80, \"feedback\": \"good\"}\nThanks!", `{"score": 80, "feedback": "good"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("no json present", func(t *testing.T) {
		_, err := extractJSON("no json here at all")
		assert.Error(t, err)
	})
}

func TestParseSceneGrade_ClampsOutOfRangeScore(t *testing.T) {
	parsed, err := parseSceneGrade(`{"score": 150, "feedback": "way over"}`)
	require.NoError(t, err)
	assert.Equal(t, 100, parsed.Score)

	parsed, err = parseSceneGrade(`{"score": -10, "feedback": "way under"}`)
	require.NoError(t, err)
	assert.Equal(t, 0, parsed.Score)
}

func TestGradeScene_FallsBackWithoutClient(t *testing.T) {
	g := New(nil, nil)
	scene := &store.Scene{ID: "s1", Title: "Opening", UserGoal: "greet"}
	sp := &store.SceneProgress{GoalAchievementScore: intPtr(42)}

	grade := g.gradeScene(context.Background(), scene, "greet well", []string{"hi there"}, sp)
	assert.Equal(t, 42, grade.Score)
}

func TestGradeScene_FallsBackWhenNoMetric(t *testing.T) {
	g := New(nil, &fakeClient{responses: []string{`{"score": 90, "feedback": "n/a"}`}})
	scene := &store.Scene{ID: "s1", Title: "Opening", UserGoal: "greet"}

	grade := g.gradeScene(context.Background(), scene, "", []string{"hi there"}, nil)
	assert.Equal(t, 0, grade.Score)
}

func TestGradeScene_UsesLLMWhenAvailable(t *testing.T) {
	g := New(nil, &fakeClient{responses: []string{`{"score": 85, "feedback": "on topic, good faith attempt"}`}})
	scene := &store.Scene{ID: "s1", Title: "Opening", UserGoal: "greet"}

	grade := g.gradeScene(context.Background(), scene, "greet the CFO", []string{"Good morning, let's discuss the budget."}, nil)
	assert.Equal(t, 85, grade.Score)
	assert.Equal(t, "on topic, good faith attempt", grade.Feedback)
}

func TestOverallFeedback_DiscardsAnySuggestedScore(t *testing.T) {
	g := New(nil, &fakeClient{responses: []string{`{"overall_feedback": "Strong negotiation throughout.", "score": 99}`}})
	scenario := &store.Scenario{LearningObjectives: []string{"Negotiate under pressure"}}

	feedback := g.overallFeedback(context.Background(), scenario, []string{"hello", "let's talk numbers"})
	assert.Equal(t, "Strong negotiation throughout.", feedback)
}

func intPtr(v int) *int { return &v }
