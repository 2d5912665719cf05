package orchestrator

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/simulator/pkg/engine"
	"github.com/codeready-toolchain/simulator/pkg/llm"
	"github.com/codeready-toolchain/simulator/pkg/persona"
	"github.com/codeready-toolchain/simulator/pkg/router"
	"github.com/codeready-toolchain/simulator/pkg/store"
	"github.com/codeready-toolchain/simulator/pkg/validator"
	testdb "github.com/codeready-toolchain/simulator/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient answers every Complete call with a fixed reply, never
// exercising the JSON tool-call path -- used so the goal validator always
// falls back to "continue" and the plain four-rule timeout path drives
// scene advancement deterministically.
type stubClient struct{ reply string }

func (s *stubClient) Name() string  { return "stub" }
func (s *stubClient) Model() string { return "stub-model" }
func (s *stubClient) Complete(_ context.Context, _ llm.Request) (llm.Response, error) {
	return llm.Response{Content: s.reply}, nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *store.Store) {
	t.Helper()
	db := testdb.NewTestClient(t)
	st := store.New(db.DB())
	client := &stubClient{reply: "Let's discuss the numbers."}
	return New(st, persona.New(client), validator.New(client), engine.New(engine.DefaultPolicy)), st
}

func seedScenario(t *testing.T, st *store.Store) (*store.Scenario, []*store.Scene, *store.Persona) {
	t.Helper()
	ctx := context.Background()

	scenario, err := st.CreateScenario(ctx, store.CreateScenarioInput{
		Title:              "Budget Crunch",
		Description:        "A mid-size company facing a budget shortfall.",
		Challenge:          "Convince finance to approve the Q3 budget.",
		LearningObjectives: []string{"Negotiate under pressure"},
	})
	require.NoError(t, err)

	persona1, err := st.CreatePersona(ctx, store.CreatePersonaInput{
		ScenarioID: scenario.ID,
		Name:       "Isabel Diaz",
		Role:       "CFO",
	})
	require.NoError(t, err)

	scene1, err := st.CreateScene(ctx, store.CreateSceneInput{
		ScenarioID:       scenario.ID,
		Title:            "Opening Meeting",
		UserGoal:         "Greet the CFO and state your case",
		SceneOrder:       1,
		TimeoutTurns:     2,
		MaxAttempts:      5,
		PersonasInvolved: []string{persona1.ID},
	})
	require.NoError(t, err)

	scene2, err := st.CreateScene(ctx, store.CreateSceneInput{
		ScenarioID:       scenario.ID,
		Title:            "Follow-up",
		UserGoal:         "Close the deal",
		SceneOrder:       2,
		TimeoutTurns:     3,
		MaxAttempts:      5,
		PersonasInvolved: []string{persona1.ID},
	})
	require.NoError(t, err)

	return scenario, []*store.Scene{scene1, scene2}, persona1
}

func TestProcessTurn_Begin(t *testing.T) {
	o, st := newTestOrchestrator(t)
	ctx := context.Background()
	scenario, scenes, _ := seedScenario(t, st)

	progress, err := st.StartSimulation(ctx, "user-1", scenario.ID)
	require.NoError(t, err)

	result, err := o.ProcessTurn(ctx, progress.ID, scenes[0].ID, "begin")
	require.NoError(t, err)
	assert.Equal(t, "ChatOrchestrator", result.PersonaName)
	assert.Contains(t, result.Reply, scenario.Title)
	assert.Equal(t, 0, result.TurnCount)
	assert.False(t, result.SceneCompleted)

	reloaded, err := st.GetProgress(ctx, progress.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ProgressInProgress, reloaded.Status)
}

func TestProcessTurn_Help(t *testing.T) {
	o, st := newTestOrchestrator(t)
	ctx := context.Background()
	scenario, scenes, _ := seedScenario(t, st)
	progress, err := st.StartSimulation(ctx, "user-2", scenario.ID)
	require.NoError(t, err)

	result, err := o.ProcessTurn(ctx, progress.ID, scenes[0].ID, "help")
	require.NoError(t, err)
	assert.Contains(t, result.Reply, "Current goal")
	assert.Equal(t, 0, result.TurnCount)
}

func TestProcessTurn_Mention_IncrementsTurnCountAndLogsReply(t *testing.T) {
	o, st := newTestOrchestrator(t)
	ctx := context.Background()
	scenario, scenes, p := seedScenario(t, st)
	progress, err := st.StartSimulation(ctx, "user-3", scenario.ID)
	require.NoError(t, err)

	result, err := o.ProcessTurn(ctx, progress.ID, scenes[0].ID, "@"+p.MentionID+" good morning, let's talk about the budget shortfall")
	require.NoError(t, err)
	assert.Equal(t, p.Name, result.PersonaName)
	require.NotNil(t, result.PersonaID)
	assert.Equal(t, p.ID, *result.PersonaID)
	assert.Equal(t, 1, result.TurnCount)
	assert.False(t, result.SceneCompleted)

	logs, err := st.ListRecentTurns(ctx, progress.ID, scenes[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, store.MessageUser, logs[0].MessageType)
	assert.Equal(t, store.MessageAIPersona, logs[1].MessageType)
}

func TestProcessTurn_Timeout_AdvancesToNextScene(t *testing.T) {
	o, st := newTestOrchestrator(t)
	ctx := context.Background()
	scenario, scenes, p := seedScenario(t, st)
	progress, err := st.StartSimulation(ctx, "user-4", scenario.ID)
	require.NoError(t, err)

	// scene 1 has timeout_turns=2; the second user turn should force
	// advancement to scene 2 regardless of the (stubbed) validator result.
	_, err = o.ProcessTurn(ctx, progress.ID, scenes[0].ID, "@"+p.MentionID+" hello there, first message")
	require.NoError(t, err)

	result, err := o.ProcessTurn(ctx, progress.ID, scenes[0].ID, "@"+p.MentionID+" second message reaching the timeout")
	require.NoError(t, err)
	assert.True(t, result.SceneCompleted)
	require.NotNil(t, result.NextSceneID)
	assert.Equal(t, scenes[1].ID, *result.NextSceneID)
	assert.Equal(t, 0, result.TurnCount)

	reloaded, err := st.GetProgress(ctx, progress.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.ForcedProgressions)
	assert.Contains(t, reloaded.ScenesCompleted, scenes[0].ID)
}

func TestProcessTurn_Submit_ForceAdvancesWithoutIncrementingForcedProgressions(t *testing.T) {
	o, st := newTestOrchestrator(t)
	ctx := context.Background()
	scenario, scenes, _ := seedScenario(t, st)
	progress, err := st.StartSimulation(ctx, "user-5", scenario.ID)
	require.NoError(t, err)

	result, err := o.ProcessTurn(ctx, progress.ID, scenes[0].ID, router.SubmitForGradingSentinel)
	require.NoError(t, err)
	assert.True(t, result.SceneCompleted)
	require.NotNil(t, result.NextSceneID)
	assert.Equal(t, scenes[1].ID, *result.NextSceneID)

	reloaded, err := st.GetProgress(ctx, progress.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.ForcedProgressions)

	// submit is a control class: it must never be logged as a user message.
	logs, err := st.ListRecentTurns(ctx, progress.ID, scenes[0].ID, 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestProcessTurn_CompletesRunAfterLastScene(t *testing.T) {
	o, st := newTestOrchestrator(t)
	ctx := context.Background()
	scenario, scenes, _ := seedScenario(t, st)
	progress, err := st.StartSimulation(ctx, "user-6", scenario.ID)
	require.NoError(t, err)

	_, err = o.ProcessTurn(ctx, progress.ID, scenes[0].ID, router.SubmitForGradingSentinel)
	require.NoError(t, err)

	result, err := o.ProcessTurn(ctx, progress.ID, scenes[1].ID, router.SubmitForGradingSentinel)
	require.NoError(t, err)
	assert.True(t, result.SceneCompleted)
	assert.Nil(t, result.NextSceneID)

	reloaded, err := st.GetProgress(ctx, progress.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ProgressCompleted, reloaded.Status)
	assert.NotNil(t, reloaded.CompletedAt)
}

func TestProcessTurn_RejectsTurnOnCompletedRun(t *testing.T) {
	o, st := newTestOrchestrator(t)
	ctx := context.Background()
	scenario, scenes, _ := seedScenario(t, st)
	progress, err := st.StartSimulation(ctx, "user-7", scenario.ID)
	require.NoError(t, err)

	_, err = o.ProcessTurn(ctx, progress.ID, scenes[0].ID, router.SubmitForGradingSentinel)
	require.NoError(t, err)
	_, err = o.ProcessTurn(ctx, progress.ID, scenes[1].ID, router.SubmitForGradingSentinel)
	require.NoError(t, err)

	_, err = o.ProcessTurn(ctx, progress.ID, scenes[1].ID, "hello again")
	assert.ErrorIs(t, err, store.ErrProgressCompleted)
}
