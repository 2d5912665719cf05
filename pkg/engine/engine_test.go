package engine

import (
	"testing"

	"github.com/codeready-toolchain/simulator/pkg/store"
	"github.com/codeready-toolchain/simulator/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScene() *store.Scene {
	return &store.Scene{ID: "s1", TimeoutTurns: 5, MaxAttempts: 5}
}

func nextSceneLookup(scene *store.Scene, err error) func() (*store.Scene, error) {
	return func() (*store.Scene, error) { return scene, err }
}

func TestEvaluate_Timeout(t *testing.T) {
	e := New(DefaultPolicy)
	sp := &store.SceneProgress{}
	decision := validator.Decision{NextAction: validator.ActionContinue}

	outcome, err := e.Evaluate(TriggerValidatedTurn, decision, testScene(), 5, sp, nextSceneLookup(&store.Scene{ID: "s2"}, nil))

	require.NoError(t, err)
	assert.True(t, outcome.Advanced)
	assert.True(t, outcome.ForcedProgress)
	assert.True(t, sp.ForcedProgression)
	assert.Equal(t, store.SceneCompleted, sp.Status)
	require.NotNil(t, outcome.NextScene)
	assert.Equal(t, "s2", outcome.NextScene.ID)
}

func TestEvaluate_TimeoutWithNoNextScene_CompletesRun(t *testing.T) {
	e := New(DefaultPolicy)
	sp := &store.SceneProgress{}
	decision := validator.Decision{NextAction: validator.ActionContinue}

	outcome, err := e.Evaluate(TriggerValidatedTurn, decision, testScene(), 5, sp, nextSceneLookup(nil, nil))

	require.NoError(t, err)
	assert.True(t, outcome.Advanced)
	assert.True(t, outcome.RunCompleted)
	assert.Nil(t, outcome.NextScene)
}

func TestEvaluate_ValidatorProgressBeforeTimeout_DefaultPolicyDiscardsIt(t *testing.T) {
	e := New(DefaultPolicy)
	sp := &store.SceneProgress{}
	decision := validator.Decision{NextAction: validator.ActionProgress, ShouldProgress: true, GoalAchieved: true}

	outcome, err := e.Evaluate(TriggerValidatedTurn, decision, testScene(), 2, sp, nextSceneLookup(&store.Scene{ID: "s2"}, nil))

	require.NoError(t, err)
	assert.False(t, outcome.Advanced)
	assert.False(t, sp.ForcedProgression)
	// the observed achievement is still recorded even though advancement was discarded.
	assert.True(t, sp.GoalAchieved)
}

func TestEvaluate_ValidatorProgressBeforeTimeout_PermissivePolicyHonorsIt(t *testing.T) {
	e := New(Policy{ValidatorMayProgressBeforeTimeout: true})
	sp := &store.SceneProgress{}
	decision := validator.Decision{NextAction: validator.ActionProgress, ShouldProgress: true, GoalAchieved: true}

	outcome, err := e.Evaluate(TriggerValidatedTurn, decision, testScene(), 2, sp, nextSceneLookup(&store.Scene{ID: "s2"}, nil))

	require.NoError(t, err)
	assert.True(t, outcome.Advanced)
	assert.False(t, outcome.ForcedProgress)
	assert.Equal(t, store.SceneCompleted, sp.Status)
}

func TestEvaluate_Hint_IncrementsHintsUsed(t *testing.T) {
	e := New(DefaultPolicy)
	sp := &store.SceneProgress{HintsUsed: 1}
	decision := validator.Decision{NextAction: validator.ActionHint, HintMessage: "try mentioning the budget numbers"}

	outcome, err := e.Evaluate(TriggerValidatedTurn, decision, testScene(), 2, sp, nextSceneLookup(nil, nil))

	require.NoError(t, err)
	assert.False(t, outcome.Advanced)
	assert.Equal(t, "try mentioning the budget numbers", outcome.HintText)
	assert.Equal(t, 2, sp.HintsUsed)
}

func TestEvaluate_Continue_NoMutationBesidesGoalAchieved(t *testing.T) {
	e := New(DefaultPolicy)
	sp := &store.SceneProgress{}
	decision := validator.Decision{NextAction: validator.ActionContinue, GoalAchieved: true}

	outcome, err := e.Evaluate(TriggerValidatedTurn, decision, testScene(), 1, sp, nextSceneLookup(nil, nil))

	require.NoError(t, err)
	assert.False(t, outcome.Advanced)
	assert.Equal(t, "", outcome.HintText)
	assert.True(t, sp.GoalAchieved)
	assert.Equal(t, store.SceneProgressStatus(""), sp.Status)
}

func TestEvaluate_Submit_AdvancesWithoutValidator_NotForcedProgression(t *testing.T) {
	e := New(DefaultPolicy)
	sp := &store.SceneProgress{}

	outcome, err := e.Evaluate(TriggerSubmit, validator.Decision{}, testScene(), 1, sp, nextSceneLookup(&store.Scene{ID: "s2"}, nil))

	require.NoError(t, err)
	assert.True(t, outcome.Advanced)
	// submit is the learner choosing to move on -- forced_progression is
	// explicitly false, unlike a timeout-driven advance.
	assert.False(t, outcome.ForcedProgress)
	assert.False(t, sp.ForcedProgression)
}

func TestEvaluate_Submit_PreservesExistingGoalAchieved(t *testing.T) {
	e := New(DefaultPolicy)
	sp := &store.SceneProgress{GoalAchieved: true}

	_, err := e.Evaluate(TriggerSubmit, validator.Decision{}, testScene(), 1, sp, nextSceneLookup(nil, nil))

	require.NoError(t, err)
	assert.True(t, sp.GoalAchieved)
}

func TestEvaluate_Timeout_ForcesGoalAchievedFalse(t *testing.T) {
	e := New(DefaultPolicy)
	sp := &store.SceneProgress{GoalAchieved: true}
	decision := validator.Decision{NextAction: validator.ActionContinue}

	_, err := e.Evaluate(TriggerValidatedTurn, decision, testScene(), 5, sp, nextSceneLookup(nil, nil))

	require.NoError(t, err)
	assert.False(t, sp.GoalAchieved)
}
