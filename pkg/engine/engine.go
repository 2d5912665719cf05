// Package engine implements the scene progression engine (C5): the single
// authority for scene-state transitions.
package engine

import (
	"time"

	"github.com/codeready-toolchain/simulator/pkg/store"
	"github.com/codeready-toolchain/simulator/pkg/validator"
)

// Policy carries the configurable behavior decisions named in the design
// notes. ValidatorMayProgressBeforeTimeout answers the open question on the
// interplay between "validator wants progress" and "turn budget not
// reached": the default (false) is "turn budget wins" -- a validator
// progress signal before timeout is discarded, not honored.
type Policy struct {
	ValidatorMayProgressBeforeTimeout bool
}

// DefaultPolicy is "turn budget wins".
var DefaultPolicy = Policy{ValidatorMayProgressBeforeTimeout: false}

// Trigger is why the engine is being asked to evaluate a turn.
type Trigger int

const (
	// TriggerValidatedTurn runs the full four-rule evaluation after a
	// mention/plain user turn and its validator decision.
	TriggerValidatedTurn Trigger = iota
	// TriggerSubmit skips the validator entirely and force-advances,
	// mirroring the `submit` classification's contract.
	TriggerSubmit
)

// Outcome is the result of one evaluation: whether the scene advanced and
// what (if anything) should be appended to the reply.
type Outcome struct {
	Advanced       bool
	ForcedProgress bool
	HintText       string
	NextScene      *store.Scene // nil if advancement completed the run
	RunCompleted   bool
}

// Engine applies Policy to validator decisions and scene-progress records.
type Engine struct {
	policy Policy
}

// New creates an Engine with the given policy.
func New(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Evaluate applies the four-rule evaluation order (first true wins) and
// mutates sp in place. It does not touch the store -- callers persist sp
// afterward inside their own transaction.
func (e *Engine) Evaluate(
	trigger Trigger,
	decision validator.Decision,
	scene *store.Scene,
	turnCount int,
	sp *store.SceneProgress,
	nextSceneLookup func() (*store.Scene, error),
) (Outcome, error) {
	if trigger == TriggerSubmit {
		// forced_progression is explicitly false for a submit -- this is
		// the learner choosing to move on, not the system forcing them.
		// goal_achieved is left as whatever the scene already recorded.
		sp.ForcedProgression = false
		return e.advance(scene, sp, nextSceneLookup)
	}

	// Rule 1: timeout.
	if turnCount >= scene.TimeoutTurns {
		sp.ForcedProgression = true
		sp.GoalAchieved = false
		return e.advance(scene, sp, nextSceneLookup)
	}

	// Rule 2: validator wants progress. Honored, at any turn count, only
	// when the policy lets the validator advance before timeout; under the
	// default policy the signal is discarded here (a reached budget is
	// already handled by rule 1).
	validatorWantsProgress := decision.ShouldProgress ||
		decision.NextAction == validator.ActionProgress ||
		decision.NextAction == validator.ActionForceProgress
	if validatorWantsProgress && e.policy.ValidatorMayProgressBeforeTimeout {
		sp.GoalAchieved = sp.GoalAchieved || decision.GoalAchieved
		return e.advance(scene, sp, nextSceneLookup)
	}

	// Rule 3: validator wants to surface a hint.
	if decision.NextAction == validator.ActionHint && decision.HintMessage != "" {
		sp.HintsUsed++
		return Outcome{HintText: decision.HintMessage}, nil
	}

	// Rule 4: continue in scene.
	sp.GoalAchieved = sp.GoalAchieved || decision.GoalAchieved
	return Outcome{}, nil
}

func (e *Engine) advance(scene *store.Scene, sp *store.SceneProgress, nextSceneLookup func() (*store.Scene, error)) (Outcome, error) {
	now := time.Now()
	sp.Status = store.SceneCompleted
	sp.CompletedAt = &now

	next, err := nextSceneLookup()
	if err != nil {
		return Outcome{}, err
	}
	if next == nil {
		return Outcome{Advanced: true, ForcedProgress: sp.ForcedProgression, RunCompleted: true}, nil
	}
	return Outcome{Advanced: true, ForcedProgress: sp.ForcedProgression, NextScene: next}, nil
}
