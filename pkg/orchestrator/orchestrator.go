// Package orchestrator implements the per-turn lifecycle (C6): the single
// entry point a turn request goes through, wiring the router, persona
// responder, goal validator, and scene progression engine together against
// one UserProgress row.
package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeready-toolchain/simulator/pkg/engine"
	"github.com/codeready-toolchain/simulator/pkg/persona"
	"github.com/codeready-toolchain/simulator/pkg/router"
	"github.com/codeready-toolchain/simulator/pkg/store"
	"github.com/codeready-toolchain/simulator/pkg/validator"
)

// recentTurnsWindow bounds how much conversation history is loaded for the
// persona and validator calls.
const recentTurnsWindow = 10

// TurnResult is the outcome of one ProcessTurn call -- the data an HTTP
// handler needs to build the linear-chat response.
type TurnResult struct {
	Reply          string
	PersonaName    string // "ChatOrchestrator" for non-persona replies
	PersonaID      *string
	SceneID        string
	SceneCompleted bool
	NextSceneID    *string
	NextScene      *store.Scene
	TurnCount      int
}

// Orchestrator wires one turn's dependencies together. A single value is
// shared by all requests and holds no per-run state -- there is no
// process-wide registry keyed by progress id; all run state lives in the
// database and is reloaded on every turn.
type Orchestrator struct {
	store     *store.Store
	responder *persona.Responder
	validator *validator.Validator
	engine    *engine.Engine
	logger    *slog.Logger
}

// New builds an Orchestrator from its component dependencies.
func New(st *store.Store, responder *persona.Responder, v *validator.Validator, eng *engine.Engine) *Orchestrator {
	return &Orchestrator{store: st, responder: responder, validator: v, engine: eng, logger: slog.With("component", "orchestrator")}
}

// ProcessTurn runs the full seven-step per-turn lifecycle inside a single
// transaction, which also serializes concurrent turns on the same progress
// row via LockProgressForTurn's SELECT ... FOR UPDATE NOWAIT.
func (o *Orchestrator) ProcessTurn(ctx context.Context, progressID, requestedSceneID, message string) (*TurnResult, error) {
	var result *TurnResult

	err := o.store.WithTx(ctx, func(tx *sql.Tx) error {
		progress, err := o.store.LockProgressForTurn(ctx, tx, progressID)
		if err != nil {
			return err
		}

		state, err := progress.RunState()
		if err != nil {
			return fmt.Errorf("failed to reconstruct run state: %w", err)
		}

		// Step 3: the client may be stale after a previous progression;
		// silently correct to the orchestrator's own view rather than
		// erroring.
		if requestedSceneID != "" && requestedSceneID != state.CurrentSceneID {
			o.logger.Info("client scene reference stale, correcting",
				"progress_id", progressID, "requested", requestedSceneID, "actual", state.CurrentSceneID)
		}

		scene, err := o.store.GetScene(ctx, state.CurrentSceneID)
		if err != nil {
			return err
		}
		snapshot, err := progress.Snapshot()
		if err != nil {
			return fmt.Errorf("failed to reconstruct scenario snapshot: %w", err)
		}

		classification := router.Classify(message)

		switch classification.Class {
		case router.ClassBegin:
			result, err = o.handleBegin(ctx, tx, progress, &state, scene, snapshot)
		case router.ClassHelp:
			result, err = o.handleHelp(ctx, progress, &state, scene)
		case router.ClassSubmit:
			result, err = o.handleSubmit(ctx, tx, progress, &state, scene)
		default:
			result, err = o.handleUserTurn(ctx, tx, progress, &state, scene, snapshot, classification, message)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ManualAdvance backs POST /simulation/progress: an explicit advance
// request issued directly by a client (rather than inferred from chat text
// via the SUBMIT_FOR_GRADING sentinel). It always evaluates as a submit
// trigger -- goalAchieved is OR'd into the scene's recorded achievement,
// and forcedProgression in the request is advisory only: a client-issued
// advance is never a timeout-style forced progression, so the engine's
// submit path always records forced_progression=false regardless.
func (o *Orchestrator) ManualAdvance(ctx context.Context, progressID, currentSceneID string, goalAchieved, _ bool) (*TurnResult, error) {
	var result *TurnResult

	err := o.store.WithTx(ctx, func(tx *sql.Tx) error {
		progress, err := o.store.LockProgressForTurn(ctx, tx, progressID)
		if err != nil {
			return err
		}
		state, err := progress.RunState()
		if err != nil {
			return fmt.Errorf("failed to reconstruct run state: %w", err)
		}
		scene, err := o.store.GetScene(ctx, currentSceneID)
		if err != nil {
			return err
		}
		sp, err := o.store.GetSceneProgress(ctx, tx, progress.ID, scene.ID)
		if err != nil {
			return err
		}
		sp.GoalAchieved = sp.GoalAchieved || goalAchieved

		outcome, err := o.engine.Evaluate(engine.TriggerSubmit, validator.Decision{}, scene, state.TurnCount, sp, func() (*store.Scene, error) {
			return o.store.GetNextScene(ctx, scene.ScenarioID, scene.SceneOrder)
		})
		if err != nil {
			return err
		}
		if err := o.store.UpdateSceneProgress(ctx, tx, sp); err != nil {
			return err
		}

		result, err = o.applyAdvancement(ctx, tx, progress, &state, scene, outcome, "", nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) handleBegin(ctx context.Context, tx *sql.Tx, progress *store.UserProgress, state *store.RunState, scene *store.Scene, snapshot store.ScenarioSnapshot) (*TurnResult, error) {
	state.SimulationStarted = true
	store.SaveOrchestratorState(progress, *state)

	if progress.Status == store.ProgressWaitingForBegin {
		progress.Status = store.ProgressInProgress
	}
	if err := o.persistProgress(ctx, tx, progress); err != nil {
		return nil, err
	}

	return &TurnResult{
		Reply:       buildPrologue(snapshot, scene),
		PersonaName: "ChatOrchestrator",
		SceneID:     scene.ID,
		TurnCount:   state.TurnCount,
	}, nil
}

func (o *Orchestrator) handleHelp(_ context.Context, progress *store.UserProgress, state *store.RunState, scene *store.Scene) (*TurnResult, error) {
	return &TurnResult{
		Reply:       buildHelpText(scene, state.TurnCount),
		PersonaName: "ChatOrchestrator",
		SceneID:     scene.ID,
		TurnCount:   state.TurnCount,
	}, nil
}

func (o *Orchestrator) handleSubmit(ctx context.Context, tx *sql.Tx, progress *store.UserProgress, state *store.RunState, scene *store.Scene) (*TurnResult, error) {
	sp, err := o.store.GetSceneProgress(ctx, tx, progress.ID, scene.ID)
	if err != nil {
		return nil, err
	}

	outcome, err := o.engine.Evaluate(engine.TriggerSubmit, validator.Decision{}, scene, state.TurnCount, sp, func() (*store.Scene, error) {
		return o.store.GetNextScene(ctx, scene.ScenarioID, scene.SceneOrder)
	})
	if err != nil {
		return nil, err
	}
	if err := o.store.UpdateSceneProgress(ctx, tx, sp); err != nil {
		return nil, err
	}

	result, err := o.applyAdvancement(ctx, tx, progress, state, scene, outcome, "", nil)
	if err != nil {
		return nil, err
	}
	result.PersonaName = "ChatOrchestrator"
	return result, nil
}

func (o *Orchestrator) handleUserTurn(ctx context.Context, tx *sql.Tx, progress *store.UserProgress, state *store.RunState, scene *store.Scene, snapshot store.ScenarioSnapshot, classification router.Classification, message string) (*TurnResult, error) {
	state.TurnCount++
	progress.TotalAttempts++

	if _, err := o.store.AppendConversationLog(ctx, tx, store.AppendConversationLogInput{
		ProgressID:     progress.ID,
		SceneID:        scene.ID,
		MessageType:    store.MessageUser,
		SenderName:     progress.UserID,
		MessageContent: message,
		AttemptNumber:  state.TurnCount,
	}); err != nil {
		return nil, err
	}

	sp, err := o.store.GetSceneProgress(ctx, tx, progress.ID, scene.ID)
	if err != nil {
		return nil, err
	}
	sp.Attempts++
	sp.MessagesSent++

	recentTurns, err := o.store.ListRecentTurns(ctx, progress.ID, scene.ID, recentTurnsWindow)
	if err != nil {
		return nil, err
	}
	involved, err := o.store.ListPersonasInvolved(ctx, scene.ID)
	if err != nil {
		return nil, err
	}

	replyText, personaName, personaID := o.generateReply(ctx, classification, involved, snapshot.Scenario.Description, scene, message, recentTurns, sp.Attempts)
	sp.AIResponses++

	scenarioObjectives := snapshot.Scenario.LearningObjectives
	decision := o.validator.Evaluate(ctx, scene, scenarioObjectives, message, recentTurns, sp.Attempts)
	sp.GoalAchieved = sp.GoalAchieved || decision.GoalAchieved

	outcome, err := o.engine.Evaluate(engine.TriggerValidatedTurn, decision, scene, state.TurnCount, sp, func() (*store.Scene, error) {
		return o.store.GetNextScene(ctx, scene.ScenarioID, scene.SceneOrder)
	})
	if err != nil {
		return nil, err
	}
	if outcome.HintText != "" {
		replyText = strings.TrimSpace(replyText + "\n\n" + outcome.HintText)
		progress.HintsUsed++
	}

	if err := o.store.UpdateSceneProgress(ctx, tx, sp); err != nil {
		return nil, err
	}

	if _, err := o.store.AppendConversationLog(ctx, tx, store.AppendConversationLogInput{
		ProgressID:     progress.ID,
		SceneID:        scene.ID,
		MessageType:    store.MessageAIPersona,
		SenderName:     personaName,
		PersonaID:      personaID,
		MessageContent: replyText,
		AttemptNumber:  sp.Attempts,
	}); err != nil {
		return nil, err
	}

	result, err := o.applyAdvancement(ctx, tx, progress, state, scene, outcome, replyText, personaID)
	if err != nil {
		return nil, err
	}
	result.PersonaName = personaName
	return result, nil
}

// generateReply routes to the persona responder for a mention, or a
// generic orchestrator nudge for plain text, per §4.2. involved must already
// be sorted by DeclarationOrder (ListPersonasInvolved guarantees this), so
// ambiguous mentions resolve to the first-declared match.
func (o *Orchestrator) generateReply(ctx context.Context, classification router.Classification, involved []*store.Persona, scenarioDescription string, scene *store.Scene, message string, recentTurns []*store.ConversationLog, attempt int) (text, personaName string, personaID *string) {
	if classification.Class == router.ClassMention {
		if p, ok := router.ResolveMention(involved, classification.MentionToken); ok {
			reply := o.responder.Respond(ctx, p, scene, &store.Scenario{ID: p.ScenarioID, Description: scenarioDescription}, message, recentTurns, attempt)
			id := p.ID
			return reply.Text, p.Name, &id
		}
	}
	return buildOrchestratorNudge(scene, involved), "ChatOrchestrator", nil
}

func (o *Orchestrator) applyAdvancement(ctx context.Context, tx *sql.Tx, progress *store.UserProgress, state *store.RunState, scene *store.Scene, outcome engine.Outcome, reply string, personaID *string) (*TurnResult, error) {
	result := &TurnResult{Reply: reply, SceneID: scene.ID, PersonaID: personaID, TurnCount: state.TurnCount}

	if !outcome.Advanced {
		store.SaveOrchestratorState(progress, *state)
		if err := o.persistProgress(ctx, tx, progress); err != nil {
			return nil, err
		}
		return result, nil
	}

	result.SceneCompleted = true
	progress.ScenesCompleted = append(progress.ScenesCompleted, scene.ID)
	if outcome.ForcedProgress {
		progress.ForcedProgressions++
	}

	if outcome.RunCompleted {
		now := time.Now()
		progress.Status = store.ProgressCompleted
		progress.CompletedAt = &now
		progress.CurrentSceneID = nil
		state.TurnCount = 0
		store.SaveOrchestratorState(progress, *state)
		if err := o.persistProgress(ctx, tx, progress); err != nil {
			return nil, err
		}
		return result, nil
	}

	next := outcome.NextScene
	if _, err := o.store.CreateSceneProgress(ctx, tx, progress.ID, next.ID); err != nil {
		return nil, err
	}

	state.CurrentSceneID = next.ID
	state.CurrentSceneIndex = next.SceneOrder
	state.TurnCount = 0
	store.SaveOrchestratorState(progress, *state)
	progress.CurrentSceneID = &next.ID

	if err := o.persistProgress(ctx, tx, progress); err != nil {
		return nil, err
	}

	result.NextSceneID = &next.ID
	result.NextScene = next
	result.TurnCount = 0
	return result, nil
}

func (o *Orchestrator) persistProgress(ctx context.Context, tx *sql.Tx, progress *store.UserProgress) error {
	return o.store.UpdateProgress(ctx, tx, progress.ID, store.UpdateProgressInput{
		CurrentSceneID:     progress.CurrentSceneID,
		Status:             progress.Status,
		ScenesCompleted:    progress.ScenesCompleted,
		TotalAttempts:      progress.TotalAttempts,
		HintsUsed:          progress.HintsUsed,
		ForcedProgressions: progress.ForcedProgressions,
		OrchestratorData:   progress.OrchestratorData,
		CompletedAt:        progress.CompletedAt,
	})
}

func buildPrologue(snapshot store.ScenarioSnapshot, scene *store.Scene) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", snapshot.Scenario.Title)
	b.WriteString(snapshot.Scenario.Description)
	if snapshot.Scenario.Challenge != "" {
		fmt.Fprintf(&b, "\n\nThe challenge: %s", snapshot.Scenario.Challenge)
	}
	b.WriteString("\n\nYou're stepping into: " + scene.Title)
	if scene.Description != "" {
		b.WriteString(". " + scene.Description)
	}
	if names := personaNamesForScene(snapshot, scene); len(names) > 0 {
		fmt.Fprintf(&b, "\n\nIn the room: %s. Address anyone directly with @name.", strings.Join(names, ", "))
	}
	return b.String()
}

func buildHelpText(scene *store.Scene, turnCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current goal: %s\n", scene.UserGoal)
	remaining := scene.TimeoutTurns - turnCount
	if remaining < 0 {
		remaining = 0
	}
	fmt.Fprintf(&b, "Turns remaining in this scene: %d\n", remaining)
	b.WriteString("Type SUBMIT_FOR_GRADING to move on, or address a character with @name.")
	return b.String()
}

func buildOrchestratorNudge(scene *store.Scene, involved []*store.Persona) string {
	var b strings.Builder
	b.WriteString("I'm not a character in this scene -- ")
	if len(involved) > 0 {
		names := make([]string, len(involved))
		for i, p := range involved {
			names[i] = "@" + p.MentionID
		}
		fmt.Fprintf(&b, "try addressing %s directly. ", strings.Join(names, " or "))
	}
	fmt.Fprintf(&b, "Your goal here: %s", scene.UserGoal)
	return b.String()
}

func personaNamesForScene(snapshot store.ScenarioSnapshot, scene *store.Scene) []string {
	for _, s := range snapshot.Scenes {
		if s.ID == scene.ID {
			return s.PersonasInvolved
		}
	}
	return nil
}
