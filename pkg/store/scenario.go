package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateScenarioInput carries the fields needed to create a Scenario.
type CreateScenarioInput struct {
	Title              string
	Description        string
	Challenge          string
	Industry           string
	StudentRole        string
	LearningObjectives []string
}

// CreateScenario inserts a new Scenario and returns it with a generated id.
func (s *Store) CreateScenario(ctx context.Context, in CreateScenarioInput) (*Scenario, error) {
	if in.Title == "" {
		return nil, NewValidationError("title", "required")
	}
	if in.Description == "" {
		return nil, NewValidationError("description", "required")
	}

	objectives := in.LearningObjectives
	if objectives == nil {
		objectives = []string{}
	}
	objectivesJSON, err := json.Marshal(objectives)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal learning_objectives: %w", err)
	}

	scenario := &Scenario{
		ID:                 uuid.New().String(),
		Title:              in.Title,
		Description:        in.Description,
		Challenge:          in.Challenge,
		Industry:           in.Industry,
		StudentRole:        in.StudentRole,
		LearningObjectives: objectives,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scenarios (scenario_id, title, description, challenge, industry, student_role, learning_objectives)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, scenario.ID, scenario.Title, scenario.Description, scenario.Challenge, scenario.Industry, scenario.StudentRole, objectivesJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario: %w", err)
	}

	return scenario, nil
}

// CreateSceneInput carries the fields needed to create a Scene.
type CreateSceneInput struct {
	ScenarioID       string
	Title            string
	Description      string
	UserGoal         string
	SuccessMetric    *string
	SceneOrder       int
	TimeoutTurns     int
	MaxAttempts      int
	PersonasInvolved []string // persona IDs; must already exist for ScenarioID
}

// CreateScene inserts a new Scene, including its persona involvement rows.
func (s *Store) CreateScene(ctx context.Context, in CreateSceneInput) (*Scene, error) {
	if in.UserGoal == "" {
		return nil, NewValidationError("user_goal", "required")
	}
	if in.TimeoutTurns < 1 {
		in.TimeoutTurns = 15
	}
	if in.MaxAttempts < 1 {
		in.MaxAttempts = 5
	}

	scene := &Scene{
		ID:               uuid.New().String(),
		ScenarioID:       in.ScenarioID,
		Title:            in.Title,
		Description:      in.Description,
		UserGoal:         in.UserGoal,
		SuccessMetric:    in.SuccessMetric,
		SceneOrder:       in.SceneOrder,
		TimeoutTurns:     in.TimeoutTurns,
		MaxAttempts:      in.MaxAttempts,
		PersonasInvolved: in.PersonasInvolved,
	}

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scenes (scene_id, scenario_id, title, description, user_goal, success_metric, scene_order, timeout_turns, max_attempts)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, scene.ID, scene.ScenarioID, scene.Title, scene.Description, scene.UserGoal, scene.SuccessMetric, scene.SceneOrder, scene.TimeoutTurns, scene.MaxAttempts)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: scene_order %d already used in scenario %s", ErrAlreadyExists, scene.SceneOrder, scene.ScenarioID)
			}
			return fmt.Errorf("failed to create scene: %w", err)
		}

		for _, personaID := range in.PersonasInvolved {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO scene_personas (scene_id, persona_id) VALUES ($1, $2)
			`, scene.ID, personaID); err != nil {
				return fmt.Errorf("failed to link persona %s to scene: %w", personaID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return scene, nil
}

// CreatePersonaInput carries the fields needed to create a Persona.
type CreatePersonaInput struct {
	ScenarioID        string
	Name              string
	Role              string
	Background        string
	Correlation       string
	PrimaryGoals      []string
	PersonalityTraits map[string]int
	DeclarationOrder  int
}

// CreatePersona inserts a new Persona, deriving its stable mention id from Name.
func (s *Store) CreatePersona(ctx context.Context, in CreatePersonaInput) (*Persona, error) {
	if in.Name == "" {
		return nil, NewValidationError("name", "required")
	}

	goals := in.PrimaryGoals
	if goals == nil {
		goals = []string{}
	}
	traits := in.PersonalityTraits
	if traits == nil {
		traits = map[string]int{}
	}
	goalsJSON, err := json.Marshal(goals)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal primary_goals: %w", err)
	}
	traitsJSON, err := json.Marshal(traits)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal personality_traits: %w", err)
	}

	persona := &Persona{
		ID:                uuid.New().String(),
		ScenarioID:        in.ScenarioID,
		Name:              in.Name,
		MentionID:         DeriveMentionID(in.Name),
		Role:              in.Role,
		Background:        in.Background,
		Correlation:       in.Correlation,
		PrimaryGoals:      goals,
		PersonalityTraits: traits,
		DeclarationOrder:  in.DeclarationOrder,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO personas (persona_id, scenario_id, name, mention_id, role, background, correlation, primary_goals, personality_traits, declaration_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, persona.ID, persona.ScenarioID, persona.Name, persona.MentionID, persona.Role, persona.Background, persona.Correlation, goalsJSON, traitsJSON, persona.DeclarationOrder)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: mention id %q already used in scenario %s", ErrAlreadyExists, persona.MentionID, persona.ScenarioID)
		}
		return nil, fmt.Errorf("failed to create persona: %w", err)
	}

	return persona, nil
}

// GetScenario loads a Scenario by id.
func (s *Store) GetScenario(ctx context.Context, scenarioID string) (*Scenario, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT scenario_id, title, description, challenge, industry, student_role, learning_objectives, created_at
		FROM scenarios WHERE scenario_id = $1
	`, scenarioID)
	return scanScenario(row)
}

func scanScenario(row *sql.Row) (*Scenario, error) {
	var sc Scenario
	var objectivesJSON []byte
	if err := row.Scan(&sc.ID, &sc.Title, &sc.Description, &sc.Challenge, &sc.Industry, &sc.StudentRole, &objectivesJSON, &sc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScenarioNotFound
		}
		return nil, fmt.Errorf("failed to scan scenario: %w", err)
	}
	if err := json.Unmarshal(objectivesJSON, &sc.LearningObjectives); err != nil {
		return nil, fmt.Errorf("failed to unmarshal learning_objectives: %w", err)
	}
	return &sc, nil
}

// ListScenes returns every Scene for a scenario, ordered by scene_order.
func (s *Store) ListScenes(ctx context.Context, scenarioID string) ([]*Scene, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scene_id, scenario_id, title, description, user_goal, success_metric, scene_order, timeout_turns, max_attempts
		FROM scenes WHERE scenario_id = $1 ORDER BY scene_order ASC
	`, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	defer rows.Close()

	var scenes []*Scene
	for rows.Next() {
		var sc Scene
		if err := rows.Scan(&sc.ID, &sc.ScenarioID, &sc.Title, &sc.Description, &sc.UserGoal, &sc.SuccessMetric, &sc.SceneOrder, &sc.TimeoutTurns, &sc.MaxAttempts); err != nil {
			return nil, fmt.Errorf("failed to scan scene: %w", err)
		}
		scenes = append(scenes, &sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, sc := range scenes {
		involved, err := s.ListPersonasInvolved(ctx, sc.ID)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(involved))
		for i, p := range involved {
			ids[i] = p.ID
		}
		sc.PersonasInvolved = ids
	}

	return scenes, nil
}

// GetScene loads a single Scene by id.
func (s *Store) GetScene(ctx context.Context, sceneID string) (*Scene, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT scene_id, scenario_id, title, description, user_goal, success_metric, scene_order, timeout_turns, max_attempts
		FROM scenes WHERE scene_id = $1
	`, sceneID)

	var sc Scene
	if err := row.Scan(&sc.ID, &sc.ScenarioID, &sc.Title, &sc.Description, &sc.UserGoal, &sc.SuccessMetric, &sc.SceneOrder, &sc.TimeoutTurns, &sc.MaxAttempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSceneNotFound
		}
		return nil, fmt.Errorf("failed to scan scene: %w", err)
	}
	return &sc, nil
}

// GetFirstScene returns the scene with the minimum scene_order for a scenario.
func (s *Store) GetFirstScene(ctx context.Context, scenarioID string) (*Scene, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT scene_id, scenario_id, title, description, user_goal, success_metric, scene_order, timeout_turns, max_attempts
		FROM scenes WHERE scenario_id = $1 ORDER BY scene_order ASC LIMIT 1
	`, scenarioID)

	var sc Scene
	if err := row.Scan(&sc.ID, &sc.ScenarioID, &sc.Title, &sc.Description, &sc.UserGoal, &sc.SuccessMetric, &sc.SceneOrder, &sc.TimeoutTurns, &sc.MaxAttempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSceneHasNoScenes
		}
		return nil, fmt.Errorf("failed to scan first scene: %w", err)
	}
	return &sc, nil
}

// GetNextScene returns the scene immediately after currentOrder, if any.
func (s *Store) GetNextScene(ctx context.Context, scenarioID string, currentOrder int) (*Scene, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT scene_id, scenario_id, title, description, user_goal, success_metric, scene_order, timeout_turns, max_attempts
		FROM scenes WHERE scenario_id = $1 AND scene_order > $2 ORDER BY scene_order ASC LIMIT 1
	`, scenarioID, currentOrder)

	var sc Scene
	if err := row.Scan(&sc.ID, &sc.ScenarioID, &sc.Title, &sc.Description, &sc.UserGoal, &sc.SuccessMetric, &sc.SceneOrder, &sc.TimeoutTurns, &sc.MaxAttempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // no next scene: caller treats this as "run complete"
		}
		return nil, fmt.Errorf("failed to scan next scene: %w", err)
	}
	return &sc, nil
}

// ListPersonas returns every Persona for a scenario, in declaration order.
func (s *Store) ListPersonas(ctx context.Context, scenarioID string) ([]*Persona, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT persona_id, scenario_id, name, mention_id, role, background, correlation, primary_goals, personality_traits, declaration_order
		FROM personas WHERE scenario_id = $1 ORDER BY declaration_order ASC
	`, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()
	return scanPersonas(rows)
}

// ListPersonasInvolved returns the personas involved in a scene, in
// scenario-wide declaration order (the order mention resolution ties break on).
func (s *Store) ListPersonasInvolved(ctx context.Context, sceneID string) ([]*Persona, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.persona_id, p.scenario_id, p.name, p.mention_id, p.role, p.background, p.correlation, p.primary_goals, p.personality_traits, p.declaration_order
		FROM personas p
		JOIN scene_personas sp ON sp.persona_id = p.persona_id
		WHERE sp.scene_id = $1
		ORDER BY p.declaration_order ASC
	`, sceneID)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas involved: %w", err)
	}
	defer rows.Close()
	return scanPersonas(rows)
}

func scanPersonas(rows *sql.Rows) ([]*Persona, error) {
	var personas []*Persona
	for rows.Next() {
		var p Persona
		var goalsJSON, traitsJSON []byte
		if err := rows.Scan(&p.ID, &p.ScenarioID, &p.Name, &p.MentionID, &p.Role, &p.Background, &p.Correlation, &goalsJSON, &traitsJSON, &p.DeclarationOrder); err != nil {
			return nil, fmt.Errorf("failed to scan persona: %w", err)
		}
		if err := json.Unmarshal(goalsJSON, &p.PrimaryGoals); err != nil {
			return nil, fmt.Errorf("failed to unmarshal primary_goals: %w", err)
		}
		if err := json.Unmarshal(traitsJSON, &p.PersonalityTraits); err != nil {
			return nil, fmt.Errorf("failed to unmarshal personality_traits: %w", err)
		}
		personas = append(personas, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return personas, nil
}

func isUniqueViolation(err error) bool {
	// pgx/v5/stdlib surfaces *pgconn.PgError; code 23505 is unique_violation.
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
