package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codeready-toolchain/simulator/pkg/database"
	"github.com/codeready-toolchain/simulator/pkg/engine"
	"github.com/codeready-toolchain/simulator/pkg/grader"
	"github.com/codeready-toolchain/simulator/pkg/llm"
	"github.com/codeready-toolchain/simulator/pkg/models"
	"github.com/codeready-toolchain/simulator/pkg/orchestrator"
	"github.com/codeready-toolchain/simulator/pkg/persona"
	"github.com/codeready-toolchain/simulator/pkg/store"
	"github.com/codeready-toolchain/simulator/pkg/validator"
	testdb "github.com/codeready-toolchain/simulator/test/database"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type stubClient struct{ reply string }

func (s *stubClient) Name() string  { return "stub" }
func (s *stubClient) Model() string { return "stub-model" }
func (s *stubClient) Complete(_ context.Context, _ llm.Request) (llm.Response, error) {
	return llm.Response{Content: s.reply}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testdb.NewTestClient(t)
	st := store.New(db.DB())
	client := &stubClient{reply: "Good morning, let's talk numbers."}
	orch := orchestrator.New(st, persona.New(client), validator.New(client), engine.New(engine.DefaultPolicy))
	g := grader.New(st, client)

	return NewRouter(NewHandlers(st, orch, g)), st
}

func seedScenario(t *testing.T, st *store.Store) *store.Scenario {
	t.Helper()
	ctx := context.Background()

	scenario, err := st.CreateScenario(ctx, store.CreateScenarioInput{
		Title:              "Budget Crunch",
		Description:        "A mid-size company facing a budget shortfall.",
		LearningObjectives: []string{"Negotiate under pressure"},
	})
	require.NoError(t, err)

	p, err := st.CreatePersona(ctx, store.CreatePersonaInput{ScenarioID: scenario.ID, Name: "Isabel Diaz", Role: "CFO"})
	require.NoError(t, err)

	_, err = st.CreateScene(ctx, store.CreateSceneInput{
		ScenarioID: scenario.ID, Title: "Opening", UserGoal: "Greet the CFO",
		SceneOrder: 1, TimeoutTurns: 5, MaxAttempts: 5, PersonasInvolved: []string{p.ID},
	})
	require.NoError(t, err)

	return scenario
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealth_ReportsOK(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status database.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "healthy", status.Status)
}

func TestStartSimulation_RequiresUserIDHeader(t *testing.T) {
	r, st := newTestRouter(t)
	scenario := seedScenario(t, st)

	rec := doJSON(t, r, http.MethodPost, "/simulation/start", models.StartSimulationRequest{ScenarioID: scenario.ID}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStartSimulation_ReturnsFirstScene(t *testing.T) {
	r, st := newTestRouter(t)
	scenario := seedScenario(t, st)

	rec := doJSON(t, r, http.MethodPost, "/simulation/start", models.StartSimulationRequest{ScenarioID: scenario.ID}, "learner-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.StartSimulationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.UserProgressID)
	require.Equal(t, "Opening", resp.CurrentScene.Title)
	require.Equal(t, "waiting_for_begin", resp.SimulationStatus)
}

func TestFullFlow_StartChatAndGrade(t *testing.T) {
	r, st := newTestRouter(t)
	scenario := seedScenario(t, st)

	startRec := doJSON(t, r, http.MethodPost, "/simulation/start", models.StartSimulationRequest{ScenarioID: scenario.ID}, "learner-2")
	require.Equal(t, http.StatusOK, startRec.Code)
	var start models.StartSimulationResponse
	require.NoError(t, json.Unmarshal(startRec.Body.Bytes(), &start))

	chatRec := doJSON(t, r, http.MethodPost, "/simulation/linear-chat", models.LinearChatRequest{
		UserProgressID: start.UserProgressID,
		SceneID:        start.CurrentScene.ID,
		Message:        "Good morning, I'd like to discuss the Q3 budget.",
	}, "learner-2")
	require.Equal(t, http.StatusOK, chatRec.Code)

	progressRec := doJSON(t, r, http.MethodGet, "/simulation/progress/"+start.UserProgressID, nil, "learner-2")
	require.Equal(t, http.StatusOK, progressRec.Code)
	var snapshot models.ProgressSnapshotResponse
	require.NoError(t, json.Unmarshal(progressRec.Body.Bytes(), &snapshot))
	require.Equal(t, 1, snapshot.TurnCount)

	advanceRec := doJSON(t, r, http.MethodPost, "/simulation/progress", models.ManualProgressRequest{
		UserProgressID: start.UserProgressID,
		CurrentSceneID: start.CurrentScene.ID,
		GoalAchieved:   true,
	}, "learner-2")
	require.Equal(t, http.StatusOK, advanceRec.Code)
	var advance models.SceneProgressResponse
	require.NoError(t, json.Unmarshal(advanceRec.Body.Bytes(), &advance))
	require.True(t, advance.Success)
	require.True(t, advance.SimulationComplete)

	gradeRec := doJSON(t, r, http.MethodGet, "/simulation/grade?user_progress_id="+start.UserProgressID, nil, "learner-2")
	require.Equal(t, http.StatusOK, gradeRec.Code)
	var grade models.GradeResponse
	require.NoError(t, json.Unmarshal(gradeRec.Body.Bytes(), &grade))
	require.Len(t, grade.Scenes, 1)

	respRec := doJSON(t, r, http.MethodGet,
		"/simulation/user-responses?user_progress_id="+start.UserProgressID+"&scene_id="+start.CurrentScene.ID,
		nil, "learner-2")
	require.Equal(t, http.StatusOK, respRec.Code)
	var responses models.UserResponsesResponse
	require.NoError(t, json.Unmarshal(respRec.Body.Bytes(), &responses))
	require.Len(t, responses.Responses, 1)
}
