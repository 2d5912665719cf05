package persona

import (
	"context"
	"errors"
	"testing"

	"github.com/codeready-toolchain/simulator/pkg/llm"
	"github.com/codeready-toolchain/simulator/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	reply   string
	err     error
	lastReq llm.Request
}

func (f *fakeClient) Name() string  { return "fake" }
func (f *fakeClient) Model() string { return "fake-model" }
func (f *fakeClient) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Content: f.reply}, nil
}

func testPersona() *store.Persona {
	return &store.Persona{
		ID:                "p1",
		Name:              "Isabel Díaz",
		Role:              "CFO",
		Background:        "Ten years in corporate finance.",
		Correlation:       "Oversees the budget in question.",
		PrimaryGoals:      []string{"Protect the Q3 budget"},
		PersonalityTraits: map[string]int{"assertiveness": 8},
	}
}

func testScene() *store.Scene {
	return &store.Scene{ID: "s1", Title: "Budget Meeting", UserGoal: "Convince the CFO to approve the budget", MaxAttempts: 5}
}

func testScenario() *store.Scenario {
	return &store.Scenario{ID: "sc1", Description: "A mid-size company facing a budget crunch."}
}

func TestRespond_Success(t *testing.T) {
	client := &fakeClient{reply: "Good morning. Let's talk numbers."}
	responder := New(client)

	reply := responder.Respond(context.Background(), testPersona(), testScene(), testScenario(), "Good morning", nil, 1)

	assert.Equal(t, "Good morning. Let's talk numbers.", reply.Text)
	assert.False(t, reply.FellBackToStock)

	require.NotEmpty(t, client.lastReq.Messages)
	systemPrompt := client.lastReq.Messages[0].Content
	assert.Contains(t, systemPrompt, "Isabel Díaz")
	assert.Contains(t, systemPrompt, "CFO")
	assert.Contains(t, systemPrompt, "assertiveness: 8/10")
	assert.Contains(t, systemPrompt, "Convince the CFO to approve the budget")
	assert.NotContains(t, systemPrompt, "s1") // never leak the scene id
}

func TestRespond_LLMFailureFallsBack(t *testing.T) {
	client := &fakeClient{err: errors.New("upstream timeout")}
	responder := New(client)

	reply := responder.Respond(context.Background(), testPersona(), testScene(), testScenario(), "hello", nil, 1)

	assert.True(t, reply.FellBackToStock)
	assert.Equal(t, fallbackReply, reply.Text)
}

func TestBuildSystemPrompt_AttemptAwareClauses(t *testing.T) {
	p := testPersona()
	scene := testScene()
	scenario := testScenario()

	low := buildSystemPrompt(p, scene, scenario, 1)
	mid := buildSystemPrompt(p, scene, scenario, 2)
	high := buildSystemPrompt(p, scene, scenario, 4)

	assert.NotContains(t, low, "tried before")
	assert.Contains(t, mid, "tried before")
	assert.Contains(t, high, "several attempts")
}
