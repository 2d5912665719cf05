package router

import (
	"testing"

	"github.com/codeready-toolchain/simulator/pkg/store"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantClass    Class
		wantMention  string
		wantUserTurn bool
	}{
		{name: "begin exact", text: "begin", wantClass: ClassBegin},
		{name: "begin case insensitive", text: "BEGIN", wantClass: ClassBegin},
		{name: "begin trims whitespace", text: "  begin  ", wantClass: ClassBegin},
		{name: "help exact", text: "help", wantClass: ClassHelp},
		{name: "help case insensitive", text: "Help", wantClass: ClassHelp},
		{name: "submit sentinel", text: "SUBMIT_FOR_GRADING", wantClass: ClassSubmit},
		{name: "submit sentinel case insensitive", text: "submit_for_grading", wantClass: ClassSubmit},
		{name: "mention", text: "@cfo good morning", wantClass: ClassMention, wantMention: "cfo", wantUserTurn: true},
		{name: "mention mid-sentence", text: "what do you think @isabel", wantClass: ClassMention, wantMention: "isabel", wantUserTurn: true},
		{name: "plain text", text: "I'm not sure what to do", wantClass: ClassPlain, wantUserTurn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			assert.Equal(t, tt.wantClass, got.Class)
			if tt.wantMention != "" {
				assert.Equal(t, tt.wantMention, got.MentionToken)
			}
			assert.Equal(t, tt.wantUserTurn, got.IsUserTurn())
		})
	}
}

func TestResolveMention(t *testing.T) {
	personas := []*store.Persona{
		{ID: "p1", Name: "Isabel Díaz", MentionID: "isabel_díaz", DeclarationOrder: 0},
		{ID: "p2", Name: "Carlos Finance Officer", MentionID: "carlos_finance_officer", DeclarationOrder: 1},
		{ID: "p3", Name: "Isabel Smith", MentionID: "isabel_smith", DeclarationOrder: 2},
	}

	tests := []struct {
		name   string
		token  string
		wantID string
		wantOK bool
	}{
		{name: "resolves by mention id", token: "isabel_díaz", wantID: "p1", wantOK: true},
		{name: "resolves by full name with accent preserved", token: "Isabel Díaz", wantID: "p1", wantOK: true},
		{name: "resolves by first name, first-declared wins on ambiguity", token: "isabel", wantID: "p1", wantOK: true},
		{name: "resolves with punctuation stripped", token: "carlos-finance-officer", wantID: "p2", wantOK: true},
		{name: "no match", token: "ceo", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveMention(personas, tt.token)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				if assert.NotNil(t, got) {
					assert.Equal(t, tt.wantID, got.ID)
				}
			}
		})
	}
}

func TestResolveMention_Ambiguity(t *testing.T) {
	personas := []*store.Persona{
		{ID: "first", Name: "Sam Lee", MentionID: "sam_lee", DeclarationOrder: 0},
		{ID: "second", Name: "Sam Rivera", MentionID: "sam_rivera", DeclarationOrder: 1},
	}

	got, ok := ResolveMention(personas, "sam")
	assert.True(t, ok)
	if assert.NotNil(t, got) {
		assert.Equal(t, "first", got.ID, "ambiguity must resolve to the first-declared persona")
	}
}
