package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/evermem/evermem-go/core"
	"github.com/evermem/evermem-go/engine"
	"github.com/evermem/evermem-go/llm"
)

func TestHeuristicClassifier(t *testing.T) {
	tests := []struct {
		question string
		want     bool
	}{
		// Questions and information requests search memory.
		{"Where did I park?", true},
		{"what did the doctor say", true},
		{"When is my dentist appointment?", true},
		{"is my passport still valid", true},
		{"can you check my notes", true},
		{"what's my wifi password", true},
		{"tell me about my trip to Rome", true},
		{"remind me what the plumber quoted", true},
		{"summarize my meeting notes", true},
		{"look up the recipe I saved", true},

		// Conversational turns skip retrieval.
		{"hello", false},
		{"Hi there!", false},
		{"howdy partner", false},
		{"thanks, that was helpful", false},
		{"ok", false},
		{"sounds good", false},
		{"good morning", false},
		{"i feel great today", false},
		{"my name is Alice", false},
		{"i'm a teacher", false},
		{"just wanted to say hello", false},

		// Ambiguous turns default to retrieval.
		{"the blue folder from last week", true},
		{"", false},
	}
	c := engine.HeuristicClassifier{}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got, err := c.NeedsRetrieval(context.Background(), tt.question, nil)
			if err != nil {
				t.Fatalf("Heuristic classifier errored: %v", err)
			}
			if got != tt.want {
				t.Errorf("NeedsRetrieval(%q) = %v, want %v", tt.question, got, tt.want)
			}
		})
	}
}

func TestLLMClassifier_Verdicts(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{"retrieve", "RETRIEVE", true},
		{"chat", "CHAT", false},
		{"lowercase chat", "chat", false},
		{"padded verdict", "  RETRIEVE\n", true},
		{"unparseable defaults to retrieve", "maybe?", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := engine.NewLLMClassifier(scriptedLLM(func(req llm.Request) (string, error) {
				return tt.output, nil
			}))
			got, err := c.NeedsRetrieval(context.Background(), "where are my keys", nil)
			if err != nil {
				t.Fatalf("Classifier errored: %v", err)
			}
			if got != tt.want {
				t.Errorf("Verdict %q classified as %v, want %v", tt.output, got, tt.want)
			}
		})
	}
}

func TestLLMClassifier_WrapsFailure(t *testing.T) {
	c := engine.NewLLMClassifier(scriptedLLM(func(req llm.Request) (string, error) {
		return "", errors.New("model offline")
	}))

	_, err := c.NeedsRetrieval(context.Background(), "where are my keys", nil)
	if !errors.Is(err, core.ErrClassification) {
		t.Errorf("Expected classification error, got %v", err)
	}
}
