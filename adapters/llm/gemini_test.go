package llm

import (
	"context"
	"strings"
	"testing"

	"google.golang.org/genai"
)

func TestValidateGeminiConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  GeminiConfig
		wantErr bool
	}{
		{"valid", GeminiConfig{APIKey: "key"}, false},
		{"missing key", GeminiConfig{}, true},
		{"temperature too high", GeminiConfig{APIKey: "key", Temperature: 1.5}, true},
		{"negative tokens", GeminiConfig{APIKey: "key", MaxOutputTokens: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeminiConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBuildInstruction(t *testing.T) {
	instruction := buildInstruction("deu", "eng")
	if !strings.Contains(instruction, "German") || !strings.Contains(instruction, "English") {
		t.Errorf("Expected language names in instruction, got %q", instruction)
	}

	instruction = buildInstruction("", "xyz")
	if !strings.Contains(instruction, "xyz") {
		t.Errorf("Expected unknown code to be used verbatim, got %q", instruction)
	}
}

func TestExtractText(t *testing.T) {
	response := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "Good "}, {Text: "morning "}}},
		}},
	}
	if got := extractText(response); got != "Good morning" {
		t.Errorf("Expected 'Good morning', got %q", got)
	}

	if got := extractText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("Expected empty text, got %q", got)
	}
	if got := extractText(nil); got != "" {
		t.Errorf("Expected empty text for nil response, got %q", got)
	}
}

func TestMockTextTranslator(t *testing.T) {
	m := NewMockTextTranslator()
	got, err := m.TranslateText(context.Background(), "Hallo", "deu", "eng")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "[eng] Hallo" {
		t.Errorf("Unexpected translation %q", got)
	}
}
