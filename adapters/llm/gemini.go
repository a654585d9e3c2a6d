package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/jurubahasa/domain/entities"
	"github.com/satriahrh/jurubahasa/domain/repositories"
)

const (
	defaultModel       = "gemini-2.0-flash"
	defaultTemperature = 0.2
	defaultMaxTokens   = 1024
	maxAttempts        = 2
)

// GeminiConfig holds configuration for the Gemini text translator
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	if config.Temperature < 0 || config.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", config.Temperature)
	}

	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("max output tokens must be positive, got %d", config.MaxOutputTokens)
	}

	return nil
}

// GeminiTranslator implements TextTranslator using Google's Gemini API
type GeminiTranslator struct {
	client          *genai.Client
	logger          *zap.Logger
	model           string
	temperature     float32
	maxOutputTokens int
}

var _ repositories.TextTranslator = (*GeminiTranslator)(nil)

// NewGeminiTranslator creates a new Gemini translator instance
func NewGeminiTranslator(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiTranslator, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g := &GeminiTranslator{
		client:          client,
		logger:          logger,
		model:           config.Model,
		temperature:     config.Temperature,
		maxOutputTokens: config.MaxOutputTokens,
	}
	if g.model == "" {
		g.model = defaultModel
	}
	if g.temperature == 0 {
		g.temperature = defaultTemperature
	}
	if g.maxOutputTokens == 0 {
		g.maxOutputTokens = defaultMaxTokens
	}

	logger.Info("Gemini translator configured", zap.String("model", g.model))
	return g, nil
}

// TranslateText implements repositories.TextTranslator
func (g *GeminiTranslator) TranslateText(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text cannot be empty")
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(
			buildInstruction(sourceLanguage, targetLanguage), genai.RoleUser),
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: int32(g.maxOutputTokens),
	}

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}

		g.logger.Warn("Failed to generate translation",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate translation: %w", err)
	}

	translated := extractText(response)
	if translated == "" {
		return "", fmt.Errorf("empty translation returned by %s", g.model)
	}
	return translated, nil
}

// buildInstruction returns the system instruction for a language pair
func buildInstruction(sourceLanguage, targetLanguage string) string {
	source := languageName(sourceLanguage)
	target := languageName(targetLanguage)
	return fmt.Sprintf(
		"You are a simultaneous interpreter. Translate the user's %s speech transcript into %s. "+
			"Reply with the translation only, without quotes, notes or explanations.",
		source, target)
}

func languageName(code string) string {
	if lang, ok := entities.LookupLanguage(code); ok {
		return lang.Name
	}
	if code == "" {
		return "source language"
	}
	return code
}

// extractText concatenates the text parts of the first candidate
func extractText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
