package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/amberlin/invoice-studio/internal/engine"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when no API key was provided. The editor
// works without AI; only the suggestion endpoints refuse.
var ErrNotConfigured = errors.New("ai: no API key configured")

// Config holds the suggestion provider configuration.
type Config struct {
	APIKey      string
	Model       string
	VisionModel string
	Temperature float32
	MaxTokens   int
}

// Suggester turns a chat message, the current document and optional file
// content into a partial-document suggestion via the OpenAI API.
type Suggester struct {
	client      *openai.Client
	model       string
	visionModel string
	temp        float32
	maxTokens   int
	logger      *zap.Logger
}

// FileContext carries extracted file content along with a chat request.
type FileContext struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Result is the assistant's reply: a suggestion to merge plus prose for
// the chat transcript.
type Result struct {
	Thinking    string             `json:"thinking,omitempty"`
	Suggestions *engine.Suggestion `json:"suggestions"`
	Explanation string             `json:"explanation,omitempty"`
}

// NewSuggester creates a new suggester. A nil client (empty API key) is
// allowed; calls will return ErrNotConfigured.
func NewSuggester(cfg Config, logger *zap.Logger) *Suggester {
	var client *openai.Client
	if cfg.APIKey != "" {
		client = openai.NewClient(cfg.APIKey)
	}
	return &Suggester{
		client:      client,
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		temp:        cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Suggest requests document suggestions for the given message. The
// current document is sent along (with empty items pruned) so the model
// keeps existing values; file content, when present, is attached as
// context.
func (s *Suggester) Suggest(ctx context.Context, message string, current *engine.Invoice, fc *FileContext) (*Result, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}
	if message == "" && (fc == nil || fc.Content == "") {
		return nil, fmt.Errorf("either a message or file content is required")
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: suggestionSystemPrompt},
	}

	if current != nil {
		state, err := json.Marshal(map[string]any{"currentState": pruneEmptyItems(current)})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal current document: %w", err)
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: string(state),
		})
	}

	if fc != nil && fc.Content != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf("Here's the content from file %q:\n\n%s", fc.Filename, fc.Content),
		})
		if message == "" {
			message = "Please analyze this file and suggest appropriate invoice details based on its content."
		}
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temp,
		MaxTokens:   s.maxTokens,
		Messages:    messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		s.logger.Error("OpenAI API call failed", zap.Error(err))
		return nil, fmt.Errorf("suggestion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		s.logger.Error("Failed to parse suggestion response",
			zap.Error(err),
			zap.String("content", content))
		return nil, fmt.Errorf("failed to parse suggestion response: %w", err)
	}

	if result.Thinking != "" {
		s.logger.Debug("Assistant reasoning", zap.String("thinking", result.Thinking))
	}
	if result.Suggestions != nil {
		SanitizeSuggestion(result.Suggestions)
	}
	return &result, nil
}

// AnalyzeImages runs the vision model over document page images and
// returns the combined plain-text analysis, one block per page.
func (s *Suggester) AnalyzeImages(ctx context.Context, images [][]byte) (string, error) {
	if s.client == nil {
		return "", ErrNotConfigured
	}
	if len(images) == 0 {
		return "", nil
	}

	var analyses []string
	for i, img := range images {
		parts := []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: fmt.Sprintf("Analyze page %d of this document. %s", i+1, visionSystemPrompt),
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
				},
			},
		}

		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     s.visionModel,
			MaxTokens: s.maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, MultiContent: parts},
			},
		})
		if err != nil {
			s.logger.Error("Vision API call failed", zap.Int("page", i+1), zap.Error(err))
			return "", fmt.Errorf("vision request failed: %w", err)
		}
		if len(resp.Choices) > 0 {
			analyses = append(analyses, resp.Choices[0].Message.Content)
		}
	}

	return strings.Join(analyses, "\n\n"), nil
}

// SanitizeSuggestion enforces the suggestion contract on model output:
// items need a description and at least one positive amount, and
// quantities/prices are clamped to zero or above.
func SanitizeSuggestion(s *engine.Suggestion) {
	items := s.Items[:0]
	for _, item := range s.Items {
		if item.Quantity < 0 {
			item.Quantity = 0
		}
		if item.Price < 0 {
			item.Price = 0
		}
		if item.Description == "" || (item.Quantity <= 0 && item.Price <= 0) {
			continue
		}
		items = append(items, item)
	}
	s.Items = items
}

func pruneEmptyItems(doc *engine.Invoice) *engine.Invoice {
	clean := doc.Clone()
	items := clean.Items[:0]
	for _, item := range clean.Items {
		if !item.Empty() {
			items = append(items, item)
		}
	}
	clean.Items = items
	return clean
}
