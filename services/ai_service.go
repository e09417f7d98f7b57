package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shopwise/shopwise-api/config"
	"github.com/shopwise/shopwise-api/models"
)

// Hosted inference models
const (
	sentimentModel     = "nlptown/bert-base-multilingual-uncased-sentiment"
	summarizationModel = "t5-base"
	similarityModel    = "sentence-transformers/all-MiniLM-L6-v2"
	transcriptionModel = "openai/whisper-base"
	chatModel          = "microsoft/DialoGPT-medium"
)

// ChatFallbackReply is returned when the chat model cannot answer
const ChatFallbackReply = "I apologize, but I am having trouble processing your request. Please try again later."

const summaryFallbackLength = 150

// AIService is the best-effort natural-language capability. No method
// returns an error: every failure degrades to a fixed fallback value.
type AIService interface {
	// Sentiment classifies text as positive, neutral or negative (fallback neutral)
	Sentiment(ctx context.Context, text string) string

	// Summarize shortens text (fallback: the first 150 characters plus "...")
	Summarize(ctx context.Context, text string) string

	// RankDocuments returns the indexes of documents ordered by similarity
	// to query, best first (fallback: the original order)
	RankDocuments(ctx context.Context, query string, documents []string) []int

	// Transcribe converts audio to text (fallback: empty string)
	Transcribe(ctx context.Context, audio []byte, contentType string) string

	// Chat replies to message given the caller's previous messages (fallback: an apology)
	Chat(ctx context.Context, message string, history []string) string
}

// HuggingFaceAIService calls the Hugging Face hosted inference API
type HuggingFaceAIService struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	httpClient *http.Client
}

var aiServiceInstance AIService

// NewHuggingFaceAIService creates an AI service from the inference settings in cfg
func NewHuggingFaceAIService(cfg *config.Config) *HuggingFaceAIService {
	return &HuggingFaceAIService{
		baseURL:    strings.TrimRight(cfg.HuggingFaceAPIURL, "/"),
		apiKey:     cfg.HuggingFaceAPIKey,
		timeout:    cfg.AITimeout,
		maxRetries: cfg.AIMaxRetries,
		backoff:    250 * time.Millisecond,
		httpClient: &http.Client{},
	}
}

// InitAIService initializes the global AI service
func InitAIService(cfg *config.Config) AIService {
	aiServiceInstance = NewHuggingFaceAIService(cfg)
	return aiServiceInstance
}

// GetAIService returns the initialized AI service instance
func GetAIService() AIService {
	return aiServiceInstance
}

// SetAIService sets the AI service instance (primarily for testing)
func SetAIService(service AIService) {
	aiServiceInstance = service
}

func (s *HuggingFaceAIService) Sentiment(ctx context.Context, text string) string {
	var result [][]struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := s.infer(ctx, sentimentModel, map[string]interface{}{"inputs": text}, &result); err != nil {
		log.Warn().Err(err).Msg("Sentiment analysis failed, using neutral")
		return models.SentimentNeutral
	}
	if len(result) == 0 || len(result[0]) == 0 {
		log.Warn().Msg("Sentiment analysis returned no labels, using neutral")
		return models.SentimentNeutral
	}

	best := result[0][0]
	for _, candidate := range result[0][1:] {
		if candidate.Score > best.Score {
			best = candidate
		}
	}
	return sentimentFromStars(best.Label)
}

// sentimentFromStars maps a "N stars" label to a sentiment
func sentimentFromStars(label string) string {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return models.SentimentNeutral
	}
	stars, err := strconv.Atoi(fields[0])
	if err != nil {
		return models.SentimentNeutral
	}
	switch {
	case stars >= 4:
		return models.SentimentPositive
	case stars <= 2:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func (s *HuggingFaceAIService) Summarize(ctx context.Context, text string) string {
	var result []struct {
		SummaryText string `json:"summary_text"`
	}
	err := s.infer(ctx, summarizationModel, map[string]interface{}{"inputs": "summarize: " + text}, &result)
	if err == nil && len(result) > 0 && result[0].SummaryText != "" {
		return result[0].SummaryText
	}
	if err != nil {
		log.Warn().Err(err).Msg("Summarization failed, truncating")
	}
	return truncateSummary(text)
}

func truncateSummary(text string) string {
	runes := []rune(text)
	if len(runes) > summaryFallbackLength {
		runes = runes[:summaryFallbackLength]
	}
	return string(runes) + "..."
}

func (s *HuggingFaceAIService) RankDocuments(ctx context.Context, query string, documents []string) []int {
	order := make([]int, len(documents))
	for i := range order {
		order[i] = i
	}
	if len(documents) < 2 || strings.TrimSpace(query) == "" {
		return order
	}

	var scores []float64
	payload := map[string]interface{}{
		"inputs": map[string]interface{}{
			"source_sentence": query,
			"sentences":       documents,
		},
	}
	if err := s.infer(ctx, similarityModel, payload, &scores); err != nil {
		log.Warn().Err(err).Msg("Semantic ranking failed, keeping original order")
		return order
	}
	if len(scores) != len(documents) {
		log.Warn().Int("scores", len(scores)).Int("documents", len(documents)).Msg("Semantic ranking returned a mismatched score list")
		return order
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order
}

func (s *HuggingFaceAIService) Transcribe(ctx context.Context, audio []byte, contentType string) string {
	if len(audio) == 0 {
		return ""
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := s.post(ctx, transcriptionModel, audio, contentType, &result); err != nil {
		log.Warn().Err(err).Msg("Transcription failed")
		return ""
	}
	return strings.TrimSpace(result.Text)
}

func (s *HuggingFaceAIService) Chat(ctx context.Context, message string, history []string) string {
	if history == nil {
		history = []string{}
	}
	payload := map[string]interface{}{
		"inputs": map[string]interface{}{
			"text":             message,
			"past_user_inputs": history,
		},
	}

	var result struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := s.infer(ctx, chatModel, payload, &result); err != nil || result.GeneratedText == "" {
		if err != nil {
			log.Warn().Err(err).Msg("Chat model failed, sending fallback reply")
		}
		return ChatFallbackReply
	}
	return result.GeneratedText
}

// infer posts a JSON payload to model and decodes the JSON response into out
func (s *HuggingFaceAIService) infer(ctx context.Context, model string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return s.post(ctx, model, body, "application/json", out)
}

// post sends body to model, retrying transient failures with a linear backoff.
// All attempts and backoff waits share a single timeout.
func (s *HuggingFaceAIService) post(ctx context.Context, model string, body []byte, contentType string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * s.backoff):
			}
		}

		retry, err := s.attempt(ctx, model, body, contentType, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
		log.Debug().Err(err).Str("model", model).Int("attempt", attempt+1).Msg("Inference call failed")
	}
	return lastErr
}

// attempt performs one call; the bool reports whether a retry could succeed
func (s *HuggingFaceAIService) attempt(ctx context.Context, model string, body []byte, contentType string, out interface{}) (bool, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("failed to call %s: %w", model, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Msg("Failed to close inference response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		// 503 means the model is still loading
		retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return retry, fmt.Errorf("%s returned status %d: %s", model, resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode %s response: %w", model, err)
	}
	return false, nil
}
