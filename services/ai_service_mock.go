package services

import (
	"context"
	"sync"

	"github.com/shopwise/shopwise-api/models"
)

// MockAIService is a mock implementation of AIService for testing.
// Unset responses behave like the fallbacks of the real service.
type MockAIService struct {
	SentimentResult  string
	SummaryResult    string
	Ranking          []int
	Transcript       string
	ChatReply        string
	SentimentCalls   []string
	ChatHistories    [][]string
	TranscribedBytes int
	mu               sync.Mutex
}

// NewMockAIService creates a new mock AI service
func NewMockAIService() *MockAIService {
	return &MockAIService{}
}

// SetAsMockForTesting sets this mock as the global AI service instance for testing
func (m *MockAIService) SetAsMockForTesting() {
	SetAIService(m)
}

func (m *MockAIService) Sentiment(ctx context.Context, text string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentimentCalls = append(m.SentimentCalls, text)
	if m.SentimentResult == "" {
		return models.SentimentNeutral
	}
	return m.SentimentResult
}

func (m *MockAIService) Summarize(ctx context.Context, text string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SummaryResult == "" {
		return truncateSummary(text)
	}
	return m.SummaryResult
}

func (m *MockAIService) RankDocuments(ctx context.Context, query string, documents []string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Ranking) == len(documents) {
		return append([]int(nil), m.Ranking...)
	}
	order := make([]int, len(documents))
	for i := range order {
		order[i] = i
	}
	return order
}

func (m *MockAIService) Transcribe(ctx context.Context, audio []byte, contentType string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TranscribedBytes += len(audio)
	return m.Transcript
}

func (m *MockAIService) Chat(ctx context.Context, message string, history []string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ChatHistories = append(m.ChatHistories, append([]string(nil), history...))
	if m.ChatReply == "" {
		return ChatFallbackReply
	}
	return m.ChatReply
}

// SentimentCallCount returns how many texts were sent for sentiment analysis
func (m *MockAIService) SentimentCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SentimentCalls)
}
