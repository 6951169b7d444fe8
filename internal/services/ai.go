package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// GeneratedTask is a task suggestion extracted from free text. It is never persisted.
type GeneratedTask struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Priority       string     `json:"priority"`
	DueDate        *time.Time `json:"due_date"`
	Tags           []string   `json:"tags"`
	EstimatedHours float64    `json:"estimated_hours"`
}

// TaskGenerator extracts task suggestions from text.
type TaskGenerator interface {
	GenerateTasksFromText(ctx context.Context, text string) ([]GeneratedTask, error)
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// AIService calls OpenAI behind a circuit breaker.
type AIService struct {
	client  chatCompleter
	breaker *gobreaker.CircuitBreaker
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewAIService(apiKey string, log logrus.FieldLogger) *AIService {
	return newAIService(openai.NewClient(apiKey), log)
}

func newAIService(client chatCompleter, log logrus.FieldLogger) *AIService {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
		},
	})

	return &AIService{
		client:  client,
		breaker: breaker,
		log:     log,
		now:     time.Now,
	}
}

const generatePrompt = `You are a task extraction assistant. Extract concrete, actionable tasks from the text below.

Current time: %s

Text:
%s

Respond with a JSON array only, no prose, in this format:
[
  {
    "title": "short task title",
    "description": "task details",
    "priority": "one of low, medium, high, urgent",
    "due_date": "deadline in ISO8601 (e.g. 2025-10-28T23:59:59Z), or null when none is stated",
    "tags": ["short", "labels"],
    "estimated_hours": 0
  }
]

Rules:
- Return [] when the text contains no tasks
- Convert relative deadlines ("tomorrow", "next week") into absolute timestamps
- due_date must be an ISO8601 string or null`

// GenerateTasksFromText analyzes text and extracts tasks using OpenAI
func (s *AIService) GenerateTasksFromText(ctx context.Context, text string) ([]GeneratedTask, error) {
	prompt := fmt.Sprintf(generatePrompt, s.now().UTC().Format(time.RFC3339), text)

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: 0.3,
		})
	})
	if err != nil {
		if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.log.WithError(err).Warn("openai request failed")
		}
		return nil, ErrAIUnavailable
	}

	resp := result.(openai.ChatCompletionResponse)
	if len(resp.Choices) == 0 {
		return nil, ErrAINoTasksGenerated
	}

	tasks, err := parseGeneratedTasks(resp.Choices[0].Message.Content)
	if err != nil {
		s.log.WithError(err).Warn("openai returned unparseable content")
		return nil, ErrAIMalformedResponse
	}
	return tasks, nil
}

// parseGeneratedTasks decodes the model output, tolerating a surrounding code fence.
func parseGeneratedTasks(content string) ([]GeneratedTask, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	var tasks []GeneratedTask
	if err := json.Unmarshal([]byte(content), &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	return tasks, nil
}
