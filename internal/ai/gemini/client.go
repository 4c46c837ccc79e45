package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/cv-assistant/internal/metrics"
	"github.com/spigell/cv-assistant/internal/utils"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultRetryDelay = 2 * time.Second
	// Quota errors asking to wait longer than this are not retried.
	maxQuotaDelay = 30 * time.Second
	maxLogLength  = 200

	// MIMETypeJSON asks the model to answer with pure JSON text.
	MIMETypeJSON = "application/json"
)

// ErrEmptyResponse is returned when the model answers with no usable text.
var ErrEmptyResponse = errors.New("gemini api returned empty response")

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type sdkChats struct {
	chats *genai.Chats
}

func (s sdkChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := s.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Part is one piece of request content: text, or an inline blob with its
// media type.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// Request is a single-turn call to the model.
type Request struct {
	// Mode labels the call in metrics and logs.
	Mode              string
	SystemInstruction string
	Parts             []Part
	// ResponseMIMEType is empty for free text or MIMETypeJSON.
	ResponseMIMEType string
}

// Generator wraps the Google GenAI client to provide single-turn
// interactions with a system instruction.
type Generator struct {
	chats      chatCreator
	model      string
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
// maxRetries is the total number of attempts; values below 1 mean a single
// attempt.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		chats:      sdkChats{chats: client.Chats},
		model:      model,
		maxRetries: maxRetries,
		retryDelay: defaultRetryDelay,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Generate performs the request, retrying transient backend errors up to
// the configured number of attempts.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	parts, err := buildParts(req.Parts)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{}
	if instruction := strings.TrimSpace(req.SystemInstruction); instruction != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: instruction}}}
	}
	if req.ResponseMIMEType != "" {
		config.ResponseMIMEType = req.ResponseMIMEType
	}

	attempts := g.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	mode := req.Mode
	if mode == "" {
		mode = "text"
	}

	logger := g.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		logger.Debug("gemini generate content request",
			zap.String("mode", mode),
			zap.Int("attempt", attempt),
			zap.Int("parts", len(parts)),
			zap.String("response_mime_type", req.ResponseMIMEType),
			zap.String("prompt_preview", utils.TruncateForLog(firstText(req.Parts), maxLogLength)),
		)

		text, err := g.send(ctx, config, parts)
		if err == nil {
			metrics.GatewayRequests.WithLabelValues(mode, "ok").Inc()
			logger.Debug("gemini generate content response",
				zap.String("mode", mode),
				zap.Int("response_length", utf8.RuneCountInString(text)),
				zap.String("response_preview", utils.TruncateForLog(text, maxLogLength)),
			)
			return text, nil
		}
		lastErr = err

		delay, retryable := retryDelay(err, attempt, g.retryDelay)
		if !retryable || attempt == attempts {
			break
		}

		metrics.GatewayRequests.WithLabelValues(mode, "retry").Inc()
		logger.Warn("gemini request failed, retrying",
			zap.String("mode", mode),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := utils.WaitFor(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	metrics.GatewayRequests.WithLabelValues(mode, "error").Inc()
	return "", fmt.Errorf("generate content: %w", lastErr)
}

func (g *Generator) send(ctx context.Context, config *genai.GenerateContentConfig, parts []genai.Part) (string, error) {
	chat, err := g.chats.Create(ctx, g.model, config, nil)
	if err != nil {
		return "", err
	}

	resp, err := chat.SendMessage(ctx, parts...)
	if err != nil {
		return "", err
	}

	return responseText(resp)
}

func buildParts(in []Part) ([]genai.Part, error) {
	parts := make([]genai.Part, 0, len(in))
	for _, p := range in {
		switch {
		case len(p.Data) > 0:
			if strings.TrimSpace(p.MIMEType) == "" {
				return nil, errors.New("inline data requires a mime type")
			}
			parts = append(parts, genai.Part{InlineData: &genai.Blob{Data: p.Data, MIMEType: p.MIMEType}})
		case strings.TrimSpace(p.Text) != "":
			parts = append(parts, genai.Part{Text: p.Text})
		}
	}

	if len(parts) == 0 {
		return nil, errors.New("prompt must not be empty")
	}

	return parts, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
		// Only the first usable candidate is the answer.
		if builder.Len() > 0 {
			break
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", ErrEmptyResponse
	}

	return output, nil
}

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)

// retryDelay reports whether err is worth another attempt and how long to
// wait first. Server errors and short quota waits are retried.
func retryDelay(err error, attempt int, base time.Duration) (time.Duration, bool) {
	apiErr, ok := asAPIError(err)
	if !ok {
		return 0, false
	}

	backoff := base * time.Duration(1<<(attempt-1))

	switch {
	case apiErr.Code >= http.StatusInternalServerError:
		return backoff, true
	case apiErr.Code == http.StatusTooManyRequests:
		m := retryAfterPattern.FindStringSubmatch(apiErr.Message)
		if m == nil {
			return backoff, true
		}
		seconds, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return backoff, true
		}
		wait := time.Duration(seconds * float64(time.Second))
		if wait > maxQuotaDelay {
			return 0, false
		}
		return wait, true
	default:
		return 0, false
	}
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

func firstText(parts []Part) string {
	for _, p := range parts {
		if strings.TrimSpace(p.Text) != "" {
			return p.Text
		}
	}
	return ""
}
