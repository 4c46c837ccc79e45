package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/cv-assistant/internal/ai"
	"github.com/spigell/cv-assistant/internal/ai/reply"
	"github.com/spigell/cv-assistant/internal/cv"
	"github.com/spigell/cv-assistant/internal/metrics"
	"github.com/spigell/cv-assistant/internal/utils"
)

const (
	// FallbackMessage is the advisory reply shown when the backend fails.
	FallbackMessage = "Error al conectar con el asistente."
	// EmptyReplyMessage is shown when the backend answers with nothing.
	EmptyReplyMessage = "No pude procesar tu solicitud."

	analyzeFallbackMessage = "Error al analizar la vacante."
	analyzeEmptyMessage    = "No se detectaron mejoras inmediatas."

	documentInstruction = "Extrae toda la información de este currículum y devuélvela estrictamente en formato JSON siguiendo la estructura indicada. Si falta información, deja los campos vacíos o arreglos vacíos. El idioma de salida debe ser el del documento original (preferiblemente español)."
	recruiterInstruction = "Eres un experto reclutador especializado en el mercado laboral peruano y latinoamericano."

	defaultMaxLogLength = 200
)

//go:embed chat_prompt.md
var chatSystemPrompt string

//go:embed import_prompt.md
var importSystemPrompt string

type contentGenerator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Assistant implements the chat, document extraction and advice modes on
// top of a Generator.
type Assistant struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

var (
	_ ai.Assistant         = (*Assistant)(nil)
	_ ai.DocumentExtractor = (*Assistant)(nil)
	_ ai.Advisor           = (*Assistant)(nil)
)

func NewAssistant(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Assistant {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Assistant{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Chat answers a user message against the CV snapshot. Backend failures
// are folded into FallbackMessage; Chat never returns an error. Blank
// messages return a zero Reply without calling the backend.
func (a *Assistant) Chat(ctx context.Context, message string, snapshot cv.CV) ai.Reply {
	message = strings.TrimSpace(message)
	if message == "" {
		return ai.Reply{}
	}

	cvJSON, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		a.logger.Error("marshal cv snapshot", zap.String("cv_id", snapshot.ID), zap.Error(err))
		return a.fallback()
	}

	raw, err := a.generator.Generate(ctx, Request{
		Mode:              "chat",
		SystemInstruction: chatSystemPrompt,
		Parts:             []Part{{Text: buildChatPrompt(string(cvJSON), message)}},
	})
	if err != nil {
		if errors.Is(err, ErrEmptyResponse) {
			return ai.Reply{Message: EmptyReplyMessage}
		}
		a.logger.Warn("chat request failed",
			zap.String("cv_id", snapshot.ID),
			zap.Error(err),
		)
		return a.fallback()
	}

	parsed := reply.Parse(raw)

	kind := "advisory"
	if parsed.HasAction() {
		kind = "action"
	}
	metrics.ChatReplies.WithLabelValues(kind).Inc()

	a.logger.Debug("chat reply parsed",
		zap.String("cv_id", snapshot.ID),
		zap.String("kind", kind),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("message_preview", utils.TruncateForLog(parsed.Message, a.maxLogLen)),
	)

	return parsed
}

func (a *Assistant) fallback() ai.Reply {
	metrics.ChatFallbacks.Inc()
	return ai.Reply{Message: FallbackMessage}
}

// ExtractDocument asks the model for the partial CV contained in a
// document. The raw JSON text is returned unparsed; every failure is
// returned to the caller.
func (a *Assistant) ExtractDocument(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("document is empty")
	}

	a.logger.Debug("document extraction request",
		zap.String("mime_type", mimeType),
		zap.Int("size_bytes", len(data)),
	)

	raw, err := a.generator.Generate(ctx, Request{
		Mode:              "document",
		SystemInstruction: importSystemPrompt,
		Parts: []Part{
			{Data: data, MIMEType: mimeType},
			{Text: documentInstruction},
		},
		ResponseMIMEType: MIMETypeJSON,
	})
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}

	return raw, nil
}

// OptimizeSummary rewrites a profile summary for the given target role.
// The original summary is returned when the backend fails.
func (a *Assistant) OptimizeSummary(ctx context.Context, summary, roleGoal string) string {
	if strings.TrimSpace(summary) == "" {
		return summary
	}

	roleGoal = strings.TrimSpace(roleGoal)
	if roleGoal == "" {
		roleGoal = "Profesional"
	}

	prompt := fmt.Sprintf(
		"Optimiza este resumen profesional para un puesto de %s en Perú. Hazlo conciso (máximo 4 líneas), profesional y directo. Resumen original: %q",
		roleGoal, summary,
	)

	out, err := a.generator.Generate(ctx, Request{
		Mode:              "advice",
		SystemInstruction: recruiterInstruction,
		Parts:             []Part{{Text: prompt}},
	})
	if err != nil {
		a.logger.Warn("summary optimization failed", zap.Error(err))
		return summary
	}

	return out
}

// AnalyzeJob compares a job description with the CV experience and
// suggests changes.
func (a *Assistant) AnalyzeJob(ctx context.Context, jobDescription string, snapshot cv.CV) string {
	experience, err := json.Marshal(snapshot.Experience)
	if err != nil {
		a.logger.Error("marshal experience", zap.Error(err))
		return analyzeFallbackMessage
	}

	prompt := fmt.Sprintf(
		"Analiza esta descripción de puesto y compárala con el CV del usuario. Sugiere 3 cambios específicos para mejorar el emparejamiento (matching). CV: %s. Puesto: %s",
		experience, strings.TrimSpace(jobDescription),
	)

	out, err := a.generator.Generate(ctx, Request{
		Mode:  "advice",
		Parts: []Part{{Text: prompt}},
	})
	if err != nil {
		if errors.Is(err, ErrEmptyResponse) {
			return analyzeEmptyMessage
		}
		a.logger.Warn("job analysis failed", zap.Error(err))
		return analyzeFallbackMessage
	}

	return out
}

func buildChatPrompt(cvJSON, message string) string {
	return "CV ACTUAL:\n" + cvJSON + "\n\nUSUARIO: " + message
}
