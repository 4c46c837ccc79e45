// Package importer turns an uploaded résumé document into a partial CV.
//
// Unlike chat, every failure here is returned to the caller. An import
// that produced nothing usable must be reported, never turned into an
// empty CV.
package importer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/cv-assistant/internal/ai"
	"github.com/spigell/cv-assistant/internal/cv"
	"github.com/spigell/cv-assistant/internal/metrics"
	"github.com/spigell/cv-assistant/internal/utils"
)

var (
	// ErrImportFailed wraps every error returned by Import.
	ErrImportFailed = errors.New("import failed")

	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidJSON  = errors.New("response is not valid json")
	ErrInvalidShape = errors.New("response does not match the cv shape")
)

const (
	MIMETypePDF  = "application/pdf"
	MIMETypeDOC  = "application/msword"
	MIMETypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETypePNG  = "image/png"
	MIMETypeJPEG = "image/jpeg"
	MIMETypeWEBP = "image/webp"
)

// SupportedMIMETypes lists the media types accepted by Import.
var SupportedMIMETypes = []string{
	MIMETypePDF,
	MIMETypeDOC,
	MIMETypeDOCX,
	MIMETypePNG,
	MIMETypeJPEG,
	MIMETypeWEBP,
}

// partialKeys are the top-level keys of a partial CV. At least one must be
// present in the model output.
var partialKeys = []string{"title", "personal", "experience", "education", "skills", "languages", "certifications", "projects"}

type Pipeline struct {
	extractor ai.DocumentExtractor
	steps     []Step
	logger    *zap.Logger
}

// New creates a pipeline. Without explicit steps DefaultSteps is used.
func New(extractor ai.DocumentExtractor, logger *zap.Logger, steps ...Step) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(steps) == 0 {
		steps = DefaultSteps()
	}

	return &Pipeline{
		extractor: extractor,
		steps:     steps,
		logger:    logger,
	}
}

// Import decodes the transport-encoded document, asks the extractor for
// its content and shapes the result. encoded may be plain base64 or a data
// URL; with a data URL an empty mimeType is taken from the URL.
func (p *Pipeline) Import(ctx context.Context, encoded, mimeType string) (*cv.Partial, error) {
	partial, err := p.run(ctx, encoded, mimeType)
	if err != nil {
		metrics.Imports.WithLabelValues("failed").Inc()
		p.logger.Warn("document import failed", zap.String("mime_type", mimeType), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrImportFailed, err)
	}

	metrics.Imports.WithLabelValues("ok").Inc()
	return partial, nil
}

func (p *Pipeline) run(ctx context.Context, encoded, mimeType string) (*cv.Partial, error) {
	data, mimeType, err := DecodeDocument(encoded, mimeType)
	if err != nil {
		return nil, err
	}

	if p.extractor == nil {
		return nil, errors.New("document extractor is not configured")
	}

	raw, err := p.extractor.ExtractDocument(ctx, data, mimeType)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("document extracted",
		zap.String("mime_type", mimeType),
		zap.Int("size_bytes", len(data)),
		zap.String("response_preview", utils.TruncateForLog(raw, 200)),
	)

	partial, err := ParsePartial(raw)
	if err != nil {
		return nil, err
	}

	if err := Run(ctx, p.logger, p.steps, partial); err != nil {
		return nil, err
	}

	return partial, nil
}

// DecodeDocument validates the media type and decodes the payload.
func DecodeDocument(encoded, mimeType string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	mimeType = strings.TrimSpace(mimeType)

	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", fmt.Errorf("%w: malformed data url", ErrInvalidInput)
		}
		if mimeType == "" {
			mimeType, _, _ = strings.Cut(header, ";")
		}
		encoded = payload
	}

	if !Supported(mimeType) {
		return nil, "", fmt.Errorf("%w: unsupported media type %q", ErrInvalidInput, mimeType)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("%w: decode base64: %w", ErrInvalidInput, err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: document is empty", ErrInvalidInput)
	}

	return data, strings.ToLower(mimeType), nil
}

// Supported reports whether Import accepts the media type.
func Supported(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, known := range SupportedMIMETypes {
		if mimeType == known {
			return true
		}
	}
	return false
}

// ParsePartial parses the model output strictly: the whole text must be a
// JSON object carrying at least one CV key.
func ParsePartial(raw string) (*cv.Partial, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: null document", ErrInvalidShape)
	}

	if !hasAnyKey(obj, partialKeys) {
		return nil, fmt.Errorf("%w: no cv keys found", ErrInvalidShape)
	}

	var partial cv.Partial
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &partial,
		TagName: "json",
		// Models often send years as numbers.
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShape, err)
	}

	return &partial, nil
}

func hasAnyKey(obj map[string]any, keys []string) bool {
	for _, key := range keys {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}
