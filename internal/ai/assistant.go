package ai

import (
	"context"

	"github.com/spigell/cv-assistant/internal/cv"
)

// ActionType is the kind of mutation the model proposes.
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
)

// Action is a model-proposed mutation against one section. It is never
// persisted. Section and Type are kept as the model sent them; resolving
// them is up to the reconciler.
type Action struct {
	Type    ActionType `json:"type"`
	Section string     `json:"section"`
	ID      string     `json:"id,omitempty"`
	// Data is the decoded JSON payload for create and update, usually a
	// map[string]any. Any other shape is rejected at apply time.
	Data any `json:"data,omitempty"`
}

// Reply is the normalised result of one assistant turn.
type Reply struct {
	Message string
	Action  *Action
	Raw     string
}

// HasAction reports whether the reply carries a mutation.
func (r Reply) HasAction() bool {
	return r.Action != nil
}

// Assistant answers a user utterance given the current CV. It never fails:
// backend problems come back as an ordinary advisory reply.
type Assistant interface {
	Chat(ctx context.Context, message string, snapshot cv.CV) Reply
}

// DocumentExtractor turns an uploaded document into the raw JSON text of a
// partial CV. Unlike Assistant, errors are returned to the caller.
type DocumentExtractor interface {
	ExtractDocument(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Advisor provides one-shot writing help outside the chat flow.
type Advisor interface {
	OptimizeSummary(ctx context.Context, summary, roleGoal string) string
	AnalyzeJob(ctx context.Context, jobDescription string, snapshot cv.CV) string
}
