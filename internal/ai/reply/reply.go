// Package reply turns raw model output into an advisory message or a
// structured action.
//
// Models are told not to wrap JSON in markdown, but they do anyway, and
// they sometimes add prose around it. Parse tolerates both. The brace
// search in Candidate is a heuristic: a '}' inside a string value after
// the real object, or two independent objects in one reply, can widen the
// candidate past the intended object. In that case the candidate fails to
// parse and the reply degrades to advisory text.
package reply

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/spigell/cv-assistant/internal/ai"
)

// DefaultActionMessage is shown when the model sends an action without a
// message.
const DefaultActionMessage = "Acción realizada."

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\\r?\\n?(.*?)```")

// StripFence returns the interior of the first fenced code block, or the
// text unchanged when there is none.
func StripFence(text string) string {
	m := fencePattern.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	return m[1]
}

// Candidate returns the substring from the first '{' to the last '}'.
func Candidate(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || start >= end {
		return "", false
	}
	return text[start : end+1], true
}

// Parse normalises raw model output. It never fails: anything that does
// not decode into an envelope with a message or an action is returned as
// advisory text.
func Parse(raw string) ai.Reply {
	text := strings.TrimSpace(StripFence(raw))

	obj, ok := decodeObject(text)
	if !ok {
		candidate, found := Candidate(text)
		if !found {
			return advisory(raw)
		}
		if obj, ok = decodeObject(candidate); !ok {
			return advisory(raw)
		}
	}

	rawMessage, hasMessage := obj["message"]
	rawAction, hasAction := obj["action"]
	if !hasMessage && !hasAction {
		return advisory(raw)
	}

	message := coerceString(rawMessage)
	if message == "" {
		message = DefaultActionMessage
	}

	return ai.Reply{
		Message: message,
		Action:  decodeAction(rawAction),
		Raw:     raw,
	}
}

func advisory(raw string) ai.Reply {
	return ai.Reply{Message: raw, Raw: raw}
}

func decodeObject(text string) (map[string]any, bool) {
	if text == "" {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func decodeAction(v any) *ai.Action {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	return &ai.Action{
		Type:    ai.ActionType(coerceString(m["type"])),
		Section: coerceString(m["section"]),
		ID:      coerceString(m["id"]),
		Data:    m["data"],
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
