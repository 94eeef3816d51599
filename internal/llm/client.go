package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyCompletion is returned when a provider answers without any text.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Image is an inline image attachment.
type Image struct {
	MIMEType string
	Data     []byte
}

// Message is one chat turn, optionally carrying images.
type Message struct {
	Role   string
	Text   string
	Images []Image
}

// Request describes a single completion call.
type Request struct {
	// Model overrides the client default when non-empty.
	Model       string
	Messages    []Message
	Temperature *float64
	TopP        *float64
}

// Response is the text answer of the model.
type Response struct {
	Text  string
	Model string
}

// Client sends a chat or vision request and returns the completion text.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Float returns a pointer to v, for Request sampling fields.
func Float(v float64) *float64 { return &v }

// System builds a system turn.
func System(text string) Message { return Message{Role: RoleSystem, Text: text} }

// User builds a user turn with optional images.
func User(text string, images ...Image) Message {
	return Message{Role: RoleUser, Text: text, Images: images}
}

// resolveModel picks the per-request model, then a context override, then the default.
func resolveModel(ctx context.Context, req Request, fallback string) string {
	if model := strings.TrimSpace(req.Model); model != "" {
		return model
	}
	if override := modelFromContext(ctx); override != "" {
		return override
	}
	return fallback
}

// splitSystem separates system turns, which most providers take out of band.
func splitSystem(messages []Message) ([]string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if strings.EqualFold(strings.TrimSpace(msg.Role), RoleSystem) {
			system = append(system, msg.Text)
			continue
		}
		rest = append(rest, msg)
	}
	return system, rest
}
