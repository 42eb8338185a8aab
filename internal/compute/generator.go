// Package compute talks to the external text generation service.
package compute

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable wraps failures to reach the service at all.
var ErrUnavailable = errors.New("compute: service unavailable")

// Error is an application error reported by the service. Its text is shown to users.
type Error struct {
	Status  string
	Message string
}

func (e *Error) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return "compute: " + strings.ToLower(e.Status)
	}
	return e.Message
}

// Code returns the service status name for log classification.
func (e *Error) Code() string { return e.Status }

// Prompt is one generation request.
type Prompt struct {
	System      string
	User        string
	Temperature float32
	TopP        float32
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Params are the fixed parts of every prompt.
type Params struct {
	SystemPrompt string
	Temperature  float32
	TopP         float32
}

// Prompt builds a Prompt for the user's question.
func (p Params) Prompt(question string) Prompt {
	return Prompt{System: p.SystemPrompt, User: question, Temperature: p.Temperature, TopP: p.TopP}
}

// Answerer turns a Generator into a question-to-answer function.
func Answerer(g Generator, p Params) func(ctx context.Context, question string) (string, error) {
	return func(ctx context.Context, question string) (string, error) {
		return g.Generate(ctx, p.Prompt(question))
	}
}
