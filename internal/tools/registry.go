// Package tools defines the capabilities the agent can invoke and the
// registry that dispatches completion-service tool calls onto them.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/vidyalinkco/studybot/internal/llm"
	"github.com/vidyalinkco/studybot/internal/profile"
)

// ErrUnknownTool marks a dispatch for a name nothing registered.
var ErrUnknownTool = errors.New("unknown tool")

// ProfileUpdater is the slice of the profile service tools may mutate
// through. A zero class / empty subject leaves that field untouched.
type ProfileUpdater interface {
	Update(ctx context.Context, userID int64, class int, subject string) error
}

// Invocation carries per-call context into a tool: who asked, their
// profile when resolvable, and the profile-update capability.
type Invocation struct {
	UserID   int64
	Profile  *profile.Profile
	Profiles ProfileUpdater
}

// Tool is one named, schema-described capability. Execute receives the raw
// JSON arguments produced by the completion service and returns user-facing
// text; tools degrade to friendly messages instead of returning errors.
type Tool interface {
	Name() string
	Description() string
	ParameterSchema() map[string]any
	Execute(ctx context.Context, args string, inv Invocation) string
}

// Registry holds the tool set, populated once at startup and immutable
// afterwards. Registering a duplicate name overwrites the previous tool.
type Registry struct {
	order []string
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		log.Printf("[tools] overwriting registration for %q", name)
	} else {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
	log.Printf("[tools] registered %q", name)
}

// Definitions lists tools in registration order, shaped for the gateway.
func (r *Registry) Definitions() []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llm.ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.ParameterSchema(),
		})
	}
	return defs
}

func (r *Registry) Dispatch(ctx context.Context, name, args string, inv Invocation) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return t.Execute(ctx, args, inv), nil
}
