package server

import (
	"context"
	"fmt"

	"github.com/skillwire/skillrpc/protocol"
)

// TextContent represents text content in a prompt message.
type TextContent struct {
	Type string `json:"type"` // always "text"
	Text string `json:"text"`
}

// PromptMessage represents one role-tagged message in a prompt result.
type PromptMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content any    `json:"content"`
}

// PromptResult is a fully formed prompt payload. Handlers may return it
// directly, or return a plain template string or a map and let the
// normalizer fill in name, description, and format.
type PromptResult struct {
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Format      string          `json:"format,omitempty"` // "messages" or "go-template"
	Template    string          `json:"template,omitempty"`
	Messages    []PromptMessage `json:"messages,omitempty"`
}

// PromptArgument describes an argument accepted by a prompt template.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptHandler is the function signature for prompt handlers. The returned
// value may be a string, map[string]any, or *PromptResult; it is normalized
// into the protocol payload after the call.
type PromptHandler func(ctx context.Context, args map[string]string) (any, error)

// Prompt represents a named, parameterized conversational template.
type Prompt struct {
	name        string
	description string
	arguments   []PromptArgument
	handler     PromptHandler
}

// PromptInfo represents metadata about a registered prompt.
type PromptInfo struct {
	Name        string
	Description string
	Arguments   []PromptArgument
}

// Name returns the prompt's protocol-visible name.
func (p *Prompt) Name() string { return p.name }

// Description returns the prompt description.
func (p *Prompt) Description() string { return p.description }

// PromptBuilder provides a fluent API for building prompts.
type PromptBuilder struct {
	prompt *Prompt
	server *Server
	err    error
}

// Description sets the prompt description.
func (b *PromptBuilder) Description(desc string) *PromptBuilder {
	if b.err != nil {
		return b
	}
	b.prompt.description = desc
	return b
}

// Argument adds an argument descriptor to the prompt.
func (b *PromptBuilder) Argument(name, description string, required bool) *PromptBuilder {
	if b.err != nil {
		return b
	}
	b.prompt.arguments = append(b.prompt.arguments, PromptArgument{
		Name:        name,
		Description: description,
		Required:    required,
	})
	return b
}

// Handler sets the prompt handler function and registers the prompt.
func (b *PromptBuilder) Handler(fn PromptHandler) *PromptBuilder {
	if b.err != nil {
		return b
	}

	b.prompt.handler = fn
	b.server.registerPrompt(b.prompt)
	return b
}

// Err returns the first error encountered while building, if any.
func (b *PromptBuilder) Err() error {
	return b.err
}

// Get checks required arguments and invokes the prompt handler. The raw
// return value still needs to go through NormalizePrompt. A missing
// required argument is an invalid-params error, not a handler failure.
func (p *Prompt) Get(ctx context.Context, args map[string]string) (any, error) {
	for _, arg := range p.arguments {
		if arg.Required {
			if args == nil || args[arg.Name] == "" {
				return nil, protocol.NewInvalidParams(fmt.Sprintf("missing required argument: %s", arg.Name))
			}
		}
	}

	return p.handler(ctx, args)
}

// meta builds the introspection entry for this prompt.
func (p *Prompt) meta() MethodMeta {
	params := make([]ParamMeta, 0, len(p.arguments))
	for _, arg := range p.arguments {
		params = append(params, ParamMeta{
			Name:     arg.Name,
			Type:     "string",
			Required: arg.Required,
		})
	}
	return MethodMeta{
		Name:       p.name,
		Category:   CategoryPrompt,
		Params:     params,
		ReturnType: "object",
		Doc:        p.description,
	}
}
