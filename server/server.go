// Package server provides the core skillrpc dispatcher implementation.
package server

import (
	"sync"

	"github.com/skillwire/skillrpc/protocol"
)

// Info contains server metadata exposed to clients.
type Info struct {
	Name    string
	Version string
}

// Capabilities declares which capability categories the server exposes.
// They are derived from registry contents, never declared by hand.
type Capabilities struct {
	Tools     bool `json:"tools"`
	Resources bool `json:"resources"`
	Prompts   bool `json:"prompts"`
}

// Manifest represents the server manifest returned during initialization.
type Manifest struct {
	Name            string       `json:"name"`
	Version         string       `json:"version"`
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
}

// ActionInfo represents metadata about a registered action.
type ActionInfo struct {
	Name         string
	Description  string
	InputSchema  any
	OutputSchema any
}

// Option configures a Server.
type Option func(*Server)

// Server holds the three capability registries. Registries are populated
// during setup (builders or Bind) and read-only at request time.
type Server struct {
	mu sync.RWMutex

	info      Info
	actions   map[string]*Action
	resources map[string]*Resource
	prompts   map[string]*Prompt

	// introspection metadata in registration order
	methods []MethodMeta
}

// New creates a new server with the given info and options.
func New(info Info, opts ...Option) *Server {
	s := &Server{
		info:      info,
		actions:   make(map[string]*Action),
		resources: make(map[string]*Resource),
		prompts:   make(map[string]*Prompt),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Info returns the server info.
func (s *Server) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Capabilities reports which categories have at least one registration.
func (s *Server) Capabilities() Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Capabilities{
		Tools:     len(s.actions) > 0,
		Resources: len(s.resources) > 0,
		Prompts:   len(s.prompts) > 0,
	}
}

// Manifest returns the server manifest for the initialize handshake.
func (s *Server) Manifest() Manifest {
	return Manifest{
		Name:            s.Info().Name,
		Version:         s.Info().Version,
		ProtocolVersion: protocol.Version,
		Capabilities:    s.Capabilities(),
	}
}

// Action starts building a new action with the given name.
func (s *Server) Action(name string) *ActionBuilder {
	return &ActionBuilder{
		action: &Action{
			name: name,
		},
		server: s,
	}
}

// Actions returns info about all registered actions.
func (s *Server) Actions() []ActionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ActionInfo, 0, len(s.actions))
	for _, a := range s.actions {
		result = append(result, ActionInfo{
			Name:         a.name,
			Description:  a.description,
			InputSchema:  schemaOrNil(a.inputSchema),
			OutputSchema: schemaOrNil(a.outputSchema),
		})
	}
	return result
}

// GetAction retrieves an action by name.
func (s *Server) GetAction(name string) (*Action, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actions[name]
	return a, ok
}

// registerAction adds an action to the server.
func (s *Server) registerAction(a *Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[a.name] = a
	s.methods = append(s.methods, a.meta())
}

// Resource starts building a new readable resource with the given URI template.
func (s *Server) Resource(uriTemplate string) *ResourceBuilder {
	return &ResourceBuilder{
		resource: &Resource{
			uriTemplate: uriTemplate,
			mimeType:    defaultMimeType,
		},
		server: s,
	}
}

// Resources returns info about all registered resources.
func (s *Server) Resources() []ResourceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ResourceInfo, 0, len(s.resources))
	for _, r := range s.resources {
		result = append(result, ResourceInfo{
			URITemplate: r.uriTemplate,
			Name:        r.name,
			Description: r.description,
			MimeType:    r.mimeType,
		})
	}
	return result
}

// registerResource adds a resource to the server.
func (s *Server) registerResource(r *Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[r.uriTemplate] = r
	s.methods = append(s.methods, r.meta())
}

// FindResourceForURI finds the first resource whose template matches the
// given URI and returns it along with the extracted template parameters.
func (s *Server) FindResourceForURI(uri string) (*Resource, map[string]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.resources {
		if params, ok := r.Match(uri); ok {
			return r, params, true
		}
	}
	return nil, nil, false
}

// Prompt starts building a new prompt template with the given name.
func (s *Server) Prompt(name string) *PromptBuilder {
	return &PromptBuilder{
		prompt: &Prompt{
			name: name,
		},
		server: s,
	}
}

// Prompts returns info about all registered prompts.
func (s *Server) Prompts() []PromptInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]PromptInfo, 0, len(s.prompts))
	for _, p := range s.prompts {
		result = append(result, PromptInfo{
			Name:        p.name,
			Description: p.description,
			Arguments:   p.arguments,
		})
	}
	return result
}

// GetPrompt retrieves a prompt by name.
func (s *Server) GetPrompt(name string) (*Prompt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prompts[name]
	return p, ok
}

// registerPrompt adds a prompt to the server.
func (s *Server) registerPrompt(p *Prompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[p.name] = p
	s.methods = append(s.methods, p.meta())
}

// schemaOrNil keeps a typed nil *schema.Schema from leaking into JSON as
// "inputSchema": null vs being omitted entirely.
func schemaOrNil[T any](s *T) any {
	if s == nil {
		return nil
	}
	return s
}
