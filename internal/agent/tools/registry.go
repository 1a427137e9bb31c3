// Package tools provides the registry and executor for the functions the
// model may call during a conversation turn.
package tools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sashabaranov/go-openai"

	"geoagent/internal/logger"
)

// Registry manages the collection of callable tools. The set of registered
// names is the single source of truth for what the executor can dispatch to;
// the same set is declared to the model on every request.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry. Use Register to add tools.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. Registering a duplicate name is a
// configuration error and is rejected so a miswired startup fails loudly
// instead of silently shadowing a tool.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	r.tools[name] = tool
	logger.AgentDebugf("Registered tool: %s", name)
	return nil
}

// MustRegister registers a tool and panics on error. Intended for static
// startup wiring where a failure means the binary is misconfigured.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered tools, ordered by name.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	all := make([]Tool, 0, len(names))
	for _, name := range names {
		all = append(all, r.tools[name])
	}
	return all
}

// OpenAITools converts all registered tools to the declaration format sent
// with every chat-completion request.
func (r *Registry) OpenAITools() []openai.Tool {
	declared := make([]openai.Tool, 0)
	for _, tool := range r.All() {
		declared = append(declared, tool.ToOpenAITool())
	}
	return declared
}
