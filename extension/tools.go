package extension

import (
	"context"
	"sync"

	"github.com/viant/x"

	"github.com/opsgate/opsgate/risk"
)

// Tool is a named operation an agent may request to execute once the engine
// has allowed it.
type Tool interface {
	Name() string
	Profile() *risk.Profile
	Execute(ctx context.Context, input map[string]interface{}) (interface{}, error)
}

// TypeIniter is implemented by tools that want to register their input and
// output Go types.
type TypeIniter interface {
	InitTypes(types *Types)
}

// Tools indexes the executable tool surface.
type Tools struct {
	types *Types
	tools map[string]Tool
	mux   sync.RWMutex
}

// Types returns the type registry.
func (t *Tools) Types() *Types {
	return t.types
}

// Lookup returns a tool by name, or nil when unknown.
func (t *Tools) Lookup(name string) Tool {
	t.mux.RLock()
	defer t.mux.RUnlock()
	return t.tools[name]
}

// Register registers a tool.
func (t *Tools) Register(tool Tool) {
	t.mux.Lock()
	defer t.mux.Unlock()
	if typer, ok := tool.(TypeIniter); ok {
		typer.InitTypes(t.types)
	}
	t.tools[tool.Name()] = tool
}

// Profiles returns the risk profiles of every registered tool, used to seed
// the classifier.
func (t *Tools) Profiles() []*risk.Profile {
	t.mux.RLock()
	defer t.mux.RUnlock()
	result := make([]*risk.Profile, 0, len(t.tools))
	for _, tool := range t.tools {
		if profile := tool.Profile(); profile != nil {
			result = append(result, profile)
		}
	}
	return result
}

// NewTools creates a tool registry, pre-registering the supplied Go types.
func NewTools(goTypes ...*x.Type) *Tools {
	ret := &Tools{
		types: NewTypes(),
		tools: make(map[string]Tool),
	}
	for _, t := range goTypes {
		if t != nil {
			ret.types.Register(t)
		}
	}
	return ret
}
