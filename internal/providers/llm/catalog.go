package llm

import "sync"

// Model is one selectable model identifier
type Model struct {
	ID          string   `json:"id"`
	Provider    Provider `json:"provider"`
	DisplayName string   `json:"display_name"`
}

// Catalog lists the models offered in settings
type Catalog struct {
	mu     sync.RWMutex
	models []Model
}

func builtinModels() []Model {
	return []Model{
		{ID: "claude-3-opus-20240229", Provider: ProviderAnthropic, DisplayName: "claude 3 opus"},
		{ID: "claude-3-5-sonnet-20240620", Provider: ProviderAnthropic, DisplayName: "claude 3.5 sonnet, jun 20"},
		{ID: "claude-3-5-sonnet-20241022", Provider: ProviderAnthropic, DisplayName: "claude 3.5 sonnet, oct 22"},
		{ID: "claude-3-5-haiku-20241022", Provider: ProviderAnthropic, DisplayName: "claude 3.5 haiku"},
		{ID: "gpt-4o", Provider: ProviderOpenAI, DisplayName: "gpt-4o"},
		{ID: "gpt-4o-mini", Provider: ProviderOpenAI, DisplayName: "gpt-4o mini"},
		{ID: "llama3.1", Provider: ProviderOllama, DisplayName: "llama 3.1 (local)"},
		{ID: "qwen2.5-coder", Provider: ProviderOllama, DisplayName: "qwen 2.5 coder (local)"},
	}
}

// NewCatalog returns the builtin models plus any extra ones
func NewCatalog(extra ...Model) *Catalog {
	c := &Catalog{models: builtinModels()}
	for _, m := range extra {
		c.Register(m)
	}
	return c
}

// Register adds or replaces a model by id
func (c *Catalog) Register(m Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.models {
		if c.models[i].ID == m.ID {
			c.models[i] = m
			return
		}
	}
	c.models = append(c.models, m)
}

// List returns every model, optionally filtered to one provider
func (c *Catalog) List(p Provider) []Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Model, 0, len(c.models))
	for _, m := range c.models {
		if p == "" || m.Provider == p {
			out = append(out, m)
		}
	}
	return out
}

// Get looks a model up by id
func (c *Catalog) Get(id string) (Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}
