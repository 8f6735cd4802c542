package executor

import (
	"errors"
	"sort"
	"sync"
)

// ErrUnknownExecutor — тип исполнителя не зарегистрирован.
var ErrUnknownExecutor = errors.New("unknown executor type")

// Info — описание зарегистрированного исполнителя.
type Info struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Registry — реестр исполнителей по типу.
//
// Потокобезопасен.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[string]Executor),
	}
}

// Register регистрирует исполнитель.
// Исполнитель с тем же типом перезаписывается.
func (r *Registry) Register(exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[exec.Type()] = exec
}

// Get возвращает исполнитель по типу или nil.
func (r *Registry) Get(execType string) Executor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.executors[execType]
}

// Has проверяет, зарегистрирован ли тип.
func (r *Registry) Has(execType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.executors[execType]
	return ok
}

// Types возвращает отсортированный список типов.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// List возвращает описания всех исполнителей.
func (r *Registry) List() map[string]Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Info, len(r.executors))
	for t, exec := range r.executors {
		info := Info{Type: t}
		if d, ok := exec.(Describer); ok {
			info.Description = d.Description()
		}
		out[t] = info
	}
	return out
}
