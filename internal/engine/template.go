package engine

import (
	"regexp"
	"strings"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
)

// varPattern — значение целиком вида ${name}. Допускается путь через точку: ${post.id}.
var varPattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*)\}$`)

// Context — общий контекст workflow.
//
// Заполняется параметрами задачи, после каждого успешного шага
// в него сливаются данные ExecutionResult.Data (ключ в ключ).
type Context struct {
	vars map[string]any
}

// NewContext создаёт контекст из начальных параметров.
func NewContext(seed map[string]any) *Context {
	vars := domain.CloneMap(seed)
	if vars == nil {
		vars = make(map[string]any)
	}
	return &Context{vars: vars}
}

// Get возвращает значение переменной.
// Сначала ищется точное совпадение ключа, затем путь через точку по вложенным map.
func (c *Context) Get(name string) (any, bool) {
	if v, ok := c.vars[name]; ok {
		return v, true
	}
	if !strings.Contains(name, ".") {
		return nil, false
	}

	var cur any = c.vars
	for _, part := range strings.Split(name, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Merge сливает данные шага в контекст, перезаписывая совпадающие ключи.
func (c *Context) Merge(data map[string]any) {
	for k, v := range data {
		c.vars[k] = v
	}
}

// Snapshot возвращает копию контекста.
func (c *Context) Snapshot() map[string]any {
	return domain.CloneMap(c.vars)
}

// ParseVariable возвращает имя переменной, если s имеет вид ${name}.
func ParseVariable(s string) (string, bool) {
	m := varPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ResolveValue подставляет переменные в произвольное значение.
// Рекурсивно обрабатывает map и slice.
//
// Подставляются только строки целиком вида ${name}; значение берётся
// из контекста с сохранением типа. Неизвестные переменные остаются
// как есть, их имена передаются в missing (может быть nil).
func ResolveValue(value any, ctx *Context, missing func(name string)) any {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case string:
		return resolveString(v, ctx, missing)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = ResolveValue(val, ctx, missing)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = ResolveValue(val, ctx, missing)
		}
		return result

	case map[string]string:
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = resolveString(val, ctx, missing)
		}
		return result

	case []string:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = resolveString(val, ctx, missing)
		}
		return result

	default:
		// Для остальных типов (int, float, bool) возвращаем как есть
		return value
	}
}

func resolveString(s string, ctx *Context, missing func(string)) any {
	name, ok := ParseVariable(s)
	if !ok {
		return s
	}
	if val, found := ctx.Get(name); found {
		return val
	}
	if missing != nil {
		missing(name)
	}
	return s
}

// ResolveParams подставляет переменные в параметры шага.
// Возвращает новые параметры и список неразрешённых переменных.
func ResolveParams(params map[string]any, ctx *Context) (map[string]any, []string) {
	if params == nil {
		return make(map[string]any), nil
	}

	var unresolved []string
	resolved := ResolveValue(params, ctx, func(name string) {
		unresolved = append(unresolved, name)
	})

	return resolved.(map[string]any), unresolved
}
