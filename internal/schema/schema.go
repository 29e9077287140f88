// Package schema is the table registry: it maps a table name to the record
// shape writers must follow and validates rows at insert time.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/model"
)

// Kind is the JSON kind of a column value.
type Kind int

const (
	String Kind = iota
	Number
	Bool
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	}
	return "unknown"
}

// Column describes one field of a table record.
type Column struct {
	Kind     Kind
	Required bool
	// Rules is a validator tag applied to present values, e.g. "oneof=user ai".
	Rules string
}

var validate = validator.New()

// Table is the schema of one named table. Columns not listed are rejected.
type Table struct {
	Name    string
	Columns map[string]Column
}

// Built-in tables used by the app.
const (
	ChatHistory = "chat_history"
	HealthLogs  = "health_logs"
)

// Sender values of a chat message.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Registry holds the known tables. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]Table
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: map[string]Table{}}
}

// Default returns a registry with the chat_history and health_logs tables.
func Default() *Registry {
	r := NewRegistry()
	r.Register(Table{
		Name: ChatHistory,
		Columns: map[string]Column{
			model.ColumnUserID: {Kind: String, Required: true, Rules: "min=1"},
			"message":          {Kind: String, Required: true},
			"sender":           {Kind: String, Required: true, Rules: "oneof=" + SenderUser + " " + SenderAI},
		},
	})
	r.Register(Table{
		Name: HealthLogs,
		Columns: map[string]Column{
			model.ColumnUserID: {Kind: String, Required: true, Rules: "min=1"},
			"camera_result":    {Kind: String, Required: true},
			"ai_feedback":      {Kind: String, Required: true},
		},
	})
	return r
}

// Register adds or replaces a table definition.
func (r *Registry) Register(t Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[t.Name] = t
}

// Lookup returns the table definition by name.
func (r *Registry) Lookup(name string) (Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	return t, ok
}

// Names lists registered tables in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tables))
	for n := range r.tables {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Validate checks row against the schema of table. The injected id and
// timestamp columns are always allowed.
func (r *Registry) Validate(table string, row model.Record) error {
	t, ok := r.Lookup(table)
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrUnknownTable, table)
	}
	return t.Validate(row)
}

// Validate checks row against t.
func (t Table) Validate(row model.Record) error {
	var problems []string
	for name, col := range t.Columns {
		v, present := row[name]
		if !present || v == nil {
			if col.Required {
				problems = append(problems, name+": required")
			}
			continue
		}
		if p := col.check(v); p != "" {
			problems = append(problems, name+": "+p)
		}
	}
	for name := range row {
		if name == model.ColumnID || name == model.ColumnTimestamp {
			continue
		}
		if _, known := t.Columns[name]; !known {
			problems = append(problems, name+": unknown column")
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("%w: %s: %s", errs.ErrInvalidRecord, t.Name, strings.Join(problems, "; "))
}

func (c Column) check(v any) string {
	switch c.Kind {
	case String:
		if _, ok := v.(string); !ok {
			return fmt.Sprintf("want string, got %T", v)
		}
	case Number:
		switch v.(type) {
		case float64, float32, int, int32, int64:
		default:
			return fmt.Sprintf("want number, got %T", v)
		}
	case Bool:
		if _, ok := v.(bool); !ok {
			return fmt.Sprintf("want bool, got %T", v)
		}
	}
	if c.Rules == "" {
		return ""
	}
	if err := validate.Var(v, c.Rules); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return fmt.Sprintf("%v fails %s=%s", v, ve[0].Tag(), ve[0].Param())
		}
		return err.Error()
	}
	return ""
}
