package analyzer

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/kenyafarmiot/farmdb/internal/migration"
)

// Rule is the interface that all lint rules must implement.
type Rule interface {
	// ID returns a unique kebab-case identifier for this rule.
	ID() string
	// Check examines a single parsed statement and returns any findings.
	Check(stmt *pg_query.RawStmt, ctx *RuleContext) []Finding
}

// RuleContext provides contextual information to rules during analysis.
type RuleContext struct {
	Migration       *migration.Migration
	TargetPGVersion int
	StmtIndex       int
	Stmts           []*pg_query.RawStmt // every statement of the body being checked
	Down            bool
}

// Registry holds a collection of rules.
type Registry struct {
	rules []Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a rule to the registry.
func (r *Registry) Register(rule Rule) {
	r.rules = append(r.rules, rule)
}

// Rules returns all registered rules.
func (r *Registry) Rules() []Rule {
	return r.rules
}

// Disable removes the rules with the given IDs.
func (r *Registry) Disable(ids ...string) {
	if len(ids) == 0 {
		return
	}

	skip := make(map[string]bool, len(ids))
	for _, id := range ids {
		skip[id] = true
	}

	kept := r.rules[:0]

	for _, rule := range r.rules {
		if !skip[rule.ID()] {
			kept = append(kept, rule)
		}
	}

	r.rules = kept
}

// TableName extracts a qualified table name from a RangeVar.
func TableName(rv *pg_query.RangeVar) string {
	if rv == nil {
		return "<unknown>"
	}

	if rv.Schemaname != "" {
		return rv.Schemaname + "." + rv.Relname
	}

	return rv.Relname
}

// ObjectName joins the String parts of a qualified name list, as found in
// DropStmt objects.
func ObjectName(node *pg_query.Node) string {
	if node == nil {
		return ""
	}

	list, ok := node.Node.(*pg_query.Node_List)
	if !ok {
		return ""
	}

	parts := make([]string, 0, len(list.List.Items))

	for _, item := range list.List.Items {
		if s, ok := item.Node.(*pg_query.Node_String_); ok {
			parts = append(parts, s.String_.Sval)
		}
	}

	return strings.Join(parts, ".")
}
