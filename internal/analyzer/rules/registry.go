package rules

import "github.com/kenyafarmiot/farmdb/internal/analyzer"

// NewDefaultRegistry returns a Registry with all built-in lint rules.
func NewDefaultRegistry() *analyzer.Registry {
	r := analyzer.NewRegistry()
	r.Register(NewCreateTableRule())
	r.Register(NewCreateIndexRule())
	r.Register(NewAddColumnRule())
	r.Register(NewDropRule())
	r.Register(NewInsertRule())
	r.Register(NewNonTransactionalRule())

	return r
}
