package analyzer

import (
	"fmt"

	"github.com/kenyafarmiot/farmdb/internal/migration"
	"github.com/kenyafarmiot/farmdb/internal/parser"
)

// DefaultPGVersion is the PostgreSQL major version assumed when none is configured.
const DefaultPGVersion = 14

const statementDisplayLen = 80

// Option configures the Analyzer.
type Option func(*Analyzer)

// Analyzer runs registered rules against parsed migrations.
type Analyzer struct {
	registry  *Registry
	parseFn   func(string) (*parser.ParseResult, error)
	pgVersion int
	withDown  bool
}

// New creates a new Analyzer with the given options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		registry:  NewRegistry(),
		parseFn:   parser.Parse,
		pgVersion: DefaultPGVersion,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WithRegistry sets a custom rule registry.
func WithRegistry(r *Registry) Option {
	return func(a *Analyzer) { a.registry = r }
}

// WithPGVersion sets the target PostgreSQL major version.
func WithPGVersion(v int) Option {
	return func(a *Analyzer) {
		if v > 0 {
			a.pgVersion = v
		}
	}
}

// WithParser overrides the SQL parser function (useful for testing).
func WithParser(fn func(string) (*parser.ParseResult, error)) Option {
	return func(a *Analyzer) { a.parseFn = fn }
}

// WithDownBodies also lints down bodies.
func WithDownBodies(b bool) Option {
	return func(a *Analyzer) { a.withDown = b }
}

// Analyze parses and lints a single migration, returning all findings.
func (a *Analyzer) Analyze(m *migration.Migration) (*AnalysisResult, error) {
	res := &AnalysisResult{Migration: m, MaxSeverity: Safe}

	if err := a.analyzeBody(res, m, m.UpSQL, false); err != nil {
		return nil, err
	}

	if a.withDown && m.HasDown() {
		if err := a.analyzeBody(res, m, m.DownSQL, true); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func (a *Analyzer) analyzeBody(res *AnalysisResult, m *migration.Migration, sql string, down bool) error {
	parsed, err := a.parseFn(sql)
	if err != nil {
		if down {
			return fmt.Errorf("parsing down body of migration %s: %w", m.Version, err)
		}

		return fmt.Errorf("parsing migration %s: %w", m.Version, err)
	}

	for i, stmt := range parsed.Stmts {
		ctx := &RuleContext{
			Migration:       m,
			TargetPGVersion: a.pgVersion,
			StmtIndex:       i,
			Stmts:           parsed.Stmts,
			Down:            down,
		}

		for _, rule := range a.registry.Rules() {
			fs := rule.Check(stmt, ctx)
			for j := range fs {
				if fs[j].Statement == "" {
					fs[j].Statement = TruncateSQL(parsed.StatementText(i), statementDisplayLen)
				}

				fs[j].Down = down

				if fs[j].Severity > res.MaxSeverity {
					res.MaxSeverity = fs[j].Severity
				}
			}

			res.Findings = append(res.Findings, fs...)
		}
	}

	return nil
}

// AnalyzeAll lints multiple migrations and returns results for each.
func (a *Analyzer) AnalyzeAll(migrations []migration.Migration) ([]AnalysisResult, error) {
	results := make([]AnalysisResult, 0, len(migrations))

	for i := range migrations {
		r, err := a.Analyze(&migrations[i])
		if err != nil {
			return nil, err
		}

		results = append(results, *r)
	}

	return results, nil
}

// Blocking returns the results whose highest finding is High or above.
func Blocking(results []AnalysisResult) []AnalysisResult {
	var out []AnalysisResult

	for i := range results {
		if results[i].HasHighOrCritical() {
			out = append(out, results[i])
		}
	}

	return out
}
