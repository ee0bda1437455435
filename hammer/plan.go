package hammer

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Plan is a read-only preview of the statements a run would issue against
// the current catalog.
type Plan struct {
	Schema string      `yaml:"schema" json:"schema"`
	Tables []string    `yaml:"tables" json:"tables"`
	Phases []PlanPhase `yaml:"phases" json:"phases"`
}

type PlanPhase struct {
	Phase      Phase    `yaml:"phase" json:"phase"`
	Statements []string `yaml:"statements" json:"statements"`
}

// Statements returns the number of statements across all phases.
func (p *Plan) Statements() int {
	n := 0
	for _, ph := range p.Phases {
		n += len(ph.Statements)
	}
	return n
}

// YAML renders the plan.
func (p *Plan) YAML() ([]byte, error) {
	out, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal plan: %w", err)
	}
	return out, nil
}

// Plan reads the catalog and returns what Hammer would do, without executing
// anything.
func (e *Engine) Plan(ctx context.Context) (*Plan, error) {
	tables, err := e.catalog.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	d := e.conn.Dialect()
	plan := &Plan{Schema: e.catalog.Schema(), Tables: make([]string, 0, len(tables))}
	if len(tables) == 0 {
		return plan, nil
	}

	constraints := PlanPhase{Phase: PhaseDropConstraints, Statements: []string{}}
	purge := PlanPhase{Phase: PhasePurgeRows}
	drop := PlanPhase{Phase: PhaseDropTables}
	for _, t := range tables {
		plan.Tables = append(plan.Tables, t.Name)

		fks, err := e.catalog.ListForeignKeys(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		for _, fk := range fks {
			constraints.Statements = append(constraints.Statements, d.DropConstraint(t.Schema, t.Name, fk.Name))
		}
		purge.Statements = append(purge.Statements, d.DeleteRows(t.Schema, t.Name))
		drop.Statements = append(drop.Statements, d.DropTable(t.Schema, t.Name))
	}
	plan.Phases = []PlanPhase{constraints, purge, drop}
	return plan, nil
}
