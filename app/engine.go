package main

import "fmt"

// Engine is the composition root: parse, plan, execute (C7 -> C8 -> C9).
type Engine struct {
	db Database
}

func NewEngine(db Database) *Engine {
	return &Engine{db: db}
}

// RunQuery parses and executes a single SQL statement. Errors are
// returned, never logged here - the CLI driver (C10) owns diagnostics.
func (e *Engine) RunQuery(sql string) (*QueryResult, error) {
	stmtList, err := Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	if len(stmtList.Statements) != 1 {
		return nil, NewDatabaseError(KindUnsupportedFeature, "run_query", ErrUnsupportedCount, map[string]interface{}{
			"reason": "exactly one statement is supported per invocation",
		})
	}

	selectStmt, ok := stmtList.Statements[0].(*SelectStmt)
	if !ok {
		return nil, NewDatabaseError(KindUnsupportedFeature, "run_query", ErrUnsupportedCount, map[string]interface{}{
			"reason": "only SELECT is executable",
		})
	}

	planner := NewPlanner(e.db)
	plan, err := planner.Plan(selectStmt)
	if err != nil {
		return nil, fmt.Errorf("plan query: %w", err)
	}

	result, err := plan.Execute()
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	return result, nil
}
