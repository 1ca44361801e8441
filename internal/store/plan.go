package store

import (
	"context"
	"fmt"
	"strings"
)

// Step deletes every row of Table matching Where.
type Step struct {
	Table string
	Where Where
}

type StepResult struct {
	Table   string `json:"table"`
	Deleted int64  `json:"deleted"`
}

// Plan is an ordered multi-row delete. Steps run child-to-parent; Verify
// names the parent row that must be gone once the steps have run.
type Plan struct {
	Steps  []Step
	Verify Step
}

// DeleteVerificationFailed means every step ran without error but the
// parent row is still readable, typically because a row policy made the
// store skip it silently.
type DeleteVerificationFailed struct {
	Table string
	Where Where
	Steps []StepResult
}

func (e *DeleteVerificationFailed) Error() string {
	parts := make([]string, 0, len(e.Steps))
	for _, step := range e.Steps {
		parts = append(parts, fmt.Sprintf("%s=%d", step.Table, step.Deleted))
	}
	return fmt.Sprintf("delete verification failed: %s row still present after [%s]", e.Table, strings.Join(parts, " "))
}

// Execute runs the plan inside one transaction and re-reads the parent.
func (p Plan) Execute(ctx context.Context, st Store) ([]StepResult, error) {
	if p.Verify.Table == "" || len(p.Verify.Where) == 0 {
		return nil, fmt.Errorf("delete plan: verification target is required")
	}

	var results []StepResult
	err := st.Transaction(ctx, func(tx Store) error {
		results = make([]StepResult, 0, len(p.Steps))
		for _, step := range p.Steps {
			deleted, err := tx.Delete(ctx, step.Table, step.Where)
			if err != nil {
				return fmt.Errorf("delete %s: %w", step.Table, err)
			}
			results = append(results, StepResult{Table: step.Table, Deleted: deleted})
		}

		remaining, err := tx.Count(ctx, p.Verify.Table, p.Verify.Where)
		if err != nil {
			return fmt.Errorf("verify %s: %w", p.Verify.Table, err)
		}
		if remaining > 0 {
			return &DeleteVerificationFailed{
				Table: p.Verify.Table,
				Where: p.Verify.Where,
				Steps: append([]StepResult(nil), results...),
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// DeleteReport is what a composite delete returns: the non-fatal warnings
// of its dry run and the rows each step removed.
type DeleteReport struct {
	Warnings []string     `json:"warnings"`
	Steps    []StepResult `json:"steps"`
}
