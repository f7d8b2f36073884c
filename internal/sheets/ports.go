package sheets

import (
	"context"

	"bukukas/internal/report"
)

// Ports for outbound adapters.
type (
	// TableWriter replaces the contents of one worksheet with a table.
	TableWriter interface {
		// WriteTable returns a reference to the written range.
		WriteTable(ctx context.Context, t report.Table) (ref string, err error)
	}
)
