package sheets

import (
	"context"

	"fluxo/internal/core"
)

// Ports for outbound spreadsheet adapters.
type (
	// LedgerMirror copies realized transactions into a spreadsheet. Appending
	// a transaction that is already mirrored returns its existing row.
	LedgerMirror interface {
		AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}
)
