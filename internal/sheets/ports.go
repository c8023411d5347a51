package sheets

import (
	"context"

	"ledgerly/internal/ledger"
)

// Mirror copies committed ledger events to an external spreadsheet.
type Mirror interface {
	Mirror(ctx context.Context, ev ledger.Event) error
}
