package google

import (
	"time"

	"ledgerly/internal/ledger"
)

// Header is the column layout of the mirror sheet.
var Header = []any{"Recorded at", "Event", "Transaction", "Wallet", "Date", "Type", "Category", "Description", "Amount"}

// eventRow renders one ledger event as a sheet row. Unknown event types are
// skipped.
func eventRow(ev ledger.Event) ([]any, bool) {
	switch ev.Type {
	case ledger.EventTransactionCreated, ledger.EventTransactionUpdated, ledger.EventTransactionDeleted,
		ledger.EventWalletSaved, ledger.EventWalletDeleted, ledger.EventWalletPurged:
	default:
		return nil, false
	}

	row := []any{ev.At.UTC().Format(time.RFC3339), string(ev.Type), ev.TransactionID, ev.WalletID, "", "", "", "", ""}
	if t := ev.Transaction; t != nil {
		row[2] = t.ID
		row[3] = t.WalletID
		row[4] = t.Date.Format("2006-01-02")
		row[5] = string(t.Type)
		row[6] = t.Category
		row[7] = t.Description
		row[8] = t.Amount.String()
	}
	return row, true
}
