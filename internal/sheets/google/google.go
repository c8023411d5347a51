// Package google mirrors ledger events into a Google Sheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerly/internal/ledger"
	"ledgerly/internal/log"
	"ledgerly/internal/sheets"
)

const defaultSheetName = "Transactions"

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

var _ sheets.Mirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account. Extra
// client options are appended after the credentials.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Discard()
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}

	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	var all []goption.ClientOption
	if len(creds) > 0 {
		all = append(all, goption.WithCredentialsJSON(creds), goption.WithScopes(gsheet.SpreadsheetsScope))
	} else if len(opts) == 0 {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	all = append(all, opts...)

	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

func credentials(cfg Config) ([]byte, error) {
	if j := strings.TrimSpace(cfg.CredentialsJSON); j != "" {
		return []byte(j), nil
	}
	if f := strings.TrimSpace(cfg.CredentialsFile); f != "" {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, nil
}

// Mirror appends one row describing ev to the sheet.
func (c *Client) Mirror(ctx context.Context, ev ledger.Event) error {
	row, ok := eventRow(ev)
	if !ok {
		c.logger.DebugContext(ctx, "Skipping unmirrored event", "event", string(ev.Type))
		return nil
	}

	rng := fmt.Sprintf("%s!A:%c", c.sheetName, 'A'+len(Header)-1)
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{
		Values: [][]any{row},
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}

	c.logger.InfoContext(ctx, "Event mirrored to sheet",
		log.FieldOperation, log.OpSync,
		"event", string(ev.Type),
		log.FieldWalletID, ev.WalletID,
		log.FieldTransactionID, ev.TransactionID)
	return nil
}
