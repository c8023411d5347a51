// Package worker handles the messages ledgerd hands off to the queue.
package worker

import (
	"context"
	"fmt"
	"time"

	"ledgerly/internal/amqp"
	"ledgerly/internal/log"
	"ledgerly/internal/sheets"
)

// Purger deletes the transactions of a removed wallet.
type Purger interface {
	PurgeWalletTransactions(ctx context.Context, walletID string) (int, error)
}

type Processor struct {
	purger Purger
	mirror sheets.Mirror
	logger *log.Logger
}

// NewProcessor builds a processor. mirror may be nil, in which case ledger
// events are acknowledged without being mirrored.
func NewProcessor(purger Purger, mirror sheets.Mirror, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.Discard()
	}
	return &Processor{purger: purger, mirror: mirror, logger: logger.WithComponent(log.ComponentWorker)}
}

// Handle is an amqp.Handler.
func (p *Processor) Handle(ctx context.Context, msg *amqp.Message) error {
	switch msg.Kind {
	case amqp.KindWalletPurge:
		return p.purge(ctx, msg.WalletID)
	case amqp.KindLedgerEvent:
		return p.mirrorEvent(ctx, msg.Event)
	default:
		return fmt.Errorf("unsupported message kind %q", msg.Kind)
	}
}

func (p *Processor) purge(ctx context.Context, walletID string) error {
	start := time.Now()
	n, err := p.purger.PurgeWalletTransactions(ctx, walletID)
	if err != nil {
		return fmt.Errorf("purge wallet %s: %w", walletID, err)
	}
	p.logger.InfoContext(ctx, "Wallet purge processed",
		log.FieldWalletID, walletID,
		log.FieldCount, n,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (p *Processor) mirrorEvent(ctx context.Context, em *amqp.EventMessage) error {
	if p.mirror == nil {
		return nil
	}
	if err := p.mirror.Mirror(ctx, em.LedgerEvent()); err != nil {
		return fmt.Errorf("mirror %s: %w", em.Type, err)
	}
	return nil
}
