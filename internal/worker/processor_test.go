package worker

import (
	"context"
	"errors"
	"testing"

	"ledgerly/internal/amqp"
	"ledgerly/internal/ledger"
)

type fakePurger struct {
	wallets []string
	err     error
}

func (f *fakePurger) PurgeWalletTransactions(_ context.Context, walletID string) (int, error) {
	f.wallets = append(f.wallets, walletID)
	return 3, f.err
}

type fakeMirror struct {
	events []ledger.Event
	err    error
}

func (f *fakeMirror) Mirror(_ context.Context, ev ledger.Event) error {
	f.events = append(f.events, ev)
	return f.err
}

func TestHandlePurge(t *testing.T) {
	purger := &fakePurger{}
	p := NewProcessor(purger, nil, nil)
	if err := p.Handle(context.Background(), amqp.NewPurgeMessage("w1")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(purger.wallets) != 1 || purger.wallets[0] != "w1" {
		t.Fatalf("unexpected purges %v", purger.wallets)
	}

	purger.err = errors.New("locked")
	if err := p.Handle(context.Background(), amqp.NewPurgeMessage("w2")); err == nil {
		t.Fatal("expected purge failure to surface so the message is retried")
	}
}

func TestHandleEvent(t *testing.T) {
	mirror := &fakeMirror{}
	p := NewProcessor(&fakePurger{}, mirror, nil)
	msg := amqp.NewEventMessage(ledger.Event{Type: ledger.EventWalletSaved, OwnerID: "u1", WalletID: "w1"})

	if err := p.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mirror.events) != 1 || mirror.events[0].WalletID != "w1" {
		t.Fatalf("unexpected mirrored events %+v", mirror.events)
	}

	noMirror := NewProcessor(&fakePurger{}, nil, nil)
	if err := noMirror.Handle(context.Background(), msg); err != nil {
		t.Fatalf("events without a mirror should be acknowledged: %v", err)
	}
}

func TestHandleUnknownKind(t *testing.T) {
	p := NewProcessor(&fakePurger{}, nil, nil)
	if err := p.Handle(context.Background(), &amqp.Message{Kind: "bogus"}); err == nil {
		t.Fatal("expected error")
	}
}
