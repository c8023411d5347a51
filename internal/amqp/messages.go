package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"ledgerly/internal/core"
	"ledgerly/internal/ledger"
)

type MessageKind string

const (
	KindWalletPurge MessageKind = "wallet.purge"
	KindLedgerEvent MessageKind = "ledger.event"
)

// Message is the envelope for everything sent on the ledger queue.
type Message struct {
	Kind      MessageKind   `json:"kind"`
	WalletID  string        `json:"walletId,omitempty"`
	Event     *EventMessage `json:"event,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

type EventMessage struct {
	Type          string              `json:"type"`
	OwnerID       string              `json:"ownerId"`
	WalletID      string              `json:"walletId,omitempty"`
	TransactionID string              `json:"transactionId,omitempty"`
	Transaction   *TransactionPayload `json:"transaction,omitempty"`
	At            time.Time           `json:"at"`
}

type TransactionPayload struct {
	ID          string    `json:"id"`
	WalletID    string    `json:"walletId"`
	Type        string    `json:"type"`
	AmountCents int64     `json:"amountCents"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Image       string    `json:"image,omitempty"`
}

func NewPurgeMessage(walletID string) *Message {
	return &Message{Kind: KindWalletPurge, WalletID: walletID, Timestamp: time.Now()}
}

func NewEventMessage(ev ledger.Event) *Message {
	em := &EventMessage{
		Type:          string(ev.Type),
		OwnerID:       ev.OwnerID,
		WalletID:      ev.WalletID,
		TransactionID: ev.TransactionID,
		At:            ev.At,
	}
	if t := ev.Transaction; t != nil {
		em.Transaction = &TransactionPayload{
			ID:          t.ID,
			WalletID:    t.WalletID,
			Type:        string(t.Type),
			AmountCents: t.Amount.Cents,
			Category:    t.Category,
			Description: t.Description,
			Date:        t.Date,
			Image:       t.Image,
		}
	}
	return &Message{Kind: KindLedgerEvent, WalletID: ev.WalletID, Event: em, Timestamp: time.Now()}
}

// LedgerEvent converts the message back into the event it was built from.
func (m *EventMessage) LedgerEvent() ledger.Event {
	ev := ledger.Event{
		Type:          ledger.EventType(m.Type),
		OwnerID:       m.OwnerID,
		WalletID:      m.WalletID,
		TransactionID: m.TransactionID,
		At:            m.At,
	}
	if p := m.Transaction; p != nil {
		ev.Transaction = &core.Transaction{
			ID:          p.ID,
			OwnerID:     m.OwnerID,
			WalletID:    p.WalletID,
			Type:        core.TransactionType(p.Type),
			Amount:      core.Money{Cents: p.AmountCents},
			Category:    p.Category,
			Description: p.Description,
			Date:        p.Date,
			Image:       p.Image,
		}
	}
	return ev
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON decodes and checks an envelope.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case KindWalletPurge:
		if msg.WalletID == "" {
			return nil, fmt.Errorf("%s message without walletId", msg.Kind)
		}
	case KindLedgerEvent:
		if msg.Event == nil {
			return nil, fmt.Errorf("%s message without event", msg.Kind)
		}
	default:
		return nil, fmt.Errorf("unknown message kind %q", msg.Kind)
	}
	return &msg, nil
}
