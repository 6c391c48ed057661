package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types carried on the ledger exchange.
const (
	EventTransactionRecorded = "transaction.recorded"
	EventBillSettled         = "bill.settled"
)

// LedgerEvent announces that a realized transaction exists. Consumers fetch
// the full record from the store by TransactionID.
type LedgerEvent struct {
	Type          string    `json:"type"`
	TransactionID string    `json:"transaction_id"`
	BillID        string    `json:"bill_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionRecorded(transactionID string) *LedgerEvent {
	return &LedgerEvent{
		Type:          EventTransactionRecorded,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

func NewBillSettled(billID, transactionID string) *LedgerEvent {
	return &LedgerEvent{
		Type:          EventBillSettled,
		TransactionID: transactionID,
		BillID:        billID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case EventTransactionRecorded, EventBillSettled:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.TransactionID == "" {
		return nil, fmt.Errorf("event %s without transaction id", msg.Type)
	}
	return &msg, nil
}
