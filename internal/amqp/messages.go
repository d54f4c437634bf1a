package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// LedgerChangedMessage announces that a commit changed entries or rules.
// It carries only the affected years; consumers reload state themselves.
type LedgerChangedMessage struct {
	Years     []int     `json:"years"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Reasons carried by LedgerChangedMessage.
const (
	ReasonEntries = "entries"
	ReasonRules   = "rules"
)

func NewLedgerChangedMessage(reason string, years ...int) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Years:     years,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode ledger changed message: %w", err)
	}
	return &msg, nil
}
