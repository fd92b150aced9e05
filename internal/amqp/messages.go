package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"familybudget/internal/core"
)

// ExpenseRecordedMessage announces one committed ledger row.
type ExpenseRecordedMessage struct {
	RecordedAt  string          `json:"recorded_at"`
	User        string          `json:"user"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Comment     string          `json:"comment"`
	PublishedAt time.Time       `json:"published_at"`
}

// NewExpenseRecordedMessage builds the message for row.
func NewExpenseRecordedMessage(row core.ExpenseRow) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		RecordedAt:  row.Timestamp.Format(core.TimestampLayout),
		User:        row.User,
		Category:    string(row.Category),
		Amount:      row.Amount,
		Comment:     row.Comment,
		PublishedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseRecordedMessageFromJSON decodes a message body.
func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
