package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"familybudget/internal/core"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed sentinel", amqp091.ErrClosed, true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"other", errors.New("invalid input"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClientCircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "budget", routingKey: "expense.recorded"}

	if client.isCircuitOpen() {
		t.Fatal("circuit should start closed")
	}
	for i := 0; i < maxFailures; i++ {
		client.recordFailure()
	}
	if !client.isCircuitOpen() || atomic.LoadInt32(&client.state) != StateOpen {
		t.Fatal("circuit should open after max failures")
	}

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if client.isCircuitOpen() || atomic.LoadInt32(&client.state) != StateHalfOpen {
		t.Fatal("circuit should go half-open after the timeout")
	}

	client.recordFailure()
	if atomic.LoadInt32(&client.state) != StateOpen {
		t.Fatal("a failure while half-open must reopen the circuit")
	}

	client.recordSuccess()
	if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
		t.Fatal("success must close the circuit")
	}
}

func TestPublishFailsFast(t *testing.T) {
	row := core.NewExpenseRow(time.Now(), "u", "Спорт", decimal.NewFromInt(1), "")
	client := &Client{exchangeName: "budget", routingKey: "expense.recorded"}

	atomic.StoreInt32(&client.state, StateOpen)
	client.lastFailure = time.Now()
	err := client.PublishExpenseRecorded(context.Background(), row)
	if err == nil || !strings.Contains(err.Error(), "circuit breaker is open") {
		t.Fatalf("expected open circuit error, got %v", err)
	}

	client.recordSuccess()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.PublishExpenseRecorded(ctx, row); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExpenseRecordedMessage(t *testing.T) {
	row := core.NewExpenseRow(time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC), "Olena", "Шопінг", decimal.RequireFromString("12.50"), "-")
	msg := NewExpenseRecordedMessage(row)
	if msg.PublishedAt.IsZero() || msg.RecordedAt != "2025-01-02 03:04" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !strings.Contains(string(body), `"amount":"12.5"`) {
		t.Fatalf("amount must be a decimal string: %s", body)
	}
	parsed, err := ExpenseRecordedMessageFromJSON(body)
	if err != nil || !parsed.Amount.Equal(row.Amount) || parsed.Category != "Шопінг" {
		t.Fatalf("parse: %+v err=%v", parsed, err)
	}

	if _, err := ExpenseRecordedMessageFromJSON([]byte(`{"amount": true}`)); err == nil {
		t.Fatal("expected error for invalid body")
	}
}
