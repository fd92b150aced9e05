package log

import (
	"sort"
	"strconv"
)

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldCorrelationID = "correlation_id"
	FieldUserID        = "user_id"
	FieldUserName      = "user_name"
	FieldEvent         = "event"
	FieldState         = "state"
	FieldCategory      = "category"
	FieldAmount        = "amount"
	FieldRecipient     = "recipient"
	FieldBackend       = "backend"
	FieldOperation     = "operation"
	FieldDuration      = "duration_ms"
	FieldRows          = "rows"
	FieldError         = "error"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentBot          = "bot"
	ComponentConversation = "conversation"
	ComponentLedger       = "ledger"
	ComponentReport       = "report"
	ComponentHTTP         = "http"
	ComponentAMQP         = "amqp"
)

// Operations defines standard operation names
const (
	OpAppend   = "append"
	OpRead     = "read"
	OpCommit   = "commit"
	OpDispatch = "dispatch"
	OpPublish  = "publish"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithCorrelationID(id string) LogFields {
	f[FieldCorrelationID] = id
	return f
}

func (f LogFields) WithUser(id int64, name string) LogFields {
	f[FieldUserID] = strconv.FormatInt(id, 10)
	if name != "" {
		f[FieldUserName] = name
	}
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithExpense adds expense-related fields; amount is the decimal text.
func (f LogFields) WithExpense(category, amount string) LogFields {
	f[FieldCategory] = category
	f[FieldAmount] = amount
	return f
}

// ToSlice converts LogFields to a slice for slog, keys sorted for stable output.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
