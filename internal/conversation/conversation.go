// Package conversation implements the guided expense entry dialogue.
//
// Every user has one session that moves through
//
//	Idle -> AwaitingCategory -> AwaitingAmount -> AwaitingComment -> Idle
//
// and commits exactly one ledger row per completed traversal. Sessions are
// owned by a Manager created at startup; they are reset explicitly (commit,
// cancel, start) and never expire on their own.
package conversation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"familybudget/internal/core"
)

// State is the position of a session in the dialogue.
type State int

const (
	Idle State = iota
	AwaitingCategory
	AwaitingAmount
	AwaitingComment
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingCategory:
		return "awaiting_category"
	case AwaitingAmount:
		return "awaiting_amount"
	case AwaitingComment:
		return "awaiting_comment"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind is the intent of an incoming message, decided by the transport.
type EventKind int

const (
	// EventText is free text for the current step.
	EventText EventKind = iota
	// EventStart is the start command: reset and show the main menu.
	EventStart
	// EventAddExpense enters the dialogue.
	EventAddExpense
	// EventBack leaves the category selector.
	EventBack
	// EventCancel discards the draft from any step.
	EventCancel
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventStart:
		return "start"
	case EventAddExpense:
		return "add_expense"
	case EventBack:
		return "back"
	case EventCancel:
		return "cancel"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one typed user input.
type Event struct {
	Kind EventKind
	// Text is the raw message; for EventBack it is the label that was pressed.
	Text string
}

// Text builds a free-text event.
func Text(s string) Event { return Event{Kind: EventText, Text: s} }

// Keyboard tells the transport which reply keyboard to attach.
type Keyboard int

const (
	// KeyboardKeep leaves whatever keyboard the user currently has.
	KeyboardKeep Keyboard = iota
	KeyboardMainMenu
	KeyboardCategories
	// KeyboardRemove hides the keyboard so free text can be typed.
	KeyboardRemove
)

// Reply is what the user sees after an event. An empty Text means no message.
type Reply struct {
	Text     string
	Keyboard Keyboard
}

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	State     State
	Category  core.Category
	Amount    decimal.Decimal
	HasAmount bool
	Busy      bool
}

type draft struct {
	category  core.Category
	amount    decimal.Decimal
	hasAmount bool
}

type session struct {
	state State
	draft draft
	// committing is set while the ledger write of this session is in flight.
	committing bool
}

func (s *session) reset() {
	s.state = Idle
	s.draft = draft{}
}

func (s *session) snapshot() Snapshot {
	return Snapshot{
		State:     s.state,
		Category:  s.draft.category,
		Amount:    s.draft.amount,
		HasAmount: s.draft.hasAmount,
		Busy:      s.committing,
	}
}
