package telegram

import (
	"strings"

	"familybudget/internal/conversation"
	"familybudget/internal/render"
)

// Action is what an incoming message asks the bot to do.
type Action int

const (
	// ActionIgnore drops the message without a reply.
	ActionIgnore Action = iota
	// ActionConversation forwards Event to the expense dialogue.
	ActionConversation
	ActionBalance
	ActionStats
	ActionReport
)

func (a Action) String() string {
	switch a {
	case ActionConversation:
		return "conversation"
	case ActionBalance:
		return "balance"
	case ActionStats:
		return "stats"
	case ActionReport:
		return "report"
	default:
		return "ignore"
	}
}

// Intent is a decoded message.
type Intent struct {
	Action Action
	Event  conversation.Event
}

// DecodeIntent maps a message to an intent. command is the bot command
// without the slash, empty for plain text. Keyboard labels are matched exactly;
// anything else is free text for the dialogue.
func DecodeIntent(text, command string) Intent {
	if command != "" {
		switch command {
		case "start":
			return dialogue(conversation.EventStart, text)
		case "add":
			return dialogue(conversation.EventAddExpense, text)
		case "cancel":
			return dialogue(conversation.EventCancel, text)
		case "balance":
			return Intent{Action: ActionBalance}
		case "stats":
			return Intent{Action: ActionStats}
		case "report":
			return Intent{Action: ActionReport}
		default:
			return Intent{Action: ActionIgnore}
		}
	}

	switch strings.TrimSpace(text) {
	case render.LabelAdd:
		return dialogue(conversation.EventAddExpense, text)
	case render.LabelCancel:
		return dialogue(conversation.EventCancel, text)
	case render.LabelBack:
		return dialogue(conversation.EventBack, text)
	case render.LabelBalance:
		return Intent{Action: ActionBalance}
	case render.LabelStats:
		return Intent{Action: ActionStats}
	case render.LabelReport:
		return Intent{Action: ActionReport}
	}
	return dialogue(conversation.EventText, text)
}

func dialogue(kind conversation.EventKind, text string) Intent {
	return Intent{Action: ActionConversation, Event: conversation.Event{Kind: kind, Text: text}}
}
