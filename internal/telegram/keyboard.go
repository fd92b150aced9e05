package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"familybudget/internal/conversation"
	"familybudget/internal/core"
	"familybudget/internal/render"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(buttonRows(render.MainMenuRows())...)
}

// categoryKeyboard disappears after one choice.
func categoryKeyboard(catalog *core.Catalog) tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(buttonRows(render.CategoryRows(catalog))...)
	kb.OneTimeKeyboard = true
	return kb
}

func buttonRows(labels [][]string) [][]tgbotapi.KeyboardButton {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(labels))
	for _, r := range labels {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(r))
		for _, label := range r {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	return rows
}

// replyMarkup returns the markup for kb, or nil to keep the current keyboard.
func replyMarkup(kb conversation.Keyboard, catalog *core.Catalog) interface{} {
	switch kb {
	case conversation.KeyboardMainMenu:
		return mainMenuKeyboard()
	case conversation.KeyboardCategories:
		return categoryKeyboard(catalog)
	case conversation.KeyboardRemove:
		return tgbotapi.NewRemoveKeyboard(false)
	default:
		return nil
	}
}

func commandList() []tgbotapi.BotCommand {
	cmds := make([]tgbotapi.BotCommand, 0, len(render.Commands))
	for _, c := range render.Commands {
		cmds = append(cmds, tgbotapi.BotCommand{Command: c.Name, Description: c.Description})
	}
	return cmds
}
