package bot

import (
	"github.com/m3rciful/supportbot/core/telegram/format"
	"github.com/m3rciful/supportbot/core/telegram/keyboard"
	"github.com/m3rciful/supportbot/internal/callback"
	"github.com/m3rciful/supportbot/internal/pagination"
)

// Literal callback tokens.
const (
	cbFAQ         = "faq"
	cbProfits     = "profits"
	cbBackToFAQ   = "back_to_faq"
	cbBackToMenu  = "back_to_menu"
	cbMyRequests  = "my_requests"
	cbAll         = "all_requests"
	cbAnswered    = "answered_requests"
	cbAccepted    = "accepted_requests"
	cbCurrentPage = "current_page"
)

// labelRunes is how much of a record text fits on a list button.
const labelRunes = 10

var back = keyboard.Button{Text: "⬅️", Data: cbBackToMenu}

func menuKeyboard() keyboard.Rows {
	return keyboard.Rows{keyboard.Row(
		keyboard.Button{Text: "My requests 📖", Data: cbMyRequests},
		keyboard.Button{Text: "FAQ ℹ️", Data: cbFAQ},
	)}
}

func historyKeyboard() keyboard.Rows {
	return keyboard.Rows{
		keyboard.Row(keyboard.Button{Text: "All requests", Data: cbAll}),
		keyboard.Row(
			keyboard.Button{Text: "Answered", Data: cbAnswered},
			keyboard.Button{Text: "Accepted", Data: cbAccepted},
		),
		keyboard.Row(back),
	}
}

func faqKeyboard() keyboard.Rows {
	return keyboard.Column(
		keyboard.Button{Text: "🤔 What is this bot good for?", Data: cbProfits},
		back,
	)
}

func profitsKeyboard() keyboard.Rows {
	return keyboard.Column(keyboard.Button{Text: "⬅️", Data: cbBackToFAQ})
}

// listKeyboard has one button per visible record and, when the list spans
// several pages, a navigation row.
func listKeyboard(p pagination.Page) keyboard.Rows {
	buttons := make([]keyboard.Button, len(p.Items))
	for i, r := range p.Items {
		buttons[i] = keyboard.Button{
			Text: format.Preview(r.Text, labelRunes),
			Data: callback.SelectData(r.ID.String()),
		}
	}
	rows := keyboard.Column(buttons...)
	if p.Nav == nil {
		return rows
	}
	var nav []keyboard.Button
	if p.Nav.Prev {
		nav = append(nav, keyboard.Button{Text: "⬅️", Data: callback.PageData(p.Nav.Current - 1)})
	}
	nav = append(nav, keyboard.Button{Text: p.Nav.Label(), Data: cbCurrentPage})
	if p.Nav.Next {
		nav = append(nav, keyboard.Button{Text: "➡️", Data: callback.PageData(p.Nav.Current + 1)})
	}
	return append(rows, nav)
}

func itemKeyboard(returnPage int) keyboard.Rows {
	return keyboard.Column(keyboard.Button{Text: "⬅️ Back", Data: callback.BackToPageData(returnPage)})
}
