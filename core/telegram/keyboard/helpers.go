package keyboard

import tele "gopkg.in/telebot.v4"

// Button is an inline button whose Data is sent back verbatim as the callback payload.
type Button struct {
	Text string
	Data string
}

// Rows is an inline keyboard layout.
type Rows [][]Button

// Row groups buttons into a single keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// Column places each button on its own row.
func Column(buttons ...Button) Rows {
	return Chunk(buttons, 1)
}

// Chunk splits buttons into rows with up to n buttons per row.
func Chunk(buttons []Button, n int) Rows {
	if n < 1 {
		n = 1
	}
	rows := make(Rows, 0, (len(buttons)+n-1)/n)
	for i := 0; i < len(buttons); i += n {
		rows = append(rows, buttons[i:min(i+n, len(buttons))])
	}
	return rows
}

// Buttons flattens the layout in reading order.
func (r Rows) Buttons() []Button {
	var out []Button
	for _, row := range r {
		out = append(out, row...)
	}
	return out
}

// Markup converts the layout to telebot markup. Empty rows are skipped and an
// empty layout yields an empty inline keyboard, which clears existing buttons.
//
// Buttons carry no Unique so telebot does not rewrite their payload.
func (r Rows) Markup() *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, 0, len(r))
	for _, row := range r {
		if len(row) == 0 {
			continue
		}
		out := make([]tele.InlineButton, len(row))
		for i, b := range row {
			out[i] = tele.InlineButton{Text: b.Text, Data: b.Data}
		}
		inline = append(inline, out)
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}
