package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	btns := []Button{{"a", "1"}, {"b", "2"}, {"c", "3"}}

	rows := Chunk(btns, 2)
	require.Len(t, rows, 2)
	assert.Equal(t, []Button{{"a", "1"}, {"b", "2"}}, rows[0])
	assert.Equal(t, []Button{{"c", "3"}}, rows[1])

	assert.Len(t, Column(btns...), 3)
	assert.Empty(t, Chunk(nil, 3))
}

func TestMarkupKeepsRawPayload(t *testing.T) {
	rows := Rows{Row(Button{"next", "page_2"}), nil}

	m := rows.Markup()
	require.Len(t, m.InlineKeyboard, 1)
	btn := m.InlineKeyboard[0][0]
	assert.Equal(t, "page_2", btn.Data)
	assert.Empty(t, btn.Unique)
	assert.Equal(t, rows.Buttons(), []Button{{"next", "page_2"}})
}
