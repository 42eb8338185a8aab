package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeMarkdownV2(t *testing.T) {
	out, err := EscapeMarkdown("1+1=2. (ok) a_b!", MarkdownV2)
	require.NoError(t, err)
	assert.Equal(t, `1\+1\=2\. \(ok\) a\_b\!`, out)
}

func TestEscapeMarkdownV1(t *testing.T) {
	out, err := EscapeMarkdown("a_b*c", MarkdownV1)
	require.NoError(t, err)
	assert.Equal(t, `a\_b\*c`, out)

	_, err = EscapeMarkdown("x", 3)
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 10))
	assert.Equal(t, "0123456789", Preview("0123456789", 10))
	assert.Equal(t, "0123456789...", Preview("0123456789abc", 10))
	assert.Equal(t, "привет мир...", Preview("привет мир!", 10))
}

func TestDerefString(t *testing.T) {
	s := "answer"
	empty := ""
	assert.Equal(t, "answer", DerefString(&s, "-"))
	assert.Equal(t, "-", DerefString(&empty, "-"))
	assert.Equal(t, "-", DerefString(nil, "-"))
}
