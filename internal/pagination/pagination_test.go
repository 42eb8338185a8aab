package pagination

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/supportbot/internal/records"
)

func makeRecords(n int) []records.Record {
	out := make([]records.Record, n)
	for i := range out {
		out[i] = records.Record{ID: uuid.New(), OwnerID: 1, Text: fmt.Sprintf("r%d", i)}
	}
	return out
}

func TestPaginateEmptyList(t *testing.T) {
	p := Paginate(nil, 0)
	assert.Equal(t, 1, p.Total)
	assert.Equal(t, 0, p.Index)
	assert.Empty(t, p.Items)
	assert.Nil(t, p.Nav)
}

func TestPaginateClampsPastEnd(t *testing.T) {
	items := makeRecords(25)
	p := Paginate(items, 5)
	assert.Equal(t, 2, p.Index)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, items[20:25], p.Items)
	require.NotNil(t, p.Nav)
	assert.True(t, p.Nav.Prev)
	assert.False(t, p.Nav.Next)
	assert.Equal(t, "3/3", p.Nav.Label())
}

func TestPaginateMiddlePage(t *testing.T) {
	items := makeRecords(25)
	p := Paginate(items, 1)
	assert.Equal(t, items[10:20], p.Items)
	require.NotNil(t, p.Nav)
	assert.True(t, p.Nav.Prev)
	assert.True(t, p.Nav.Next)
	assert.Equal(t, "2/3", p.Nav.Label())
}

func TestPaginateNegativeRequest(t *testing.T) {
	items := makeRecords(11)
	p := Paginate(items, -4)
	assert.Equal(t, 0, p.Index)
	require.NotNil(t, p.Nav)
	assert.False(t, p.Nav.Prev)
	assert.True(t, p.Nav.Next)
}

func TestPaginateSinglePageHasNoNav(t *testing.T) {
	p := Paginate(makeRecords(PageSize), 3)
	assert.Equal(t, 0, p.Index)
	assert.Len(t, p.Items, PageSize)
	assert.Nil(t, p.Nav)
}

func TestClampBounds(t *testing.T) {
	for n := 0; n <= 45; n++ {
		last := max(0, (n+PageSize-1)/PageSize-1)
		for p := 0; p <= 8; p++ {
			got := Clamp(p, n)
			assert.GreaterOrEqual(t, got, 0, "n=%d p=%d", n, p)
			assert.LessOrEqual(t, got, last, "n=%d p=%d", n, p)
			assert.Equal(t, Clamp(min(p, last), n), got, "n=%d p=%d", n, p)
		}
	}
}

func TestPaginateIsRepeatable(t *testing.T) {
	items := makeRecords(37)
	snapshot := append([]records.Record(nil), items...)
	for p := -1; p < 6; p++ {
		first := Paginate(items, p)
		second := Paginate(items, p)
		assert.Equal(t, first, second)
	}
	assert.Equal(t, snapshot, items)
}

func TestPaginateWindowIsCapped(t *testing.T) {
	items := makeRecords(15)
	p := Paginate(items, 0)
	p.Items = append(p.Items, records.Record{Text: "extra"})
	assert.Equal(t, "r10", items[10].Text)
}
