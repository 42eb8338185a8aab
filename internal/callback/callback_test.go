package callback

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		raw  string
		want Payload
	}{
		{"page_3", PagePayload{Page: 3, Valid: true}},
		{"page_", PagePayload{}},
		{"page_-1", PagePayload{}},
		{"page_x9", PagePayload{}},
		{"page_99999999999999999999", PagePayload{Page: math.MaxInt, Valid: true}},
		{"page_18446744073709551615", PagePayload{Page: math.MaxInt, Valid: true}},
		{"back_to_page_99999999999999999999", BackToPagePayload{Page: math.MaxInt, Valid: true}},
		{"msg_0190a6c2-7a1b-7cde-8f00-000000000001", SelectPayload{ItemID: "0190a6c2-7a1b-7cde-8f00-000000000001"}},
		{"msg_", SelectPayload{}},
		{"back_to_page_2", BackToPagePayload{Page: 2, Valid: true}},
		{"back_to_page_two", BackToPagePayload{}},
		{"faq", LiteralPayload{Token: "faq"}},
		{"", LiteralPayload{}},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, Decode(tc.raw))
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	assert.Equal(t, PagePayload{Page: 4, Valid: true}, Decode(PageData(4)))
	assert.Equal(t, SelectPayload{ItemID: "abc"}, Decode(SelectData("abc")))
	assert.Equal(t, BackToPagePayload{Page: 1, Valid: true}, Decode(BackToPageData(1)))
}

type recorder struct {
	name  string
	calls *[]string
	got   *[]Query
}

func (r recorder) HandleCallback(_ context.Context, q Query) error {
	*r.calls = append(*r.calls, r.name)
	*r.got = append(*r.got, q)
	return nil
}

func newTestRouter(t *testing.T, extra ...Entry) (*Router, *[]string, *[]Query) {
	t.Helper()
	var calls []string
	var got []Query
	h := func(name string) Handler { return recorder{name: name, calls: &calls, got: &got} }
	entries := []Entry{
		Prefix(PrefixPage, h("page")),
		Prefix(PrefixSelect, h("select")),
		Prefix(PrefixBackToPage, h("back")),
		Literal("faq", h("faq")),
		Literal("back_to_menu", h("menu")),
	}
	r, err := New(append(entries, extra...)...)
	require.NoError(t, err)
	return r, &calls, &got
}

func TestPrefixFamilyBeatsExactEntry(t *testing.T) {
	var shadowCalls []string
	var shadowGot []Query
	shadow := Literal("page_3", recorder{name: "shadow", calls: &shadowCalls, got: &shadowGot})
	r, calls, got := newTestRouter(t, shadow)

	_, handled, err := r.Dispatch(context.Background(), Query{Raw: "page_3"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"page"}, *calls)
	assert.Empty(t, shadowCalls)
	assert.Equal(t, PagePayload{Page: 3, Valid: true}, (*got)[0].Payload)
}

func TestBackToPageIsNotAPage(t *testing.T) {
	r, calls, got := newTestRouter(t)
	_, _, err := r.Dispatch(context.Background(), Query{Raw: "back_to_page_1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"back"}, *calls)
	assert.Equal(t, BackToPagePayload{Page: 1, Valid: true}, (*got)[0].Payload)
}

func TestExactLookup(t *testing.T) {
	r, calls, _ := newTestRouter(t)
	e, handled, err := r.Dispatch(context.Background(), Query{Raw: "faq"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "faq", e.Name)
	assert.Equal(t, []string{"faq"}, *calls)
}

func TestMissIsNotAnError(t *testing.T) {
	r, calls, _ := newTestRouter(t)
	for _, raw := range []string{"", "unknown", "FAQ", "pag_1"} {
		_, handled, err := r.Dispatch(context.Background(), Query{Raw: raw})
		require.NoError(t, err)
		assert.False(t, handled, raw)
	}
	assert.Empty(t, *calls)
}

func TestMalformedSuffixStillRoutes(t *testing.T) {
	r, calls, got := newTestRouter(t)
	_, handled, err := r.Dispatch(context.Background(), Query{Raw: "page_NaN"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"page"}, *calls)
	assert.Equal(t, PagePayload{}, (*got)[0].Payload)
}

func TestPrefixOrderIsExplicit(t *testing.T) {
	var calls []string
	var got []Query
	r, err := New(
		Prefix("a_", recorder{name: "short", calls: &calls, got: &got}),
		Prefix("a_b_", recorder{name: "long", calls: &calls, got: &got}),
	)
	require.NoError(t, err)
	_, _, err = r.Dispatch(context.Background(), Query{Raw: "a_b_1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"short"}, calls)
}

func TestNewRejectsDuplicatesAndInvalid(t *testing.T) {
	h := HandlerFunc(func(context.Context, Query) error { return nil })

	_, err := New(Literal("faq", h), Literal("faq", h))
	assert.ErrorIs(t, err, ErrDuplicateEntry)

	_, err = New(Prefix("page_", h), Prefix("page_", h))
	assert.ErrorIs(t, err, ErrDuplicateEntry)

	_, err = New(Literal("", h))
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = New(Literal("faq", nil))
	assert.ErrorIs(t, err, ErrInvalidEntry)

	// The same key may exist once as exact and once as prefix.
	_, err = New(Literal("page_", h), Prefix("page_", h))
	assert.NoError(t, err)
}

func TestHandlerErrorPropagates(t *testing.T) {
	boom := errors.New("send failed")
	r, err := New(Literal("faq", HandlerFunc(func(context.Context, Query) error { return boom })))
	require.NoError(t, err)
	_, handled, err := r.Dispatch(context.Background(), Query{Raw: "faq"})
	assert.True(t, handled)
	assert.ErrorIs(t, err, boom)
}
