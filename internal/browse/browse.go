// Package browse moves a conversation between a record list and a single record.
package browse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/supportbot/core/logger"
	"github.com/m3rciful/supportbot/internal/dialogue"
	"github.com/m3rciful/supportbot/internal/pagination"
	"github.com/m3rciful/supportbot/internal/records"
)

// ListView is what a list transition renders.
type ListView struct {
	Page   pagination.Page
	Filter records.Filter
}

// ItemView is what a selection renders.
type ItemView struct {
	Item       records.Record
	ReturnPage int
}

// Flow runs list and item transitions against a dialogue.Store.
// Select and Turn work on the snapshot; Open and Back fetch fresh records.
type Flow struct {
	states dialogue.Store
	source records.Fetcher
}

// NewFlow binds a state store and a record source.
func NewFlow(states dialogue.Store, source records.Fetcher) *Flow {
	return &Flow{states: states, source: source}
}

// Open fetches the owner's records, applies filter and shows the first page.
func (f *Flow) Open(ctx context.Context, conversationID, ownerID int64, filter records.Filter) (ListView, error) {
	items, err := f.fetch(ctx, ownerID, filter)
	if err != nil {
		return ListView{}, err
	}
	list := dialogue.NewViewingList(items, 0, filter)
	f.states.Replace(conversationID, list)
	logger.Debug(ctx, logger.CompBrowse, "open",
		slog.String("state", string(list.Kind())),
		slog.Int("count", len(list.Items)),
		slog.String("filter", filterName(filter)),
	)
	return listView(list), nil
}

// Turn shows another page of the current snapshot. When valid is false the
// current page is shown again. ok is false when the conversation is not
// viewing a list.
func (f *Flow) Turn(ctx context.Context, conversationID int64, requested int, valid bool) (view ListView, ok bool) {
	list, ok := f.states.Get(conversationID).(dialogue.ViewingList)
	if !ok {
		f.stale(ctx, conversationID, "turn")
		return ListView{}, false
	}
	if !valid {
		requested = list.Page
	}
	list.Page = pagination.Clamp(requested, len(list.Items))
	f.states.Replace(conversationID, list)
	logger.Debug(ctx, logger.CompBrowse, "turn",
		slog.Int("page", list.Page),
		slog.Int("count", len(list.Items)),
	)
	return listView(list), true
}

// Select opens itemID from the current snapshot. ok is false and the state is
// left untouched when the conversation is not viewing a list or the id is not
// in the snapshot.
func (f *Flow) Select(ctx context.Context, conversationID int64, itemID string) (view ItemView, ok bool) {
	list, ok := f.states.Get(conversationID).(dialogue.ViewingList)
	if !ok {
		f.stale(ctx, conversationID, "select")
		return ItemView{}, false
	}
	item, found := list.Find(itemID)
	if !found {
		logger.Debug(ctx, logger.CompBrowse, "select",
			slog.String("status", "skip"),
			slog.String("outcome", "not_found"),
			slog.String("item_id", logger.SanitizeLimit(itemID, 64)),
		)
		return ItemView{}, false
	}
	next := dialogue.ViewingItem{Item: item, ReturnPage: list.Page, Filter: list.Filter}
	f.states.Replace(conversationID, next)
	logger.Debug(ctx, logger.CompBrowse, "select",
		slog.String("item_id", item.ID.String()),
		slog.Int("page", list.Page),
	)
	return ItemView{Item: item, ReturnPage: list.Page}, true
}

// Back refetches the owner's records and shows the page the item was opened
// from. ok is false when the conversation is not viewing an item.
func (f *Flow) Back(ctx context.Context, conversationID, ownerID int64) (view ListView, ok bool, err error) {
	item, ok := f.states.Get(conversationID).(dialogue.ViewingItem)
	if !ok {
		f.stale(ctx, conversationID, "back")
		return ListView{}, false, nil
	}
	items, err := f.fetch(ctx, ownerID, item.Filter)
	if err != nil {
		return ListView{}, true, err
	}
	list := dialogue.NewViewingList(items, item.ReturnPage, item.Filter)
	f.states.Replace(conversationID, list)
	logger.Debug(ctx, logger.CompBrowse, "back",
		slog.Int("page", list.Page),
		slog.Int("count", len(list.Items)),
	)
	return listView(list), true, nil
}

func (f *Flow) fetch(ctx context.Context, ownerID int64, filter records.Filter) ([]records.Record, error) {
	items, err := f.source.FetchForOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("browse: fetch records: %w", err)
	}
	return filter.Apply(items), nil
}

func (f *Flow) stale(ctx context.Context, conversationID int64, op string) {
	logger.Debug(ctx, logger.CompBrowse, op,
		slog.String("status", "stale"),
		slog.String("outcome", "ignored"),
		slog.String("state", string(f.states.Get(conversationID).Kind())),
		slog.String("reason", "stale_state"),
	)
}

func listView(list dialogue.ViewingList) ListView {
	return ListView{Page: pagination.Paginate(list.Items, list.Page), Filter: list.Filter}
}

func filterName(f records.Filter) string {
	if f == records.FilterAll {
		return "all"
	}
	return string(f)
}
