// Package dialogue keeps the per-conversation dialogue state.
package dialogue

import (
	"github.com/m3rciful/supportbot/internal/pagination"
	"github.com/m3rciful/supportbot/internal/records"
)

// Kind names a State variant in logs.
type Kind string

const (
	KindIdle          Kind = "idle"
	KindAwaitingInput Kind = "awaiting_input"
	KindViewingList   Kind = "viewing_list"
	KindViewingItem   Kind = "viewing_item"
)

// State is one of Idle, AwaitingInput, ViewingList or ViewingItem.
type State interface {
	Kind() Kind
	sealed()
}

// Idle is the default state of every conversation.
type Idle struct{}

// AwaitingInput means the next plain message is a question for the answer service.
type AwaitingInput struct{}

// ViewingList is a page of a record snapshot. Page is kept within the
// snapshot's page range by NewViewingList.
type ViewingList struct {
	Items  []records.Record
	Page   int
	Filter records.Filter
}

// ViewingItem is a single record opened from a list. ReturnPage is the list
// page that was shown when the record was selected.
type ViewingItem struct {
	Item       records.Record
	ReturnPage int
	Filter     records.Filter
}

func (Idle) Kind() Kind          { return KindIdle }
func (AwaitingInput) Kind() Kind { return KindAwaitingInput }
func (ViewingList) Kind() Kind   { return KindViewingList }
func (ViewingItem) Kind() Kind   { return KindViewingItem }

func (Idle) sealed()          {}
func (AwaitingInput) sealed() {}
func (ViewingList) sealed()   {}
func (ViewingItem) sealed()   {}

// NewViewingList copies items into a snapshot and clamps page into range.
func NewViewingList(items []records.Record, page int, filter records.Filter) ViewingList {
	snapshot := make([]records.Record, len(items))
	copy(snapshot, items)
	return ViewingList{
		Items:  snapshot,
		Page:   pagination.Clamp(page, len(snapshot)),
		Filter: filter,
	}
}

// Find returns the snapshot record with the given id.
func (v ViewingList) Find(id string) (records.Record, bool) {
	for _, r := range v.Items {
		if r.ID.String() == id {
			return r, true
		}
	}
	return records.Record{}, false
}
