package dialogue

import (
	"runtime"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/supportbot/internal/records"
)

func makeRecords(n int) []records.Record {
	out := make([]records.Record, n)
	for i := range out {
		out[i] = records.Record{ID: uuid.New(), OwnerID: 1}
	}
	return out
}

func TestMemoryStoreDefaultsToIdle(t *testing.T) {
	s := NewMemoryStore()
	assert.Equal(t, Idle{}, s.Get(42))
	assert.Equal(t, 0, s.Len())

	s.Replace(42, AwaitingInput{})
	assert.Equal(t, KindAwaitingInput, s.Get(42).Kind())

	s.Replace(42, nil)
	assert.Equal(t, Idle{}, s.Get(42))
}

func TestMemoryStoresAreIsolated(t *testing.T) {
	a, b := NewMemoryStore(), NewMemoryStore()
	a.Replace(1, AwaitingInput{})
	assert.Equal(t, Idle{}, b.Get(1))
}

func TestNewViewingListSnapshotsAndClamps(t *testing.T) {
	items := makeRecords(12)
	v := NewViewingList(items, 9, records.FilterAnswered)
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, records.FilterAnswered, v.Filter)

	items[0].Text = "mutated"
	assert.Empty(t, v.Items[0].Text)

	got, ok := v.Find(items[3].ID.String())
	require.True(t, ok)
	assert.Equal(t, items[3].ID, got.ID)
	_, ok = v.Find("abc")
	assert.False(t, ok)
}

func TestParseConcurrency(t *testing.T) {
	c, err := ParseConcurrency("")
	require.NoError(t, err)
	assert.Equal(t, Serialized, c)
	c, err = ParseConcurrency(" Unsynchronized ")
	require.NoError(t, err)
	assert.Equal(t, Unsynchronized, c)
	_, err = ParseConcurrency("actor")
	assert.Error(t, err)
}

// Without serialization, A reads, B reads and writes, then A writes: B's
// update is lost and the final state is whichever write landed last.
func TestUnsynchronizedReplaceLosesUpdate(t *testing.T) {
	store := NewMemoryStore()
	items := makeRecords(30)
	aRead := make(chan struct{})
	bWrote := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = store.Get(7)
		close(aRead)
		<-bWrote
		store.Replace(7, NewViewingList(items, 1, ""))
	}()
	go func() {
		defer wg.Done()
		<-aRead
		_ = store.Get(7)
		store.Replace(7, NewViewingList(items, 2, ""))
		close(bWrote)
	}()
	wg.Wait()

	final, ok := store.Get(7).(ViewingList)
	require.True(t, ok)
	assert.Equal(t, 1, final.Page)
}

// With the serializer, B cannot start its read-modify-write before A ends,
// so B's write is the last one.
func TestSerializedReplaceKeepsCausalOrder(t *testing.T) {
	store := NewMemoryStore()
	ser := NewSerializer()
	items := makeRecords(30)
	aLocked := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ser.Do(7, func() {
			_ = store.Get(7)
			close(aLocked)
			runtime.Gosched()
			store.Replace(7, NewViewingList(items, 1, ""))
		})
	}()
	go func() {
		defer wg.Done()
		<-aLocked
		ser.Do(7, func() {
			_ = store.Get(7)
			store.Replace(7, NewViewingList(items, 2, ""))
		})
	}()
	wg.Wait()

	final, ok := store.Get(7).(ViewingList)
	require.True(t, ok)
	assert.Equal(t, 2, final.Page)
	assert.Equal(t, 0, ser.held())
}

func TestSerializerNoLostIncrements(t *testing.T) {
	ser := NewSerializer()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ser.Do(1, func() {
				v := counter
				runtime.Gosched()
				counter = v + 1
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, counter)
	assert.Equal(t, 0, ser.held())
}

func TestSerializerKeysAreIndependent(t *testing.T) {
	ser := NewSerializer()
	unlockA := ser.Lock(1)
	done := make(chan struct{})
	go func() {
		ser.Do(2, func() {})
		close(done)
	}()
	<-done
	unlockA()
	unlockA()
	assert.Equal(t, 0, ser.held())
}
