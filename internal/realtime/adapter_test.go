package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"schoolsync/internal/record"
	"schoolsync/internal/store"
)

// fakeStore drives the adapter without Postgres or Redis.
type fakeStore struct {
	mu       sync.Mutex
	records  []record.Record
	queryErr error
	allErr   error
	changes  chan struct{}
	stops    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{changes: make(chan struct{}, 4)}
}

func (f *fakeStore) set(recs []record.Record) {
	f.mu.Lock()
	f.records = recs
	f.mu.Unlock()
}

func (f *fakeStore) Query(ctx context.Context, q store.Query) ([]record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.records, nil
}

func (f *fakeStore) GetAll(ctx context.Context, collection string) ([]record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allErr != nil {
		return nil, f.allErr
	}
	return f.records, nil
}

func (f *fakeStore) Changes(ctx context.Context, collection string) (<-chan struct{}, func()) {
	return f.changes, func() {
		f.mu.Lock()
		f.stops++
		f.mu.Unlock()
	}
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callback")
		panic("unreachable")
	}
}

func TestSubscribeDeliversInitialAndChangedSets(t *testing.T) {
	st := newFakeStore()
	st.set([]record.Record{{"studentId": "A"}})

	updates := make(chan []record.Record, 4)
	cancel := Subscribe(context.Background(), st, store.Query{Collection: "attendance"},
		func(recs []record.Record) { updates <- recs }, nil)
	defer cancel()

	got := waitFor(t, updates)
	assert.Len(t, got, 1)

	st.set([]record.Record{{"studentId": "A"}, {"studentId": "B"}})
	st.changes <- struct{}{}

	got = waitFor(t, updates)
	assert.Len(t, got, 2, "onUpdate must receive the full current set, not a diff")
}

func TestSubscribeFallsBackWhenIndexMissing(t *testing.T) {
	st := newFakeStore()
	st.queryErr = fmt.Errorf("%w: date+timestamp on attendance", store.ErrIndexRequired)
	st.set([]record.Record{
		{"studentId": "B", "date": "2024-01-10", "timestamp": float64(300)},
		{"studentId": "A", "date": "2024-01-10", "timestamp": float64(100)},
		{"studentId": "C", "date": "2024-01-11", "timestamp": float64(200)},
	})

	updates := make(chan []record.Record, 4)
	q := store.Query{
		Collection: "attendance",
		Predicates: []store.Predicate{{Field: "date", Op: "==", Value: "2024-01-10"}},
		Order:      &store.OrderBy{Field: "timestamp"},
	}
	cancel := Subscribe(context.Background(), st, q,
		func(recs []record.Record) { updates <- recs }, nil)
	defer cancel()

	got := waitFor(t, updates)
	assert.Len(t, got, 2, "client-side filter must drop the other date")
	assert.Equal(t, "A", got[0].Str("studentId"), "client-side sort must order by timestamp")
	assert.Equal(t, "B", got[1].Str("studentId"))
}

func TestSubscribeFallbackDescendingOrder(t *testing.T) {
	st := newFakeStore()
	st.queryErr = fmt.Errorf("%w", store.ErrIndexRequired)
	st.set([]record.Record{
		{"studentId": "A", "timestamp": float64(100)},
		{"studentId": "B", "timestamp": float64(300)},
		{"studentId": "C", "timestamp": float64(200)},
	})

	updates := make(chan []record.Record, 4)
	q := store.Query{
		Collection: "attendance",
		Order:      &store.OrderBy{Field: "timestamp", Desc: true},
	}
	cancel := Subscribe(context.Background(), st, q,
		func(recs []record.Record) { updates <- recs }, nil)
	defer cancel()

	got := waitFor(t, updates)
	ids := []string{got[0].Str("studentId"), got[1].Str("studentId"), got[2].Str("studentId")}
	assert.Equal(t, []string{"B", "C", "A"}, ids)
}

func TestSubscribeSecondFailureSurfacesError(t *testing.T) {
	st := newFakeStore()
	st.queryErr = fmt.Errorf("%w", store.ErrIndexRequired)
	st.allErr = errors.New("store unavailable")

	updates := make(chan []record.Record, 4)
	errs := make(chan error, 4)
	cancel := Subscribe(context.Background(), st, store.Query{Collection: "attendance"},
		func(recs []record.Record) { updates <- recs },
		func(err error) { errs <- err })
	defer cancel()

	err := waitFor(t, errs)
	assert.ErrorContains(t, err, "store unavailable")
	assert.Empty(t, updates, "a failed refresh must not deliver records")
}

func TestSubscribeStopsAfterCancel(t *testing.T) {
	st := newFakeStore()
	st.set([]record.Record{{"studentId": "A"}})

	updates := make(chan []record.Record, 4)
	cancel := Subscribe(context.Background(), st, store.Query{Collection: "attendance"},
		func(recs []record.Record) { updates <- recs }, nil)

	waitFor(t, updates)
	cancel()

	// let the subscription goroutine observe cancellation
	time.Sleep(50 * time.Millisecond)
	select {
	case st.changes <- struct{}{}:
	default:
	}
	select {
	case <-updates:
		t.Fatal("onUpdate fired after cancellation")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestViewReplacesSubscriptionOnParamChange(t *testing.T) {
	st := newFakeStore()
	st.set([]record.Record{{"studentId": "A"}})

	updates := make(chan []record.Record, 8)
	view := NewView(context.Background(), st, func(recs []record.Record) { updates <- recs }, nil)
	defer view.Close()

	view.SetParams(store.Query{Collection: "attendance"})
	waitFor(t, updates)

	view.SetParams(store.Query{
		Collection: "attendance",
		Predicates: []store.Predicate{{Field: "date", Op: "==", Value: "2024-01-11"}},
	})
	waitFor(t, updates)

	// the first subscription must have been detached, not leaked
	time.Sleep(50 * time.Millisecond)
	st.mu.Lock()
	stops := st.stops
	st.mu.Unlock()
	assert.Equal(t, 1, stops, "prior handle must be cancelled on params change")
}

func TestViewCloseIsIdempotent(t *testing.T) {
	st := newFakeStore()
	view := NewView(context.Background(), st, func([]record.Record) {}, nil)
	view.Close() // idle close is a no-op
	view.SetParams(store.Query{Collection: "attendance"})
	view.Close()
	view.Close()
}
