package realtime

import (
	"context"
	"errors"
	"log"
	"sort"

	"schoolsync/internal/metrics"
	"schoolsync/internal/record"
	"schoolsync/internal/store"
)

// Store is the slice of the document store the adapter needs. Satisfied by
// *store.Store; tests substitute a fake.
type Store interface {
	Query(ctx context.Context, q store.Query) ([]record.Record, error)
	GetAll(ctx context.Context, collection string) ([]record.Record, error)
	Changes(ctx context.Context, collection string) (<-chan struct{}, func())
}

// CancelFunc detaches a subscription. After it returns, no further onUpdate
// or onError calls are made for that subscription.
type CancelFunc func()

// Subscribe establishes a live query: onUpdate receives the full current
// result set on connect and again after every change to the collection.
// When the preferred query needs a composite index the store lacks, the
// adapter degrades to an unfiltered fetch and applies the predicates and
// ordering client-side; a failure of the fallback itself is reported through
// onError without retrying.
func Subscribe(ctx context.Context, st Store, q store.Query, onUpdate func([]record.Record), onError func(error)) CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	changes, stop := st.Changes(ctx, q.Collection)

	go func() {
		defer stop()
		refresh(ctx, st, q, onUpdate, onError)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				refresh(ctx, st, q, onUpdate, onError)
			}
		}
	}()

	return CancelFunc(cancel)
}

func refresh(ctx context.Context, st Store, q store.Query, onUpdate func([]record.Record), onError func(error)) {
	recs, err := st.Query(ctx, q)
	if errors.Is(err, store.ErrIndexRequired) {
		metrics.SubscriptionFallbacks.Inc()
		log.Printf("realtime: %v, falling back to client-side filter", err)
		recs, err = st.GetAll(ctx, q.Collection)
		if err == nil {
			recs = applyLocal(q, recs)
		}
	}
	if ctx.Err() != nil {
		return // cancelled mid-fetch; the caller must see nothing further
	}
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return
	}
	metrics.SubscriptionRefreshes.Inc()
	onUpdate(recs)
}

// applyLocal filters and sorts records in process, standing in for the
// predicates the degraded query could not push down.
func applyLocal(q store.Query, recs []record.Record) []record.Record {
	out := make([]record.Record, 0, len(recs))
	for _, r := range recs {
		if matchesAll(q.Predicates, r) {
			out = append(out, r)
		}
	}
	if q.Order != nil {
		field, desc := q.Order.Field, q.Order.Desc
		sort.SliceStable(out, func(i, j int) bool {
			cmp := compareField(out[i], out[j], field)
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	return out
}

func matchesAll(preds []store.Predicate, r record.Record) bool {
	for _, p := range preds {
		if !matches(p, r) {
			return false
		}
	}
	return true
}

func matches(p store.Predicate, r record.Record) bool {
	var cmp int
	switch want := p.Value.(type) {
	case string:
		got := r.Str(p.Field)
		switch {
		case got < want:
			cmp = -1
		case got > want:
			cmp = 1
		}
	case float64:
		cmp = compareFloat(r.Num(p.Field), want)
	case int:
		cmp = compareFloat(r.Num(p.Field), float64(want))
	case int64:
		cmp = compareFloat(r.Num(p.Field), float64(want))
	case bool:
		// only equality is meaningful for booleans
		return p.Op == "==" && r.Bool(p.Field) == want
	default:
		return false
	}
	switch p.Op {
	case "==":
		return cmp == 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	}
	return false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareField orders two records on a field, numerically when both values
// are numbers and lexically otherwise.
func compareField(a, b record.Record, field string) int {
	if _, aNum := a[field].(float64); aNum {
		if _, bNum := b[field].(float64); bNum {
			return compareFloat(a.Num(field), b.Num(field))
		}
	}
	as, bs := a.Str(field), b.Str(field)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
