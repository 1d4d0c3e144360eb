package realtime

import (
	"context"
	"sync"

	"schoolsync/internal/record"
	"schoolsync/internal/store"
)

// View owns the subscription for one derived screen (a dashboard panel, a
// live attendance sheet). Whenever the filter parameters change the previous
// subscription is cancelled synchronously before the new one is opened, so a
// view reflects exactly its current parameters and never leaks a handle.
type View struct {
	st       Store
	ctx      context.Context
	onUpdate func([]record.Record)
	onError  func(error)

	mu     sync.Mutex
	cancel CancelFunc
}

// NewView creates an idle view; nothing is subscribed until SetParams.
func NewView(ctx context.Context, st Store, onUpdate func([]record.Record), onError func(error)) *View {
	return &View{st: st, ctx: ctx, onUpdate: onUpdate, onError: onError}
}

// SetParams replaces the view's query. Safe to call repeatedly with
// changing filters.
func (v *View) SetParams(q store.Query) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
	}
	v.cancel = Subscribe(v.ctx, v.st, q, v.onUpdate, v.onError)
}

// Close cancels the active subscription, if any. The view can be reused
// with SetParams afterwards.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}
