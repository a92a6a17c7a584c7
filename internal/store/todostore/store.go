// Package todostore keeps the in-memory todo list in step with the remote
// service. Mutations are applied locally first and rolled back if the server
// refuses them.
package todostore

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/service"
)

// API is the remote collection the store mirrors.
type API interface {
	List(ctx context.Context) ([]model.Item, error)
	Create(ctx context.Context, in model.CreateInput) (model.Item, error)
	Update(ctx context.Context, id string, in model.UpdateInput) (model.Item, error)
	Remove(ctx context.Context, id string) error
}

type serviceAPI struct{ *service.Todo }

func (a serviceAPI) Update(ctx context.Context, id string, in model.UpdateInput) (model.Item, error) {
	return a.Patch(ctx, id, in)
}

// FromService adapts the todo service to API.
func FromService(svc *service.Todo) API { return serviceAPI{svc} }

// Stats summarizes the list for headers and progress bars.
type Stats struct {
	Total, Done, Pending int
}

// Store holds the synchronized list. It is safe for concurrent use.
//
// Mutations on the same id run one at a time, in call order. Mutations on
// different ids run concurrently; a failed one only rolls back its own item.
type Store struct {
	api API

	mu       sync.Mutex
	items    []model.Item
	inflight int
	errMsg   string
	closed   bool
	onChange func()

	locks idLocks
	list  singleflight.Group
}

func New(api API) *Store {
	return &Store{api: api, items: []model.Item{}}
}

// OnChange registers fn to run after every state change. fn runs without the
// store lock held and may read the store.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Close detaches the store from its consumer. Calls still in flight complete
// against the server but no longer touch local state.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.onChange = nil
	s.mu.Unlock()
}

// Items returns a copy of the list, newest first.
func (s *Store) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Item, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out
}

// Item looks up a single item by id.
func (s *Store) Item(id string) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i].Clone(), true
	}
	return model.Item{}, false
}

// Loading reports whether any operation is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Err returns the last failure as a user-facing message, or "".
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *Store) ClearError() {
	s.apply(func() { s.errMsg = "" })
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Total: len(s.items)}
	for _, it := range s.items {
		if it.Completed {
			st.Done++
		}
	}
	st.Pending = st.Total - st.Done
	return st
}

// FetchAll replaces the list with the server's. Concurrent calls share one
// request, which is detached from any single caller's cancellation; each
// caller stops waiting when its own ctx ends. A server failure is recorded
// in Err and also returned.
func (s *Store) FetchAll(ctx context.Context) error {
	s.begin()
	defer s.end()

	shared := context.WithoutCancel(ctx)
	ch := s.list.DoChan("list", func() (any, error) {
		items, err := s.api.List(shared)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []model.Item{}
		}
		s.apply(func() { s.items = items })
		return nil, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			s.fail(res.Err)
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Create adds a todo on the server and prepends the result. Nothing is shown
// before the server has assigned an id.
func (s *Store) Create(ctx context.Context, in model.CreateInput) (model.Item, error) {
	s.begin()
	defer s.end()

	created, err := s.api.Create(ctx, in)
	if err != nil {
		s.fail(err)
		return model.Item{}, err
	}
	s.apply(func() {
		if i := s.indexOf(created.ID); i >= 0 {
			s.items = slices.Delete(s.items, i, i+1)
		}
		s.items = slices.Insert(s.items, 0, created)
	})
	return created.Clone(), nil
}

// Update applies in to the item locally, sends it, and then keeps the server's
// version. On failure the item is restored as it was before the call.
func (s *Store) Update(ctx context.Context, id string, in model.UpdateInput) (model.Item, error) {
	release, err := s.locks.acquire(ctx, id)
	if err != nil {
		return model.Item{}, err
	}
	defer release()
	return s.update(ctx, id, in)
}

// Toggle flips completed on the item. ok is false when the id is unknown, in
// which case nothing is sent.
func (s *Store) Toggle(ctx context.Context, id string) (item model.Item, ok bool, err error) {
	release, err := s.locks.acquire(ctx, id)
	if err != nil {
		return model.Item{}, false, err
	}
	defer release()

	current, found := s.Item(id)
	if !found {
		return model.Item{}, false, nil
	}
	item, err = s.update(ctx, id, model.UpdateInput{Completed: model.Ptr(!current.Completed)})
	return item, true, err
}

// update runs with the id lock held.
func (s *Store) update(ctx context.Context, id string, in model.UpdateInput) (model.Item, error) {
	s.begin()
	defer s.end()

	var (
		snapshot model.Item
		had      bool
	)
	s.apply(func() {
		i := s.indexOf(id)
		if i < 0 {
			return
		}
		snapshot, had = s.items[i].Clone(), true
		s.items[i] = merge(s.items[i], in)
	})

	updated, err := s.api.Update(ctx, id, in)
	if err != nil {
		if had {
			s.apply(func() {
				if i := s.indexOf(id); i >= 0 {
					s.items[i] = snapshot
				}
			})
		}
		s.fail(err)
		return model.Item{}, err
	}
	s.apply(func() {
		if i := s.indexOf(id); i >= 0 {
			s.items[i] = updated
		}
	})
	return updated.Clone(), nil
}

// Remove drops the item locally and deletes it on the server. On failure the
// item goes back where it was.
func (s *Store) Remove(ctx context.Context, id string) error {
	release, err := s.locks.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	s.begin()
	defer s.end()

	var (
		removed model.Item
		at      = -1
	)
	s.apply(func() {
		if i := s.indexOf(id); i >= 0 {
			removed, at = s.items[i], i
			s.items = slices.Delete(s.items, i, i+1)
		}
	})

	if err := s.api.Remove(ctx, id); err != nil {
		if at >= 0 {
			s.apply(func() {
				if s.indexOf(id) >= 0 {
					return
				}
				s.items = slices.Insert(s.items, min(at, len(s.items)), removed)
			})
		}
		s.fail(err)
		return err
	}
	return nil
}

// merge is the optimistic view of in applied to it. Location changes only
// when both coordinates are given; the photo only when explicitly set.
func merge(it model.Item, in model.UpdateInput) model.Item {
	out := it.Clone()
	if in.Title != nil {
		out.Title = *in.Title
	}
	if in.Completed != nil {
		out.Completed = *in.Completed
	}
	if in.HasLocation() {
		out.Location = &model.Location{Latitude: *in.Latitude, Longitude: *in.Longitude}
	}
	switch {
	case in.ClearPhoto:
		out.PhotoURI = nil
	case in.PhotoURI != nil:
		out.PhotoURI = model.Ptr(*in.PhotoURI)
	}
	return out
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(it model.Item) bool { return it.ID == id })
}

func (s *Store) begin() {
	s.apply(func() {
		s.inflight++
		s.errMsg = ""
	})
}

func (s *Store) end() {
	s.apply(func() {
		if s.inflight > 0 {
			s.inflight--
		}
	})
}

func (s *Store) fail(err error) {
	msg := NormalizeError(err)
	s.apply(func() { s.errMsg = msg })
}

// apply mutates state under the lock and then notifies the observer. It does
// nothing once the store is closed.
func (s *Store) apply(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fn()
	notify := s.onChange
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
}
