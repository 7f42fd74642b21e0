// Package entitystore holds the in-memory snapshot of one entity type that
// UI-facing code reads: the loaded items, the selected item and request
// state. A Store is an explicit value created once per application or
// session and passed to its consumers.
package entitystore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Entity is implemented by every record the store can hold.
type Entity interface {
	EntityID() string
}

// Service is the persistence surface a store drives.
type Service[T Entity, P any] interface {
	GetAll(ctx context.Context) ([]T, error)
	GetByID(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, p P) (T, error)
	Update(ctx context.Context, id string, p P) (T, error)
	Remove(ctx context.Context, id string) error
}

// State is a snapshot of a store. Error is empty when the last operation
// succeeded.
type State[T Entity] struct {
	Items     []T
	Selected  *T
	IsLoading bool
	Error     string
}

func (s State[T]) clone() State[T] {
	out := s
	out.Items = append(make([]T, 0, len(s.Items)), s.Items...)
	if s.Selected != nil {
		sel := *s.Selected
		out.Selected = &sel
	}
	return out
}

// Store orchestrates service calls and republishes the resulting state.
//
// Every action clears Error and raises IsLoading, calls the service, then
// either applies the result or records the error message; on failure Items
// and Selected keep their previous values. Identical actions issued while
// one is in flight share its service call and its single state transition.
type Store[T Entity, P any] struct {
	name string
	svc  Service[T, P]

	group singleflight.Group

	mu       sync.Mutex
	state    State[T]
	inflight int
	version  uint64

	pubMu     sync.Mutex
	published uint64
	subs      map[int]func(State[T])
	nextSub   int
}

// New creates an empty store. name is used in fallback error messages.
func New[T Entity, P any](name string, svc Service[T, P]) *Store[T, P] {
	return &Store[T, P]{
		name: name,
		svc:  svc,
		subs: make(map[int]func(State[T])),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store[T, P]) Snapshot() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function cancels the subscription. fn runs synchronously and
// must not subscribe or unsubscribe.
func (s *Store[T, P]) Subscribe(fn func(State[T])) func() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.pubMu.Lock()
		defer s.pubMu.Unlock()
		delete(s.subs, id)
	}
}

// Reset returns the store to its initial empty state.
func (s *Store[T, P]) Reset() {
	s.mu.Lock()
	s.state = State[T]{IsLoading: s.inflight > 0}
	snap, v := s.bump()
	s.mu.Unlock()
	s.publish(snap, v)
}

// FetchAll replaces Items with every stored entity.
func (s *Store[T, P]) FetchAll(ctx context.Context) error {
	return s.run("fetchAll", "Failed to fetch "+s.name, func() (func(*State[T]), error) {
		items, err := s.svc.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		return func(st *State[T]) { st.Items = items }, nil
	})
}

// FetchByID replaces Selected. Items are left untouched.
func (s *Store[T, P]) FetchByID(ctx context.Context, id string) error {
	return s.run("fetchById:"+id, fmt.Sprintf("Failed to fetch %s with id %s", s.name, id), func() (func(*State[T]), error) {
		item, err := s.svc.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return func(st *State[T]) { st.Selected = &item }, nil
	})
}

// Create appends the created entity, as returned by the service, to Items.
func (s *Store[T, P]) Create(ctx context.Context, p P) error {
	return s.run(payloadKey("create", p), "Failed to create "+s.name, func() (func(*State[T]), error) {
		item, err := s.svc.Create(ctx, p)
		if err != nil {
			return nil, err
		}
		return func(st *State[T]) { st.Items = append(st.Items, item) }, nil
	})
}

// Update replaces the matching entry of Items, and Selected when it has the
// same id, with the record returned by the service.
func (s *Store[T, P]) Update(ctx context.Context, id string, p P) error {
	return s.run(payloadKey("update:"+id, p), "Failed to update "+s.name, func() (func(*State[T]), error) {
		item, err := s.svc.Update(ctx, id, p)
		if err != nil {
			return nil, err
		}
		return func(st *State[T]) {
			for i := range st.Items {
				if st.Items[i].EntityID() == item.EntityID() {
					st.Items[i] = item
				}
			}
			if st.Selected != nil && (*st.Selected).EntityID() == item.EntityID() {
				st.Selected = &item
			}
		}, nil
	})
}

// Remove drops the matching entry of Items and clears Selected when it has
// the same id.
func (s *Store[T, P]) Remove(ctx context.Context, id string) error {
	return s.run("remove:"+id, "Failed to delete "+s.name, func() (func(*State[T]), error) {
		if err := s.svc.Remove(ctx, id); err != nil {
			return nil, err
		}
		return func(st *State[T]) {
			kept := st.Items[:0:0]
			for _, item := range st.Items {
				if item.EntityID() != id {
					kept = append(kept, item)
				}
			}
			st.Items = kept
			if st.Selected != nil && (*st.Selected).EntityID() == id {
				st.Selected = nil
			}
		}, nil
	})
}

// run executes op once per key among concurrent callers and applies its
// outcome to the state. Joining callers share the first caller's context.
func (s *Store[T, P]) run(key, fallback string, op func() (func(*State[T]), error)) error {
	_, err, _ := s.group.Do(key, func() (any, error) {
		s.begin()
		apply, err := op()
		s.finish(apply, err, fallback)
		return nil, err
	})
	return err
}

func (s *Store[T, P]) begin() {
	s.mu.Lock()
	s.inflight++
	s.state.Error = ""
	s.state.IsLoading = true
	snap, v := s.bump()
	s.mu.Unlock()
	s.publish(snap, v)
}

func (s *Store[T, P]) finish(apply func(*State[T]), err error, fallback string) {
	s.mu.Lock()
	s.inflight--
	s.state.IsLoading = s.inflight > 0
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = fallback
		}
		s.state.Error = msg
	} else {
		apply(&s.state)
	}
	snap, v := s.bump()
	s.mu.Unlock()
	s.publish(snap, v)
}

// bump must be called with mu held.
func (s *Store[T, P]) bump() (State[T], uint64) {
	s.version++
	return s.state.clone(), s.version
}

// publish delivers snap to subscribers unless a newer snapshot has already
// been delivered.
func (s *Store[T, P]) publish(snap State[T], v uint64) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	if v <= s.published {
		return
	}
	s.published = v
	for _, fn := range s.subs {
		fn(snap.clone())
	}
}

// payloadKey identifies an action by its payload. Payloads that cannot be
// encoded are never coalesced.
func payloadKey(action string, p any) string {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf("%s:%p", action, &p)
	}
	return action + ":" + string(raw)
}
