package alerts

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/opus-domini/alertd/internal/validate"
)

const (
	EventCreated = "alert.created"
	EventUpdated = "alert.updated"
)

// Options configures optional Store collaborators.
type Options struct {
	// Publish is called after every successful mutation, outside the lock.
	Publish func(eventType string, payload map[string]any)
}

// Store is the in-memory alert table. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	alerts  map[int64]Alert
	nextID  int64
	publish func(eventType string, payload map[string]any)
}

// New builds a store holding seed. Every seeded alert must be valid and
// carry a positive id that no other seeded alert uses.
func New(seed []Alert, opts Options) (*Store, error) {
	s := &Store{
		alerts:  make(map[int64]Alert, len(seed)),
		nextID:  1,
		publish: opts.Publish,
	}
	for _, a := range seed {
		if a.ID <= 0 {
			return nil, fmt.Errorf("seed alert %q: id must be positive, got %d", a.Name, a.ID)
		}
		if _, dup := s.alerts[a.ID]; dup {
			return nil, fmt.Errorf("seed alert %q: duplicate id %d", a.Name, a.ID)
		}
		if err := check(a); err != nil {
			return nil, fmt.Errorf("seed alert %d: %w", a.ID, err)
		}
		s.alerts[a.ID] = a
		if a.ID >= s.nextID {
			s.nextID = a.ID + 1
		}
	}
	return s, nil
}

func (s *Store) Get(ctx context.Context, id int64) (Alert, error) {
	if err := ctx.Err(); err != nil {
		return Alert{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return Alert{}, &NotFoundError{ID: id}
	}
	return a, nil
}

// List returns every alert ordered by id.
func (s *Store) List(ctx context.Context) ([]Alert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Alert, 0, len(s.alerts))
	for _, id := range slices.Sorted(maps.Keys(s.alerts)) {
		out = append(out, s.alerts[id])
	}
	return out, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// Create validates w, assigns the next free id and stores the result.
// Unset fields default to frequency 0 and active true.
func (s *Store) Create(ctx context.Context, w AlertWrite) (Alert, error) {
	if err := ctx.Err(); err != nil {
		return Alert{}, err
	}
	if w.Name == nil {
		return Alert{}, invalidField("name", "is required")
	}
	a := Alert{Name: *w.Name, Active: true}
	if w.Frequency != nil {
		a.Frequency = *w.Frequency
	}
	if w.Active != nil {
		a.Active = *w.Active
	}
	if err := check(a); err != nil {
		return Alert{}, err
	}

	s.mu.Lock()
	a.ID = s.nextID
	s.nextID++
	s.alerts[a.ID] = a
	s.mu.Unlock()

	s.emit(EventCreated, a)
	return a, nil
}

// Patch applies p to the alert with the given id and returns the result.
// Nothing is stored when the alert is missing or the patched record is
// invalid.
func (s *Store) Patch(ctx context.Context, id int64, p Patch) (Alert, error) {
	return s.update(ctx, id, func() (Patch, error) { return p, nil })
}

// PatchBody decodes body as a patch of the given content type and applies
// it. A missing alert is reported before any problem with the body.
func (s *Store) PatchBody(ctx context.Context, id int64, contentType string, body []byte) (Alert, error) {
	return s.update(ctx, id, func() (Patch, error) { return DecodePatch(contentType, body) })
}

func (s *Store) update(ctx context.Context, id int64, decode func() (Patch, error)) (Alert, error) {
	if err := ctx.Err(); err != nil {
		return Alert{}, err
	}
	s.mu.Lock()
	current, ok := s.alerts[id]
	if !ok {
		s.mu.Unlock()
		return Alert{}, &NotFoundError{ID: id}
	}
	p, err := decode()
	if err != nil {
		s.mu.Unlock()
		return Alert{}, err
	}
	updated, err := p.Apply(current)
	if err != nil {
		s.mu.Unlock()
		return Alert{}, err
	}
	s.alerts[id] = updated
	s.mu.Unlock()

	s.emit(EventUpdated, updated)
	return updated, nil
}

func (s *Store) emit(eventType string, a Alert) {
	if s.publish == nil {
		return
	}
	s.publish(eventType, map[string]any{"alert": a})
}

func check(a Alert) error {
	fields, err := validate.Struct(a)
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
