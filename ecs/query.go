package ecs

import "iter"

// Query is the system-field form of a View. The Scheduler initializes Query
// fields when a system is registered and derives the system's access from
// the view struct.
type Query[T any] struct {
	view *View[T]
}

// NewQuery creates a Query outside of a scheduler.
func NewQuery[T any](storage *Storage) *Query[T] {
	return &Query[T]{view: NewView[T](storage)}
}

// Init initializes or re-initializes the Query with a storage.
// Called by the Scheduler during system registration.
func (q *Query[T]) Init(storage *Storage) {
	q.view = NewView[T](storage)
}

// View exposes the underlying view.
func (q *Query[T]) View() *View[T] {
	q.mustInit()
	return q.view
}

func (q *Query[T]) mustInit() {
	if q.view == nil {
		panic("ecs: Query used before Init (register the system with a Scheduler)")
	}
}

// Iter returns an iterator over entity IDs and component data.
func (q *Query[T]) Iter() iter.Seq2[EntityId, T] {
	q.mustInit()
	return q.view.Iter()
}

// Values returns an iterator over component data only.
func (q *Query[T]) Values() iter.Seq[T] {
	q.mustInit()
	return q.view.Values()
}

// Get returns the view struct for one entity, or nil if it does not match.
func (q *Query[T]) Get(id EntityId) *T {
	q.mustInit()
	return q.view.Get(id)
}

func (q *Query[T]) Count() int {
	q.mustInit()
	return q.view.Count()
}

func (q *Query[T]) Single() (T, bool) {
	q.mustInit()
	return q.view.Single()
}

func (q *Query[T]) declareAccess(a *systemAccess) {
	q.mustInit()
	q.view.declareAccess(a)
}
