package usecase

import (
	"reflect"
	"sync"
	"time"

	"learnhub-checkout/internal/domain/model"
)

// ViewState tags where a stored timeline came from.
type ViewState string

const (
	ViewConfirmed         ViewState = "confirmed"
	ViewOptimisticPending ViewState = "optimistic_pending"
)

// DefaultPendingWindow bounds how long an optimistic payment mark is laid
// over backend data that has not caught up yet.
const DefaultPendingWindow = 10 * time.Minute

// StoredView is the projection kept per (user, course).
type StoredView struct {
	Timeline  *model.Timeline `json:"timeline"`
	State     ViewState       `json:"state"`
	UpdatedAt time.Time       `json:"updatedAt"`

	// marks are the installments paid optimistically; a nil mark is a full
	// payment. pendingSince is when the first of them was applied.
	marks        []*int
	pendingSince time.Time
}

// ViewStore holds the last installment timeline shown for each user and
// course. Confirmed writes are last-fetch-wins, except that a fetch which
// does not yet show an optimistic payment keeps it pending until the
// window runs out.
type ViewStore struct {
	mu     sync.RWMutex
	views  map[string]StoredView
	window time.Duration
}

func NewViewStore() *ViewStore {
	return &ViewStore{views: make(map[string]StoredView), window: DefaultPendingWindow}
}

// WithPendingWindow overrides DefaultPendingWindow. d <= 0 keeps the default.
func (s *ViewStore) WithPendingWindow(d time.Duration) *ViewStore {
	if d > 0 {
		s.window = d
	}
	return s
}

func viewKey(userID, courseID string) string { return userID + "|" + courseID }

// Get returns a copy of the stored view.
func (s *ViewStore) Get(userID, courseID string) (StoredView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[viewKey(userID, courseID)]
	if !ok || v.Timeline == nil {
		return StoredView{}, false
	}
	v.Timeline = v.Timeline.Clone()
	return v, true
}

// Merge stores a freshly built timeline and returns what should be shown.
// While optimistic marks are pending, younger than the window and not yet
// reflected in fresh, they are laid over it and the result stays
// ViewOptimisticPending. Otherwise fresh is stored as confirmed. changed
// reports whether the shown timeline differs from the stored one.
func (s *ViewStore) Merge(userID, courseID string, fresh *model.Timeline, at time.Time) (shown *model.Timeline, state ViewState, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := viewKey(userID, courseID)
	prev, had := s.views[k]

	next := StoredView{Timeline: fresh.Clone(), State: ViewConfirmed, UpdatedAt: at}
	if had && prev.State == ViewOptimisticPending && at.Sub(prev.pendingSince) < s.window && !marksReflected(fresh, prev.marks) {
		for _, m := range prev.marks {
			markPaid(next.Timeline, m, prev.pendingSince)
		}
		next.State = ViewOptimisticPending
		next.marks = prev.marks
		next.pendingSince = prev.pendingSince
	}
	s.views[k] = next
	changed = !had || !reflect.DeepEqual(prev.Timeline, next.Timeline)
	return next.Timeline.Clone(), next.State, changed
}

// ApplyOptimistic marks the installment at index as paid on top of the
// current view and recomputes next and remaining. It returns the new
// timeline, or nil when there is nothing stored for the key; the mark is
// still remembered and applied to the next Merge.
func (s *ViewStore) ApplyOptimistic(userID, courseID string, index *int, at time.Time) *model.Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := viewKey(userID, courseID)
	cur := s.views[k]

	next := StoredView{State: ViewOptimisticPending, UpdatedAt: at, pendingSince: at}
	if cur.State == ViewOptimisticPending {
		next.marks = append(next.marks, cur.marks...)
		next.pendingSince = cur.pendingSince
	}
	next.marks = append(next.marks, index)
	if cur.Timeline != nil {
		next.Timeline = cur.Timeline.Clone()
		markPaid(next.Timeline, index, at)
	}
	s.views[k] = next
	return next.Timeline.Clone()
}

// marksReflected reports whether fresh already shows every mark as paid.
// A mark for an index fresh does not contain counts as reflected.
func marksReflected(fresh *model.Timeline, marks []*int) bool {
	if fresh == nil {
		return true
	}
	for _, m := range marks {
		if m == nil {
			if len(fresh.Entries) > 0 && !fresh.FullyPaid() {
				return false
			}
			continue
		}
		for _, e := range fresh.Entries {
			if e.Index == *m && !e.IsPaid {
				return false
			}
		}
	}
	return true
}

func (s *ViewStore) Invalidate(userID, courseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, viewKey(userID, courseID))
}

// markPaid flags one entry, or every entry for a full payment (index nil).
func markPaid(tl *model.Timeline, index *int, at time.Time) {
	if tl == nil {
		return
	}
	paidAt := at
	for i := range tl.Entries {
		if index != nil && tl.Entries[i].Index != *index {
			continue
		}
		if tl.Entries[i].IsPaid {
			continue
		}
		tl.Entries[i].IsPaid = true
		tl.Entries[i].PaymentDate = &paidAt
	}
	tl.Recompute()
}
