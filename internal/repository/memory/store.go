// Package memory provides an in-process implementation of every repository.
// Transactions hold the store lock for their whole duration and restore a
// snapshot when the unit of work fails, so rollback semantics match Postgres.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/repository"
)

// ErrConstraint mirrors a unique or foreign key violation in Postgres.
var ErrConstraint = errors.New("constraint violation")

type txKey struct{}

type set map[string]struct{}

// Store is a thread-safe in-memory database.
type Store struct {
	mu    sync.Mutex
	state *state

	faultMu sync.Mutex
	faults  map[string]error

	now func() time.Time
}

type state struct {
	seq int64

	users    map[string]domain.User
	staff    map[string]domain.StaffMember
	requests map[string]domain.UserRequest

	drafts          map[string]domain.DraftTicket
	draftRequests   map[string]set
	draftCategories map[string]set
	draftAssignees  map[string]set

	tickets          map[string]domain.Ticket
	ticketRequests   map[string]set
	ticketFollowers  map[string]set
	ticketCategories map[string]set
	ticketAssignees  map[string]set

	comments []domain.Comment
	history  []domain.HistoryEntry

	// order records insertion sequence per id so listings are stable even
	// when timestamps collide.
	order map[string]int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		state:  newState(),
		faults: map[string]error{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func newState() *state {
	return &state{
		users:            map[string]domain.User{},
		staff:            map[string]domain.StaffMember{},
		requests:         map[string]domain.UserRequest{},
		drafts:           map[string]domain.DraftTicket{},
		draftRequests:    map[string]set{},
		draftCategories:  map[string]set{},
		draftAssignees:   map[string]set{},
		tickets:          map[string]domain.Ticket{},
		ticketRequests:   map[string]set{},
		ticketFollowers:  map[string]set{},
		ticketCategories: map[string]set{},
		ticketAssignees:  map[string]set{},
		order:            map[string]int64{},
	}
}

// Set returns every repository backed by this store, plus the store itself
// as the transactor.
func (s *Store) Set() repository.Set {
	return repository.Set{
		Tx:       s,
		Users:    s.Users(),
		Staff:    s.Staff(),
		Requests: s.Requests(),
		Drafts:   s.Drafts(),
		Tickets:  s.Tickets(),
		Comments: s.Comments(),
		History:  s.History(),
	}
}

// RunInTransaction executes fn while holding the store lock. State is
// restored to the pre-call snapshot when fn returns an error or panics.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	defer func() {
		if p := recover(); p != nil {
			s.state = snapshot
			panic(p)
		}
		if err != nil {
			s.state = snapshot
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s))
}

// FailOn makes the named operation return err until ClearFaults is called.
// Operation names take the form "<repository>.<Method>", e.g. "drafts.Delete".
func (s *Store) FailOn(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = err
}

// ClearFaults removes every injected failure.
func (s *Store) ClearFaults() {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults = map[string]error{}
}

func (s *Store) fault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.faults[op]
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// begin acquires the lock unless ctx already runs inside this store's
// transaction, and checks for an injected fault.
func (s *Store) begin(ctx context.Context, op string) (func(), error) {
	if err := s.fault(op); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if s.inTx(ctx) {
		return func() {}, nil
	}
	s.mu.Lock()
	return s.mu.Unlock, nil
}

func (st *state) track(id string) {
	st.seq++
	st.order[id] = st.seq
}

func (st *state) clone() *state {
	out := newState()
	out.seq = st.seq
	for k, v := range st.users {
		out.users[k] = v
	}
	for k, v := range st.staff {
		out.staff[k] = v
	}
	for k, v := range st.requests {
		out.requests[k] = v
	}
	for k, v := range st.drafts {
		out.drafts[k] = cloneDraft(v)
	}
	for k, v := range st.tickets {
		out.tickets[k] = cloneTicket(v)
	}
	copySets(out.draftRequests, st.draftRequests)
	copySets(out.draftCategories, st.draftCategories)
	copySets(out.draftAssignees, st.draftAssignees)
	copySets(out.ticketRequests, st.ticketRequests)
	copySets(out.ticketFollowers, st.ticketFollowers)
	copySets(out.ticketCategories, st.ticketCategories)
	copySets(out.ticketAssignees, st.ticketAssignees)
	out.comments = append([]domain.Comment(nil), st.comments...)
	out.history = append([]domain.HistoryEntry(nil), st.history...)
	for k, v := range st.order {
		out.order[k] = v
	}
	return out
}

func copySets(dst, src map[string]set) {
	for k, members := range src {
		cp := make(set, len(members))
		for m := range members {
			cp[m] = struct{}{}
		}
		dst[k] = cp
	}
}

func addTo(index map[string]set, key, member string) {
	members, ok := index[key]
	if !ok {
		members = set{}
		index[key] = members
	}
	members[member] = struct{}{}
}

func sortedMembers(members set) []string {
	out := make([]string, 0, len(members))
	for m := range members {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneDraft(d domain.DraftTicket) domain.DraftTicket {
	d.SuggestedAssignee = cloneString(d.SuggestedAssignee)
	d.Deadline = cloneTime(d.Deadline)
	d.Categories = nil
	d.Assignees = nil
	d.Requests = nil
	return d
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.Deadline = cloneTime(t.Deadline)
	t.Categories = nil
	t.Assignees = nil
	t.Followers = nil
	return t
}
