package store

import (
	"context"
	"sync"
	"sync/atomic"

	logging "github.com/ipfs/go-log/v2"

	"github.com/Rorical/RoriRoles/internal/models"
)

var log = logging.Logger("store")

// Resource keys the generation counter of an async envelope. Only the most
// recently issued envelope of a resource may land its result.
type Resource string

const (
	ResourceFeatures  Resource = "features"
	ResourceDelegates Resource = "delegates"
	ResourceMutation  Resource = "mutation"
)

// Scope tags an envelope with the token and generation it was issued for
type Scope struct {
	Token      string
	Resource   Resource
	Generation uint64
}

// Snapshot is what subscribers observe after each processed message
type Snapshot struct {
	State   models.ApplicationState
	Token   string
	Pending int
	Seq     uint64

	// ErrorSeq counts errors reduced so far; it changes even when the same
	// message is reported twice in a row
	ErrorSeq uint64
}

type loopMsg interface{}

type dispatchMsg struct {
	action Action
}

type selectMsg struct {
	token string
}

type issueMsg struct {
	req AsyncRequest
}

type resultMsg struct {
	scope   Scope
	actions []Action

	// then is set only when the task succeeded
	then []Action
}

type barrierMsg struct {
	reply chan Snapshot
}

// Store owns ApplicationState. Every reduction happens on the goroutine
// running Run; everything else talks to it by message.
type Store struct {
	inbox chan loopMsg

	// owned by the loop
	state       models.ApplicationState
	token       string
	generations map[Resource]uint64
	inflight    int
	effects     []Effect
	effectDeps  []any
	effectSeen  []bool
	waiters     []chan Snapshot
	seq         uint64
	errorSeq    uint64
	ctx         context.Context

	snapshot atomic.Pointer[Snapshot]

	subsMu sync.Mutex
	subs   []chan Snapshot

	done chan struct{}
}

// New creates a store holding the zero state and the given effects
func New(effects ...Effect) *Store {
	s := &Store{
		inbox:       make(chan loopMsg, 256),
		generations: make(map[Resource]uint64),
		effects:     effects,
		effectDeps:  make([]any, len(effects)),
		effectSeen:  make([]bool, len(effects)),
		done:        make(chan struct{}),
	}
	s.publish()
	return s
}

// Run processes messages until ctx is cancelled. It must be called once.
func (s *Store) Run(ctx context.Context) {
	s.ctx = ctx
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.releaseWaiters()
			return
		case msg := <-s.inbox:
			s.handle(msg)
		}
	}
}

// Done is closed once Run has returned
func (s *Store) Done() <-chan struct{} {
	return s.done
}

// Dispatch enqueues an action for reduction
func (s *Store) Dispatch(action Action) {
	s.send(dispatchMsg{action: action})
}

// Select makes token the current selection and invalidates all derived
// state. Results of envelopes issued for another token are dropped from
// here on.
func (s *Store) Select(token string) {
	s.send(selectMsg{token: token})
}

// State returns the latest published state
func (s *Store) State() models.ApplicationState {
	return s.snapshot.Load().State
}

// Snapshot returns the latest published snapshot
func (s *Store) Snapshot() Snapshot {
	return *s.snapshot.Load()
}

// Subscribe returns a channel receiving snapshots. A slow reader only sees
// the newest snapshot; the loop never blocks on subscribers.
func (s *Store) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	ch <- *s.snapshot.Load()
	s.subs = append(s.subs, ch)
	return ch
}

// WaitSettled blocks until every message sent before the call has been
// processed and no envelope is in flight.
func (s *Store) WaitSettled(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if !s.send(barrierMsg{reply: reply}) {
		return Snapshot{}, context.Canceled
	}
	select {
	case snap, ok := <-reply:
		if !ok {
			return s.Snapshot(), context.Canceled
		}
		return snap, nil
	case <-s.done:
		return s.Snapshot(), context.Canceled
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Store) send(msg loopMsg) bool {
	select {
	case <-s.done:
		log.Debugw("store stopped, dropping message", "msg", msg)
		return false
	default:
	}
	select {
	case s.inbox <- msg:
		return true
	case <-s.done:
		log.Debugw("store stopped, dropping message", "msg", msg)
		return false
	}
}

func (s *Store) handle(msg loopMsg) {
	switch m := msg.(type) {
	case dispatchMsg:
		s.reduce(m.action)
	case selectMsg:
		if m.token != s.token {
			log.Infow("token selected", "from", s.token, "to", m.token)
		}
		s.token = m.token
		s.reduce(TokenSelected{})
	case issueMsg:
		s.issue(m.req)
	case resultMsg:
		s.land(m)
	case barrierMsg:
		s.waiters = append(s.waiters, m.reply)
	default:
		log.Errorw("unknown loop message", "msg", msg)
	}
	s.runEffects()
	s.publish()
	if s.inflight == 0 && len(s.waiters) > 0 {
		snap := *s.snapshot.Load()
		for _, w := range s.waiters {
			w <- snap
		}
		s.waiters = nil
	}
}

func (s *Store) reduce(action Action) {
	s.state = Reduce(s.state, action)
	actionsReduced.WithLabelValues(action.Kind()).Inc()
	switch action.(type) {
	case AsyncError, Error:
		s.errorSeq++
	}
	log.Debugw("reduced", "action", action.Kind(), "loading", s.state.Loading, "error", s.state.Error)
	if _, ok := action.(TokenSelected); ok {
		// derived state is gone, so every effect gets a fresh look and no
		// load issued before this point may land. Mutations still land so
		// their follow-up reload is not lost.
		clear(s.effectSeen)
		for r := range s.generations {
			if r != ResourceMutation {
				s.generations[r]++
			}
		}
	}
}

// land applies the terminal actions of an envelope, unless the envelope was
// issued for another token or has been superseded on its resource.
func (s *Store) land(m resultMsg) {
	s.inflight--
	inflightEnvelopes.Set(float64(s.inflight))

	if m.scope.Token != s.token || m.scope.Generation != s.generations[m.scope.Resource] {
		staleDiscarded.WithLabelValues(string(m.scope.Resource)).Inc()
		log.Infow("discarding stale result",
			"resource", m.scope.Resource,
			"issuedFor", m.scope.Token,
			"current", s.token,
			"generation", m.scope.Generation,
			"latest", s.generations[m.scope.Resource])
		if s.inflight == 0 && s.state.Loading {
			s.reduce(AsyncSettled{})
		}
		// a superseded mutation still changed the ledger, so its
		// invalidation must run for the token it was issued for
		if m.scope.Token == s.token {
			for _, a := range m.then {
				s.reduce(a)
			}
		}
		return
	}
	for _, a := range m.actions {
		s.reduce(a)
	}
	for _, a := range m.then {
		s.reduce(a)
	}
}

func (s *Store) runEffects() {
	for i, e := range s.effects {
		deps := e.Deps(s.token, s.state)
		if s.effectSeen[i] && deps == s.effectDeps[i] {
			continue
		}
		s.effectSeen[i] = true
		s.effectDeps[i] = deps
		if !e.When(s.token, s.state) {
			continue
		}
		log.Debugw("running effect", "effect", e.Name, "token", s.token)
		s.issue(e.request(s.token))
	}
}

func (s *Store) publish() {
	s.seq++
	snap := &Snapshot{
		State:   s.state.Clone(),
		Token:   s.token,
		Pending:  s.inflight,
		Seq:      s.seq,
		ErrorSeq: s.errorSeq,
	}
	s.snapshot.Store(snap)

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- *snap
	}
}

func (s *Store) releaseWaiters() {
	for _, w := range s.waiters {
		close(w)
	}
	s.waiters = nil
}
