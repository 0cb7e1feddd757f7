package server

import (
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/packdraft/internal/bot"
	"github.com/lox/packdraft/internal/cards"
	"github.com/lox/packdraft/internal/randutil"
)

// Registry owns the live sessions. A session is created when the first user
// joins its id and torn down once it is empty with no draft running.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	sender     Sender
	db         *cards.Database
	oracle     bot.Oracle
	rng        *rand.Rand
	clock      quartz.Clock
	grace      time.Duration
	archiveDir string
	logger     *log.Logger
}

// NewRegistry creates a session registry. Every session forks its own RNG
// stream from rng so drafts do not perturb each other.
func NewRegistry(sender Sender, db *cards.Database, oracle bot.Oracle, rng *rand.Rand, clock quartz.Clock, grace time.Duration, archiveDir string, logger *log.Logger) *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		sender:     sender,
		db:         db,
		oracle:     oracle,
		rng:        rng,
		clock:      clock,
		grace:      grace,
		archiveDir: archiveDir,
		logger:     logger.WithPrefix("registry"),
	}
}

// Get returns the session for an id, if it exists.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// GetOrCreate returns the session for an id, creating it on first join.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[id]; ok {
		return sess
	}
	sess := NewSession(id, r.sender, r.db, r.oracle, randutil.Fork(r.rng), r.clock, r.grace, r.archiveDir, r.logger)
	r.sessions[id] = sess
	r.logger.Info("session created", "id", id)
	return sess
}

// Reap removes the session if it is empty: no connected seats and no draft
// in progress. A session with a draft running survives every disconnect so
// players can return.
func (r *Registry) Reap(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok || !sess.Empty() {
		return
	}
	delete(r.sessions, id)
	r.logger.Info("session destroyed", "id", id)
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
