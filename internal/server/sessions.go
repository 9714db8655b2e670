package server

import (
	"sync"
	"time"

	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/review"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sessionKey = "session"

// entry serializes access to one review session.
type entry struct {
	mu       sync.Mutex
	session  *review.Session
	name     string    // uploaded file name
	created  time.Time // set once
	lastUsed time.Time // guarded by registry.mu
}

// registry holds open sessions. Sessions idle for longer than ttl are evicted
// when the next session is opened; a zero ttl keeps them forever.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

func newRegistry(ttl time.Duration) *registry {
	return &registry{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *registry) add(s *review.Session, name string) string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sessions[id] = &entry{session: s, name: name, created: now, lastUsed: now}
	return id
}

// get returns the session and marks it used.
func (r *registry) get(id string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if ok {
		e.lastUsed = r.now()
	}
	return e, ok
}

// sweep drops idle sessions and returns them. Requests already holding an
// evicted entry finish normally; later ones get 404.
func (r *registry) sweep() []*entry {
	if r.ttl <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var evicted []*entry
	for id, e := range r.sessions {
		if now.Sub(e.lastUsed) > r.ttl {
			delete(r.sessions, id)
			evicted = append(evicted, e)
		}
	}
	return evicted
}

// evictIdle sweeps the registry and logs what was dropped.
func (s *Server) evictIdle() {
	for _, e := range s.sessions.sweep() {
		s.logger.Info("🧹 Review session expired",
			zap.String("file", e.name),
			zap.Duration("age", s.sessions.now().Sub(e.created)))
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// loadSession resolves :id, locks the session for the rest of the request
// and stores it in Locals.
func (s *Server) loadSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}
	e, ok := s.sessions.get(id)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	c.Locals(sessionKey, e)
	return c.Next()
}

func current(c *fiber.Ctx) *entry {
	return c.Locals(sessionKey).(*entry)
}
