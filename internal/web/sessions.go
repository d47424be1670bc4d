package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/abdulachik/etrimage/internal/pipeline"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

const sessionCookie = "etr_session"

// visitor is one browser's state: its pipeline session and the form values
// it last submitted, so the page can be redrawn as the user left it.
type visitor struct {
	session *pipeline.Session

	mu   sync.Mutex
	form formValues
}

func (v *visitor) lastForm() formValues {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.form
}

func (v *visitor) remember(f formValues) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.form = f
}

// sessionStore keeps visitors in memory, keyed by the session cookie.
// Idle visitors expire after ttl.
type sessionStore struct {
	pipeline *pipeline.Pipeline
	cache    *cache.Cache
	ttl      time.Duration
	defaults formValues
}

func newSessionStore(p *pipeline.Pipeline, ttl time.Duration, defaults formValues) *sessionStore {
	return &sessionStore{
		pipeline: p,
		cache:    cache.New(ttl, ttl/2),
		ttl:      ttl,
		defaults: defaults,
	}
}

// visitor returns the caller's visitor, creating one and setting the cookie
// when the request has none or it expired. Each access renews the TTL.
func (s *sessionStore) visitor(c *gin.Context) *visitor {
	if id, err := c.Cookie(sessionCookie); err == nil {
		if v, ok := s.cache.Get(id); ok {
			s.cache.Set(id, v, s.ttl)
			return v.(*visitor)
		}
	}

	v := &visitor{
		session: s.pipeline.NewSession(),
		form:    s.defaults,
	}
	id := v.session.ID()
	s.cache.Set(id, v, s.ttl)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, int(s.ttl.Seconds()), "/", "", false, true)
	return v
}

// count returns the number of live visitors.
func (s *sessionStore) count() int {
	return s.cache.ItemCount()
}
