package flash

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/veloria/phototheque/cache"
)

const (
	cookieName  = "phototheque_flash"
	keyPrefix   = "flash:"
	tokenMaxAge = 300
)

// Store carries one-shot messages across a redirect. The message body
// lives in the cache under a random token; the browser only holds the
// token cookie. Reading a message clears it, so a flash survives
// exactly one redirect round-trip.
type Store struct {
	cache cache.Provider
	ttl   time.Duration
}

// NewStore creates a flash store with the given message lifetime.
func NewStore(cacheProvider cache.Provider, ttl time.Duration) *Store {
	return &Store{cache: cacheProvider, ttl: ttl}
}

// Set queues a message for the next page view of this browser.
func (s *Store) Set(c *gin.Context, message string) {
	token := uuid.NewString()
	if err := s.cache.Set(c.Request.Context(), keyPrefix+token, message, s.ttl); err != nil {
		log.Printf("[Flash] Failed to store message: %v", err)
		return
	}
	c.SetCookie(cookieName, token, tokenMaxAge, "/", "", false, true)
}

// Take returns the pending message, if any, and clears it.
func (s *Store) Take(c *gin.Context) string {
	token, err := c.Cookie(cookieName)
	if err != nil || token == "" {
		return ""
	}

	// The cookie is one-shot regardless of whether the lookup hits.
	c.SetCookie(cookieName, "", -1, "/", "", false, true)

	var message string
	key := keyPrefix + token
	if err := s.cache.Get(c.Request.Context(), key, &message); err != nil {
		if !cache.IsCacheMiss(err) {
			log.Printf("[Flash] Failed to load message: %v", err)
		}
		return ""
	}

	if err := s.cache.Delete(c.Request.Context(), key); err != nil {
		log.Printf("[Flash] Failed to clear message: %v", err)
	}
	return message
}

// Redirect queues a message and redirects in one step.
func (s *Store) Redirect(c *gin.Context, location, message string) {
	if message != "" {
		s.Set(c, message)
	}
	c.Redirect(http.StatusFound, location)
}
