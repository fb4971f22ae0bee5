package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// sessionStore holds live sessions keyed by a digest of the bearer token.
// The token itself is only ever returned to the client that created it.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]Session)}
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (st *sessionStore) put(token string, sess Session) {
	sess.Token = ""
	st.mu.Lock()
	st.sessions[digest(token)] = sess
	st.mu.Unlock()
}

// lookup returns the session for token if it exists and has not expired
// at now. Expired entries are dropped on the way out.
func (st *sessionStore) lookup(token string, now time.Time) (Session, bool) {
	key := digest(token)

	st.mu.RLock()
	sess, ok := st.sessions[key]
	st.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if now.After(sess.ExpiresAt) {
		st.remove(key)
		return Session{}, false
	}
	return sess, true
}

func (st *sessionStore) remove(key string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[key]
	delete(st.sessions, key)
	return ok
}

func (st *sessionStore) sweep(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for key, sess := range st.sessions {
		if now.After(sess.ExpiresAt) {
			delete(st.sessions, key)
			n++
		}
	}
	return n
}

func (st *sessionStore) len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
