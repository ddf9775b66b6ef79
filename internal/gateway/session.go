package gateway

import "sync"

// session holds the process-wide bearer credential. It is owned by the
// gateway; request construction reads the token through it at send time, so
// a teardown that lands between building and sending a request is always
// observed.
type session struct {
	mu    sync.RWMutex
	token string
}

// set installs a new credential. An empty token is the logged-out state.
// Idempotent; requests already in flight are not affected.
func (s *session) set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// get returns the current credential.
func (s *session) get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// end clears the credential and reports whether one was installed. The
// return value lets the teardown path fire exactly once per live session
// even when rejections arrive concurrently or recursively.
func (s *session) end() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.token != ""
	s.token = ""
	return live
}
