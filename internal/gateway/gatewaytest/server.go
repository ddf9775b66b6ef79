// Package gatewaytest provides an in-process stub of the SenseHel backend
// for exercising the client without network access. Handlers are mounted on
// a chi router behind httptest.Server and every route records its hit count
// so tests can pin how many fetches a code path issues.
package gatewaytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/VekotinVerstas/sensehel/pkg/api"
)

// Server is a stub SenseHel backend. Mutate the public fields between
// requests to steer handler behavior; all access is mutex-guarded.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	// Token is the credential handed out by login and expected on every
	// authenticated route.
	Token string
	// Username and Password accepted by the login route.
	Username string
	Password string
	// User is the record returned by login (Token is attached on the wire).
	User api.User

	// RejectAll forces a 401 on every authenticated route, simulating a
	// server-side session expiry.
	RejectAll bool

	// ApartmentDelay stalls the apartment handler, widening the window for
	// concurrent-fetch tests.
	ApartmentDelay time.Duration

	Apartments    []api.Apartment
	Services      []api.Service
	Subscriptions []api.Subscription

	nextSubscriptionID int
	hits               map[string]int
}

// NewServer starts a stub backend with one valid account and no data.
// Callers own the returned server and must Close it.
func NewServer() *Server {
	s := &Server{
		Token:              "stub-token",
		Username:           "resident",
		Password:           "secret",
		User:               api.User{ID: 1, Username: "resident", FirstName: "Pauli", LastName: "Toivonen"},
		nextSubscriptionID: 1,
		hits:               make(map[string]int),
	}

	r := chi.NewRouter()
	r.Post("/login/", s.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/apartments/", s.handleApartments)
		r.Get("/available-services/", s.handleServices)
		r.Get("/subscriptions/", s.handleListSubscriptions)
		r.Post("/subscriptions/", s.handleCreateSubscription)
		r.Delete("/subscriptions/{id}/", s.handleDeleteSubscription)
		r.Delete("/users/{id}/", s.handleDeleteUser)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// Hits returns how many requests reached the given method and path.
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+path]
}

func (s *Server) record(r *http.Request) {
	s.mu.Lock()
	s.hits[r.Method+" "+r.URL.Path]++
	s.mu.Unlock()
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		expected := "Token " + s.Token
		reject := s.RejectAll
		s.mu.Unlock()

		if reject || r.Header.Get("Authorization") != expected {
			s.record(r)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Username != s.Username || req.Password != s.Password {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Unable to log in with provided credentials."})
		return
	}

	user := s.User
	user.Token = s.Token
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleApartments(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	s.mu.Lock()
	delay := s.ApartmentDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(s.Apartments))
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(s.Services))
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(s.Subscriptions))
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	var req api.CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var service api.Service
	for _, svc := range s.Services {
		if svc.ID == req.Service {
			service = svc
			break
		}
	}

	sub := api.Subscription{
		ID:        s.nextSubscriptionID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
		Service:   service,
	}
	s.nextSubscriptionID++
	s.Subscriptions = append(s.Subscriptions, sub)
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid id"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.Subscriptions {
		if sub.ID == id {
			s.Subscriptions = append(s.Subscriptions[:i], s.Subscriptions[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// nonNil keeps empty collections rendering as [] instead of null.
func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
