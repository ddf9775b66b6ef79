// Package gateway implements the session gateway: the single point of
// authenticated communication with the SenseHel backend. It owns the bearer
// credential, injects it into every outbound request, and reacts to an
// authentication rejection by tearing the whole session down exactly once.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/VekotinVerstas/sensehel/internal/common/apperrors"
	"github.com/VekotinVerstas/sensehel/internal/eventbus"
	"github.com/VekotinVerstas/sensehel/internal/store"
	"github.com/VekotinVerstas/sensehel/pkg/api"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultTimeout = 5 * time.Second
	publishTimeout = 100 * time.Millisecond
	readRetries    = 3
	readRetryDelay = 100 * time.Millisecond
)

// Gateway is the authenticated transport for the apartment dashboard. All
// components reach the backend through it; none of them touch the persisted
// store or the credential directly.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	store      *store.Store
	bus        *eventbus.Bus
	session    *session
}

// Options configures optional gateway behavior.
type Options struct {
	// HTTPClient overrides the underlying client, mainly for tests.
	HTTPClient *http.Client
	// Timeout applies when HTTPClient is not provided.
	Timeout time.Duration
}

// New creates a gateway for the given server URL. If the persisted store
// holds a previous login response, its token is restored so the session
// survives process restarts.
func New(serverURL string, st *store.Store, bus *eventbus.Bus, opts ...Options) *Gateway {
	opt := Options{}
	if len(opts) > 0 {
		opt = opts[0]
	}
	httpClient := opt.HTTPClient
	if httpClient == nil {
		timeout := opt.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	g := &Gateway{
		baseURL:    serverURL,
		httpClient: httpClient,
		store:      st,
		bus:        bus,
		session:    &session{},
	}
	if raw, ok := st.Get(store.KeyCurrentUser); ok {
		g.session.set(gjson.GetBytes(raw, "token").String())
	}
	return g
}

// SetToken replaces the credential used by all future requests. Requests
// already in flight are unaffected. Safe to call with an empty token, which
// is the logged-out state.
func (g *Gateway) SetToken(token string) {
	g.session.set(token)
}

// Token returns the currently installed credential.
func (g *Gateway) Token() string {
	return g.session.get()
}

// RequestOptions describes a single outbound call.
type RequestOptions struct {
	Method string
	Path   string
	Query  map[string]string
	Body   []byte
}

// DoRequest makes an authenticated request and returns the response body.
// The credential is read when each attempt is sent, not when the request is
// constructed. Idempotent reads are retried on network failure; mutations
// are sent exactly once. A 401 response triggers the teardown reaction and
// surfaces as ErrAuthenticationExpired.
func (g *Gateway) DoRequest(ctx context.Context, opts RequestOptions) ([]byte, error) {
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return nil, ErrTransport.MsgErr("invalid server URL", err)
	}
	u.Path = path.Join(u.Path, opts.Path)
	// path.Join eats the trailing slash the backend routes require
	if opts.Path != "" && opts.Path[len(opts.Path)-1] == '/' {
		u.Path += "/"
	}
	q := u.Query()
	for k, v := range opts.Query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	attempts := uint(1)
	if opts.Method == http.MethodGet {
		attempts = readRetries
	}

	reqID := uuid.NewString()
	var body []byte
	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), bytes.NewReader(opts.Body))
			if err != nil {
				return retry.Unrecoverable(ErrTransport.MsgErr("failed to create request", err))
			}
			req.Header.Set("Content-Type", "application/json")
			if token := g.session.get(); token != "" {
				req.Header.Set("Authorization", "Token "+token)
			}

			resp, err := g.httpClient.Do(req)
			if err != nil {
				return ErrTransport.Err(err)
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return ErrTransport.MsgErr("failed to read response body", err)
			}

			log.Debug().
				Str("request_id", reqID).
				Str("method", opts.Method).
				Str("path", opts.Path).
				Int("status", resp.StatusCode).
				Msg("request completed")

			if resp.StatusCode == http.StatusUnauthorized {
				return retry.Unrecoverable(g.handleAuthRejection())
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(serverError(resp.StatusCode, data))
			}
			body = data
			return nil
		},
		retry.Attempts(attempts),
		retry.Delay(readRetryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// serverError converts a non-401 failure response into a transport error
// carrying the server's status code and detail message when present.
func serverError(status int, body []byte) error {
	msg := gjson.GetBytes(body, "detail").String()
	if msg == "" {
		msg = fmt.Sprintf("server returned status %d", status)
	}
	return ErrTransport.Msg(msg).SetStatusCode(status)
}

// handleAuthRejection is the forced-teardown reaction. It clears the
// persisted store, publishes the session-expired notice, and returns the
// failure so the caller's own error path still executes. The reaction fires
// at most once per live session: follow-up rejections from requests of the
// same dead session only get the error back.
func (g *Gateway) handleAuthRejection() error {
	if g.session.end() {
		if err := g.store.Clear(); err != nil {
			log.Warn().Err(err).Msg("failed to clear session store during teardown")
		}
		log.Warn().Msg("session rejected by server, tearing down")
		g.bus.Publish(eventbus.TopicSessionExpired, SessionExpiredNotice, publishTimeout)
	}
	return ErrAuthenticationExpired.New(SessionExpiredNotice)
}

// Login authenticates the user. On success the raw response is persisted as
// the current-user record and its token becomes the active credential. A
// client-input rejection surfaces as ErrInvalidCredentials; no credential is
// installed unless the response was fully successful.
func (g *Gateway) Login(ctx context.Context, username, password string) (*api.User, error) {
	payload, err := json.Marshal(api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, ErrTransport.MsgErr("failed to encode login request", err)
	}

	raw, err := g.DoRequest(ctx, RequestOptions{
		Method: http.MethodPost,
		Path:   "login/",
		Body:   payload,
	})
	if err != nil {
		var aerr apperrors.Error
		if errors.As(err, &aerr) && aerr.StatusCode() == http.StatusBadRequest {
			return nil, ErrInvalidCredentials.Err(err)
		}
		return nil, err
	}

	if err := g.store.Set(store.KeyCurrentUser, raw); err != nil {
		return nil, err
	}
	// token defaults to empty when the response carries none
	g.session.set(gjson.GetBytes(raw, "token").String())

	var user api.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, ErrTransport.MsgErr("failed to parse login response", err)
	}
	return &user, nil
}

// Logout is the user-initiated session teardown: the persisted store is
// cleared and the credential reset to empty. Unlike the forced path, no
// inactivity notice is emitted; subscribers get a logged-out event instead.
func (g *Gateway) Logout() error {
	g.session.end()
	if err := g.store.Clear(); err != nil {
		return err
	}
	g.bus.Publish(eventbus.TopicSessionLoggedOut, nil, publishTimeout)
	return nil
}

// ListApartments fetches the resident's apartment listing.
func (g *Gateway) ListApartments(ctx context.Context) ([]api.Apartment, error) {
	raw, err := g.DoRequest(ctx, RequestOptions{Method: http.MethodGet, Path: "apartments/"})
	if err != nil {
		return nil, err
	}
	var apartments []api.Apartment
	if err := json.Unmarshal(raw, &apartments); err != nil {
		return nil, ErrTransport.MsgErr("failed to parse apartment listing", err)
	}
	return apartments, nil
}

// ListAvailableServices fetches the services offered to the resident.
func (g *Gateway) ListAvailableServices(ctx context.Context) ([]api.Service, error) {
	raw, err := g.DoRequest(ctx, RequestOptions{Method: http.MethodGet, Path: "available-services/"})
	if err != nil {
		return nil, err
	}
	var services []api.Service
	if err := json.Unmarshal(raw, &services); err != nil {
		return nil, ErrTransport.MsgErr("failed to parse service listing", err)
	}
	return services, nil
}

// ListSubscriptions fetches the resident's subscriptions and persists the
// raw listing as the local snapshot.
func (g *Gateway) ListSubscriptions(ctx context.Context) ([]api.Subscription, error) {
	raw, err := g.DoRequest(ctx, RequestOptions{Method: http.MethodGet, Path: "subscriptions/"})
	if err != nil {
		return nil, err
	}
	if err := g.store.Set(store.KeySubscribedServices, raw); err != nil {
		return nil, err
	}
	var subscriptions []api.Subscription
	if err := json.Unmarshal(raw, &subscriptions); err != nil {
		return nil, ErrTransport.MsgErr("failed to parse subscription listing", err)
	}
	return subscriptions, nil
}

// CreateSubscription subscribes the resident to a service, granting it
// access to the selected apartment sensor attributes.
func (g *Gateway) CreateSubscription(ctx context.Context, serviceID int, attributeIDs []int, includeHistory bool) (*api.Subscription, error) {
	payload, err := json.Marshal(api.CreateSubscriptionRequest{
		Service:        serviceID,
		Attributes:     attributeIDs,
		IncludeHistory: includeHistory,
	})
	if err != nil {
		return nil, ErrTransport.MsgErr("failed to encode subscription request", err)
	}

	raw, err := g.DoRequest(ctx, RequestOptions{
		Method: http.MethodPost,
		Path:   "subscriptions/",
		Body:   payload,
	})
	if err != nil {
		return nil, err
	}

	subscription := &api.Subscription{Service: api.Service{ID: serviceID}}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, subscription); err != nil {
			return nil, ErrTransport.MsgErr("failed to parse subscription response", err)
		}
	}
	return subscription, nil
}

// DeleteSubscription unsubscribes from a service, revoking every consent
// granted to it.
func (g *Gateway) DeleteSubscription(ctx context.Context, id int) error {
	_, err := g.DoRequest(ctx, RequestOptions{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("subscriptions/%d/", id),
	})
	return err
}

// RevokeUser deletes the resident's user record, detaching the apartment.
// The id comes solely from the persisted current-user record; without one
// the call fails with ErrNotAuthenticated.
func (g *Gateway) RevokeUser(ctx context.Context) error {
	raw, ok := g.store.Get(store.KeyCurrentUser)
	if !ok {
		return ErrNotAuthenticated
	}
	id := gjson.GetBytes(raw, "id")
	if !id.Exists() {
		return ErrNotAuthenticated
	}

	_, err := g.DoRequest(ctx, RequestOptions{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("users/%d/", id.Int()),
	})
	return err
}
