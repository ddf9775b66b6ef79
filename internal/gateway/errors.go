package gateway

import (
	"net/http"

	"github.com/VekotinVerstas/sensehel/internal/common/apperrors"
)

// Error taxonomy of the session gateway. Callers match with errors.Is; the
// messages are the user-facing form.
var (
	// ErrTransport is the catch-all network or server failure. The triggering
	// action can be retried by the user.
	ErrTransport = apperrors.New("request to the service failed").SetStatusCode(http.StatusBadGateway)

	// ErrInvalidCredentials is returned when the login input is rejected.
	ErrInvalidCredentials = apperrors.New("incorrect username or password").SetStatusCode(http.StatusBadRequest)

	// ErrAuthenticationExpired is returned when the server rejects the session
	// credential mid-flight. The gateway tears the session down before this
	// reaches the caller.
	ErrAuthenticationExpired = apperrors.New("session expired").SetStatusCode(http.StatusUnauthorized)

	// ErrNotAuthenticated is returned when a privileged action is attempted
	// with no persisted session id. Normal UI flows never hit this.
	ErrNotAuthenticated = apperrors.New("user not logged in").SetStatusCode(http.StatusUnauthorized)
)

// SessionExpiredNotice is the user-visible notice published on the event bus
// when a forced teardown happens. It accompanies the expired-session event
// only, never an explicit logout.
const SessionExpiredNotice = "You have been logged out due to inactivity"
