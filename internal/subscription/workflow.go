// Package subscription drives the per-service subscribe and unsubscribe
// workflow: attribute selection, consent, confirmation, and the requesting
// state around the mutation calls. One Workflow instance backs one service
// card; instances are independent of each other.
package subscription

import (
	"context"
	"sync"

	"github.com/VekotinVerstas/sensehel/pkg/api"
)

// ConfirmUnsubscribeText is shown in the confirmation prompt before an
// unsubscribe fires. Unsubscribing is destructive: it revokes every consent
// granted to the service.
const ConfirmUnsubscribeText = "Unsubscribing will revoke all consents given and you will no longer have access to the benefits of this service"

// Action labels derived from the workflow state.
const (
	LabelSubscribe   = "subscribe"
	LabelUnsubscribe = "unsubscribe"
	LabelRequesting  = "requesting"
)

// SubscribeFunc performs the subscribe mutation with the selected attribute
// URIs and the include-history choice.
type SubscribeFunc func(ctx context.Context, selectedURIs []string, includeHistory bool) error

// UnsubscribeFunc performs the unsubscribe mutation.
type UnsubscribeFunc func(ctx context.Context) error

// Draft is the ephemeral per-attempt selection state. It lives while the
// card's detail view is open and is discarded after a settled action.
type Draft struct {
	ConsentChecked  bool
	SelectedURIs    []string
	IncludeHistory  bool
	RequestInFlight bool
	ConfirmPending  bool
}

// Workflow coordinates the subscribe/unsubscribe sequence for one service.
type Workflow struct {
	mu          sync.Mutex
	service     api.Service
	subscribed  bool
	subscribe   SubscribeFunc
	unsubscribe UnsubscribeFunc

	consentChecked  bool
	selected        map[string]struct{}
	includeHistory  bool
	requestInFlight bool
	confirmPending  bool
}

// NewWorkflow creates a workflow for the given service. subscribed reflects
// the authoritative listing at the time the card opened.
func NewWorkflow(service api.Service, subscribed bool, subscribe SubscribeFunc, unsubscribe UnsubscribeFunc) *Workflow {
	return &Workflow{
		service:     service,
		subscribed:  subscribed,
		subscribe:   subscribe,
		unsubscribe: unsubscribe,
		selected:    make(map[string]struct{}),
	}
}

// Service returns the service definition backing this workflow.
func (w *Workflow) Service() api.Service {
	return w.service
}

// Subscribed reports the current (optimistic) subscription status.
func (w *Workflow) Subscribed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.subscribed
}

// ToggleAttribute adds or removes an attribute URI from the selection.
// No network effect.
func (w *Workflow) ToggleAttribute(uri string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.selected[uri]; ok {
		delete(w.selected, uri)
	} else {
		w.selected[uri] = struct{}{}
	}
}

// SetConsent records the consent checkbox state. Ignored while the service
// is subscribed: the checkbox then displays checked and disabled.
func (w *Workflow) SetConsent(checked bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.subscribed {
		return
	}
	w.consentChecked = checked
}

// ToggleIncludeHistory flips the "also share past data" choice.
func (w *Workflow) ToggleIncludeHistory() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.includeHistory = !w.includeHistory
}

// Draft returns a snapshot of the selection state. SelectedURIs carries no
// ordering guarantee.
func (w *Workflow) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draftLocked()
}

func (w *Workflow) draftLocked() Draft {
	uris := make([]string, 0, len(w.selected))
	for uri := range w.selected {
		uris = append(uris, uri)
	}
	return Draft{
		ConsentChecked:  w.subscribed || w.consentChecked,
		SelectedURIs:    uris,
		IncludeHistory:  w.includeHistory,
		RequestInFlight: w.requestInFlight,
		ConfirmPending:  w.confirmPending,
	}
}

// CanSubmit reports whether the primary action is enabled. For the
// subscribe path that means consent given and at least one attribute
// selected; for either path, no request may be in flight.
func (w *Workflow) CanSubmit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.requestInFlight {
		return false
	}
	if w.subscribed {
		return true
	}
	return w.consentChecked && len(w.selected) > 0
}

// Label returns the action label. It is strictly a function of
// (subscribed, requestInFlight).
func (w *Workflow) Label() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.requestInFlight:
		return LabelRequesting
	case w.subscribed:
		return LabelUnsubscribe
	default:
		return LabelSubscribe
	}
}

// Subscribe runs the subscribe mutation with the current selection. While a
// request is in flight, or while the action is disabled, activation is a
// no-op. The requesting state is cleared when the call settles, success or
// failure; failures propagate to the caller.
func (w *Workflow) Subscribe(ctx context.Context) error {
	w.mu.Lock()
	if w.subscribed || w.requestInFlight || !w.consentChecked || len(w.selected) == 0 {
		w.mu.Unlock()
		return nil
	}
	w.requestInFlight = true
	draft := w.draftLocked()
	w.mu.Unlock()

	err := w.subscribe(ctx, draft.SelectedURIs, draft.IncludeHistory)

	w.mu.Lock()
	w.requestInFlight = false
	if err == nil {
		w.subscribed = true
		w.resetDraftLocked()
	}
	w.mu.Unlock()
	return err
}

// RequestUnsubscribe opens the confirmation prompt. The mutation itself is
// unreachable without a subsequent ConfirmUnsubscribe.
func (w *Workflow) RequestUnsubscribe() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.subscribed || w.requestInFlight {
		return
	}
	w.confirmPending = true
}

// ConfirmUnsubscribe closes the prompt and runs the unsubscribe mutation.
// A confirm without a pending prompt is a no-op. The requesting state is
// cleared when the call settles regardless of outcome.
func (w *Workflow) ConfirmUnsubscribe(ctx context.Context) error {
	w.mu.Lock()
	if !w.confirmPending || w.requestInFlight {
		w.mu.Unlock()
		return nil
	}
	w.confirmPending = false
	w.requestInFlight = true
	w.mu.Unlock()

	err := w.unsubscribe(ctx)

	w.mu.Lock()
	w.requestInFlight = false
	if err == nil {
		w.subscribed = false
		w.resetDraftLocked()
	}
	w.mu.Unlock()
	return err
}

// CancelUnsubscribe dismisses the confirmation prompt. No side effects, no
// network call.
func (w *Workflow) CancelUnsubscribe() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.confirmPending = false
}

func (w *Workflow) resetDraftLocked() {
	w.consentChecked = false
	w.selected = make(map[string]struct{})
	w.includeHistory = false
	w.confirmPending = false
}
