package subscription_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VekotinVerstas/sensehel/internal/subscription"
	"github.com/VekotinVerstas/sensehel/pkg/api"
)

var testService = api.Service{
	ID:       5,
	Name:     "Energy Saver",
	EulaURL:  "https://example.com/eula",
	Requires: []string{"sensehel/temperature", "sensehel/humidity"},
}

// recorder captures mutation invocations and lets tests stall them.
type recorder struct {
	mu             sync.Mutex
	subscribeCalls [][]string
	history        []bool
	unsubscribes   int
	err            error
	block          chan struct{}
}

func (r *recorder) subscribe(ctx context.Context, uris []string, includeHistory bool) error {
	r.mu.Lock()
	r.subscribeCalls = append(r.subscribeCalls, uris)
	r.history = append(r.history, includeHistory)
	block := r.block
	err := r.err
	r.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (r *recorder) unsubscribe(ctx context.Context) error {
	r.mu.Lock()
	r.unsubscribes++
	block := r.block
	err := r.err
	r.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (r *recorder) subscribeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribeCalls)
}

func (r *recorder) unsubscribeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unsubscribes
}

func newWorkflow(subscribed bool, rec *recorder) *subscription.Workflow {
	return subscription.NewWorkflow(testService, subscribed, rec.subscribe, rec.unsubscribe)
}

func TestSubmitGate(t *testing.T) {
	cases := []struct {
		name     string
		consent  bool
		selected bool
		want     bool
	}{
		{"no consent no selection", false, false, false},
		{"consent only", true, false, false},
		{"selection only", false, true, false},
		{"consent and selection", true, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := newWorkflow(false, &recorder{})
			w.SetConsent(tc.consent)
			if tc.selected {
				w.ToggleAttribute("sensehel/temperature")
			}
			assert.Equal(t, tc.want, w.CanSubmit())
		})
	}
}

func TestSubscribePassesSelection(t *testing.T) {
	rec := &recorder{}
	w := newWorkflow(false, rec)

	w.ToggleAttribute("sensehel/temperature")
	w.ToggleAttribute("sensehel/humidity")
	w.ToggleAttribute("sensehel/humidity") // toggled back off
	w.ToggleIncludeHistory()
	w.SetConsent(true)

	require.NoError(t, w.Subscribe(context.Background()))

	require.Equal(t, 1, rec.subscribeCount())
	assert.Equal(t, []string{"sensehel/temperature"}, rec.subscribeCalls[0])
	assert.True(t, rec.history[0])
	assert.True(t, w.Subscribed())
}

func TestSubscribeDisabledIsNoOp(t *testing.T) {
	rec := &recorder{}
	w := newWorkflow(false, rec)

	// no consent, no selection
	require.NoError(t, w.Subscribe(context.Background()))
	assert.Zero(t, rec.subscribeCount())

	// selection without consent
	w.ToggleAttribute("sensehel/temperature")
	require.NoError(t, w.Subscribe(context.Background()))
	assert.Zero(t, rec.subscribeCount())
}

func TestSubscribeSerializedPerCard(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}
	w := newWorkflow(false, rec)
	w.ToggleAttribute("sensehel/temperature")
	w.SetConsent(true)

	done := make(chan error, 1)
	go func() { done <- w.Subscribe(context.Background()) }()

	// wait for the first call to be in flight
	require.Eventually(t, func() bool {
		return w.Label() == subscription.LabelRequesting
	}, time.Second, 5*time.Millisecond)

	// repeated activation while in flight is a no-op
	require.NoError(t, w.Subscribe(context.Background()))
	assert.Equal(t, 1, rec.subscribeCount())
	assert.False(t, w.CanSubmit())

	close(rec.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, rec.subscribeCount())
}

func TestRequestInFlightClearedOnFailure(t *testing.T) {
	rec := &recorder{err: errors.New("boom")}
	w := newWorkflow(false, rec)
	w.ToggleAttribute("sensehel/temperature")
	w.SetConsent(true)

	err := w.Subscribe(context.Background())
	assert.Error(t, err)

	// control is not left permanently disabled, and status is unchanged
	assert.False(t, w.Draft().RequestInFlight)
	assert.False(t, w.Subscribed())
	assert.True(t, w.CanSubmit())
}

func TestUnsubscribeRequiresConfirmation(t *testing.T) {
	rec := &recorder{}
	w := newWorkflow(true, rec)

	// confirm without a pending prompt is a no-op
	require.NoError(t, w.ConfirmUnsubscribe(context.Background()))
	assert.Zero(t, rec.unsubscribeCount())

	w.RequestUnsubscribe()
	assert.True(t, w.Draft().ConfirmPending)
	assert.Zero(t, rec.unsubscribeCount())

	require.NoError(t, w.ConfirmUnsubscribe(context.Background()))
	assert.Equal(t, 1, rec.unsubscribeCount())
	assert.False(t, w.Subscribed())
}

func TestCancelUnsubscribeHasNoSideEffects(t *testing.T) {
	rec := &recorder{}
	w := newWorkflow(true, rec)

	w.RequestUnsubscribe()
	w.CancelUnsubscribe()

	draft := w.Draft()
	assert.False(t, draft.ConfirmPending)
	assert.Zero(t, rec.unsubscribeCount())
	assert.True(t, w.Subscribed())

	// a later confirm without a new request stays a no-op
	require.NoError(t, w.ConfirmUnsubscribe(context.Background()))
	assert.Zero(t, rec.unsubscribeCount())
}

func TestUnsubscribeFailureKeepsSubscription(t *testing.T) {
	rec := &recorder{err: errors.New("boom")}
	w := newWorkflow(true, rec)

	w.RequestUnsubscribe()
	err := w.ConfirmUnsubscribe(context.Background())
	assert.Error(t, err)

	assert.False(t, w.Draft().RequestInFlight)
	assert.True(t, w.Subscribed())
}

func TestLabelPolicy(t *testing.T) {
	cases := []struct {
		name       string
		subscribed bool
		inFlight   bool
		want       string
	}{
		{"idle unsubscribed", false, false, subscription.LabelSubscribe},
		{"idle subscribed", true, false, subscription.LabelUnsubscribe},
		{"requesting unsubscribed", false, true, subscription.LabelRequesting},
		{"requesting subscribed", true, true, subscription.LabelRequesting},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{block: make(chan struct{})}
			w := newWorkflow(tc.subscribed, rec)

			if tc.inFlight {
				done := make(chan error, 1)
				if tc.subscribed {
					w.RequestUnsubscribe()
					go func() { done <- w.ConfirmUnsubscribe(context.Background()) }()
				} else {
					w.ToggleAttribute("sensehel/temperature")
					w.SetConsent(true)
					go func() { done <- w.Subscribe(context.Background()) }()
				}
				require.Eventually(t, func() bool {
					return w.Draft().RequestInFlight
				}, time.Second, 5*time.Millisecond)
				assert.Equal(t, tc.want, w.Label())
				close(rec.block)
				require.NoError(t, <-done)
				return
			}
			assert.Equal(t, tc.want, w.Label())
		})
	}
}

func TestConsentDisplaysCheckedWhileSubscribed(t *testing.T) {
	w := newWorkflow(true, &recorder{})

	assert.True(t, w.Draft().ConsentChecked)

	// the disabled checkbox ignores changes
	w.SetConsent(false)
	assert.True(t, w.Draft().ConsentChecked)
}

func TestDraftDiscardedAfterSettledSubscribe(t *testing.T) {
	rec := &recorder{}
	w := newWorkflow(false, rec)
	w.ToggleAttribute("sensehel/temperature")
	w.ToggleIncludeHistory()
	w.SetConsent(true)

	require.NoError(t, w.Subscribe(context.Background()))

	draft := w.Draft()
	assert.Empty(t, draft.SelectedURIs)
	assert.False(t, draft.IncludeHistory)
	assert.True(t, draft.ConsentChecked) // forced by subscribed state
}
