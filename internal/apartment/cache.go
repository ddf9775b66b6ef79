// Package apartment memoizes the resident's apartment record for the
// lifetime of a session and derives read-only projections of its sensor
// graph. The apartment changes rarely and is expensive to assemble server
// side, so it is fetched once and shared by every consumer.
package apartment

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/VekotinVerstas/sensehel/internal/common/apperrors"
	"github.com/VekotinVerstas/sensehel/pkg/api"
)

// ErrNoApartmentRegistered is the legitimate empty state: the resident has
// no apartment assigned yet. It is never cached, so a later call can
// succeed once the backend state changes.
var ErrNoApartmentRegistered = apperrors.New("no apartment registered to you").SetStatusCode(http.StatusNotFound)

// Fetcher is the slice of the session gateway the cache needs.
type Fetcher interface {
	ListApartments(ctx context.Context) ([]api.Apartment, error)
}

// Cache is the single-flight apartment cache. Concurrent callers of
// Apartment before the first fetch resolves share one outstanding request;
// after that, every caller gets the same cached record until Reset.
type Cache struct {
	fetcher Fetcher
	group   singleflight.Group

	mu        sync.RWMutex
	apartment *api.Apartment
}

// NewCache creates a cache reading through the given fetcher.
func NewCache(fetcher Fetcher) *Cache {
	return &Cache{fetcher: fetcher}
}

// Apartment returns the cached apartment record, fetching it on first use.
// The returned value is shared; callers must treat it as read-only.
func (c *Cache) Apartment(ctx context.Context) (*api.Apartment, error) {
	c.mu.RLock()
	cached := c.apartment
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := c.group.Do("apartment", func() (any, error) {
		apartments, err := c.fetcher.ListApartments(ctx)
		if err != nil {
			return nil, err
		}
		if len(apartments) == 0 {
			return nil, ErrNoApartmentRegistered
		}
		apartment := &apartments[0]
		c.mu.Lock()
		c.apartment = apartment
		c.mu.Unlock()
		return apartment, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*api.Apartment), nil
}

// Reset drops the cached record. Called when the session ends so a new
// session starts with a fresh fetch.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.apartment = nil
	c.mu.Unlock()
}

// SensorAttribute is an apartment sensor attribute tagged with a
// back-reference to the sensor that owns it.
type SensorAttribute struct {
	api.SensorAttribute
	Sensor api.ApartmentSensor
}

// SensorAttributes flattens every sensor's attribute list into one sequence
// and filters it to the attributes whose URI a service requires. The
// projection is pure: same cached apartment and requirement set, same
// result.
func (c *Cache) SensorAttributes(ctx context.Context, requiredURIs []string) ([]SensorAttribute, error) {
	apartment, err := c.Apartment(ctx)
	if err != nil {
		return nil, err
	}

	required := make(map[string]struct{}, len(requiredURIs))
	for _, uri := range requiredURIs {
		required[uri] = struct{}{}
	}

	var out []SensorAttribute
	for _, sensor := range apartment.ApartmentSensors {
		for _, attr := range sensor.Attributes {
			if _, ok := required[attr.URI]; !ok {
				continue
			}
			owner := sensor
			owner.Attributes = nil // back-reference only, no cycle
			out = append(out, SensorAttribute{SensorAttribute: attr, Sensor: owner})
		}
	}
	return out, nil
}

// SensorValue is a displayable reading derived from the apartment graph.
type SensorValue struct {
	ID          string
	Name        string
	Identifier  string
	URI         string
	Description string
	UIType      string
	Value       string
	UpdatedAt   string
}

// SensorValues projects the apartment graph onto the dashboard: one entry
// per attribute carrying a display hint, annotated with its sensor's name
// and identifier.
func (c *Cache) SensorValues(ctx context.Context) ([]SensorValue, error) {
	apartment, err := c.Apartment(ctx)
	if err != nil {
		return nil, err
	}

	var out []SensorValue
	for _, sensor := range apartment.ApartmentSensors {
		for _, attr := range sensor.Attributes {
			if attr.UIType == "" {
				continue
			}
			desc := attr.Description
			if len(desc) > 5 {
				desc = desc[:5]
			}
			out = append(out, SensorValue{
				ID:          fmt.Sprintf("%d-%s", sensor.ID, desc),
				Name:        sensor.Sensor.Description,
				Identifier:  sensor.Identifier,
				URI:         attr.URI,
				Description: attr.Description,
				UIType:      attr.UIType,
				Value:       attr.Value.String(),
				UpdatedAt:   attr.UpdatedAt.Format(time.RFC3339),
			})
		}
	}
	return out, nil
}
