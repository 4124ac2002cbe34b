package domain

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	// DefaultRadiusMeters is the fanout radius used when none is configured.
	DefaultRadiusMeters = 5000

	// DefaultSpatialTimeout bounds the single blocking call in Publish, the
	// spatial store query.
	DefaultSpatialTimeout = 3 * time.Second
)

// Dispatcher orchestrates the notification fanout for a newly published
// interest post: spatial query, affinity filter, registry lookup, push. It is
// strictly best-effort; the post itself is already persisted by the time
// Publish runs and is never affected by a fanout failure.
type Dispatcher struct {
	spatial        SpatialIndex
	registry       *Registry
	radiusMeters   float64
	spatialTimeout time.Duration
	logger         *slog.Logger
}

// NewDispatcher creates a Dispatcher. A radiusMeters of zero or less selects
// DefaultRadiusMeters; a spatialTimeout of zero or less selects
// DefaultSpatialTimeout.
func NewDispatcher(spatial SpatialIndex, registry *Registry, radiusMeters float64, spatialTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	if spatialTimeout <= 0 {
		spatialTimeout = DefaultSpatialTimeout
	}
	return &Dispatcher{
		spatial:        spatial,
		registry:       registry,
		radiusMeters:   radiusMeters,
		spatialTimeout: spatialTimeout,
		logger:         logger,
	}
}

// Publish fans the post out to every nearby user whose interest tags overlap
// the post's tags, pushing one payload per live connection. It returns a
// *ValidationError when the post carries no location; every other failure
// (spatial store timeout, individual delivery failures) is logged and
// swallowed. Publish returns once delivery has been initiated for all
// targets; it never waits for client acknowledgment.
func (d *Dispatcher) Publish(ctx context.Context, interest *Interest) error {
	if interest.Location == nil {
		return &ValidationError{Reason: "post has no location"}
	}

	// A tagless post declares no affinity and reaches no one. Checked before
	// the spatial query to spare the store a pointless round trip.
	if len(interest.Tags) == 0 {
		d.logger.Debug("skipping fanout for tagless post", "interest_id", interest.ID)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.spatialTimeout)
	defer cancel()

	candidates, err := d.spatial.Nearby(ctx, *interest.Location, d.radiusMeters, interest.AuthorID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &UpstreamTimeoutError{Err: err}
		}
		d.logger.Error("fanout abandoned, spatial query failed",
			"interest_id", interest.ID,
			"error", err,
		)
		return nil
	}

	matched := FilterByAffinity(interest.Tags, candidates)
	if len(matched) == 0 {
		return nil
	}

	payload := NotificationFor(interest)
	var delivered, failed int
	for _, c := range matched {
		for _, conn := range d.registry.ConnectionsFor(c.UserID) {
			if err := conn.Deliver(payload); err != nil {
				failed++
				d.logger.Warn("notification dropped",
					"interest_id", interest.ID,
					"error", &DeliveryError{UserID: c.UserID, Err: err},
				)
				continue
			}
			delivered++
		}
	}

	d.logger.Info("fanout complete",
		"interest_id", interest.ID,
		"candidates", len(candidates),
		"matched", len(matched),
		"delivered", delivered,
		"failed", failed,
	)
	return nil
}
