package domain_test

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebwray/interest-radar/internal/domain"
)

// fakeSpatialIndex emulates the external geospatial store over a fixed user
// set, using great-circle distance.
type fakeSpatialIndex struct {
	users       []domain.Candidate
	err         error
	lastExclude string
	calls       int
}

func (f *fakeSpatialIndex) Nearby(_ context.Context, origin domain.Point, radiusMeters float64, excludeUserID string) ([]domain.Candidate, error) {
	f.calls++
	f.lastExclude = excludeUserID
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Candidate
	for _, u := range f.users {
		if u.UserID == excludeUserID {
			continue
		}
		if haversineMeters(origin, u.Location) <= radiusMeters {
			out = append(out, u)
		}
	}
	return out, nil
}

func haversineMeters(a, b domain.Point) float64 {
	const earthRadius = 6371000.0
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(b.Lat - a.Lat)
	dLng := rad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(h))
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func publishedInterest(tags []string) *domain.Interest {
	return &domain.Interest{
		ID:         "interest-1",
		AuthorID:   "author",
		AuthorName: "The Author",
		Title:      "casual chess in the park",
		Tags:       tags,
		Location:   &domain.Point{Lng: 0, Lat: 0},
	}
}

// Scenario from the fanout contract: A (two connections) and B (one) are
// close and share a tag, C is far away.
func newScenario() (*fakeSpatialIndex, *domain.Registry, *fakeConn, *fakeConn, *fakeConn) {
	spatial := &fakeSpatialIndex{
		users: []domain.Candidate{
			{UserID: "A", Location: domain.Point{Lng: 0, Lat: 0}, Tags: []string{"chess"}},
			{UserID: "B", Location: domain.Point{Lng: 0.001, Lat: 0.001}, Tags: []string{"chess", "hiking"}},
			{UserID: "C", Location: domain.Point{Lng: 10, Lat: 10}, Tags: []string{"chess"}},
		},
	}

	registry := domain.NewRegistry()
	a1, a2, b1 := &fakeConn{}, &fakeConn{}, &fakeConn{}
	registry.Register("A", a1)
	registry.Register("A", a2)
	registry.Register("B", b1)
	return spatial, registry, a1, a2, b1
}

func TestPublishDeliversToNearbyMatchingConnections(t *testing.T) {
	spatial, registry, a1, a2, b1 := newScenario()
	d := domain.NewDispatcher(spatial, registry, 5000, 0, testLogger())

	err := d.Publish(context.Background(), publishedInterest([]string{"chess"}))
	require.NoError(t, err)

	// A holds two live connections and gets one delivery per connection.
	assert.Equal(t, 1, a1.count())
	assert.Equal(t, 1, a2.count())
	assert.Equal(t, 1, b1.count())

	// C is outside the radius; the author never notifies themselves.
	assert.Empty(t, registry.ConnectionsFor("C"))
	assert.Equal(t, "author", spatial.lastExclude)

	require.NotEmpty(t, b1.received)
	payload := b1.received[0]
	assert.Equal(t, "casual chess in the park", payload.Title)
	assert.Equal(t, "The Author", payload.CreatedBy)
	assert.Equal(t, []string{"chess"}, payload.Tags)
}

func TestPublishEmptyTagsDeliversNothing(t *testing.T) {
	spatial, registry, a1, a2, b1 := newScenario()
	d := domain.NewDispatcher(spatial, registry, 5000, 0, testLogger())

	err := d.Publish(context.Background(), publishedInterest(nil))
	require.NoError(t, err)

	assert.Equal(t, 0, a1.count())
	assert.Equal(t, 0, a2.count())
	assert.Equal(t, 0, b1.count())
	assert.Equal(t, 0, spatial.calls, "tagless posts should not hit the spatial store")
}

func TestPublishSkipsDisconnectedUser(t *testing.T) {
	spatial, registry, a1, a2, b1 := newScenario()
	registry.Unregister("B", b1)
	d := domain.NewDispatcher(spatial, registry, 5000, 0, testLogger())

	err := d.Publish(context.Background(), publishedInterest([]string{"chess"}))
	require.NoError(t, err)

	assert.Equal(t, 1, a1.count())
	assert.Equal(t, 1, a2.count())
	assert.Equal(t, 0, b1.count())
}

func TestPublishNoSharedTags(t *testing.T) {
	spatial, registry, a1, a2, b1 := newScenario()
	d := domain.NewDispatcher(spatial, registry, 5000, 0, testLogger())

	err := d.Publish(context.Background(), publishedInterest([]string{"sailing"}))
	require.NoError(t, err)

	assert.Equal(t, 0, a1.count())
	assert.Equal(t, 0, a2.count())
	assert.Equal(t, 0, b1.count())
}

func TestPublishMissingLocationIsValidationError(t *testing.T) {
	spatial, registry, _, _, _ := newScenario()
	d := domain.NewDispatcher(spatial, registry, 5000, 0, testLogger())

	interest := publishedInterest([]string{"chess"})
	interest.Location = nil

	err := d.Publish(context.Background(), interest)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, spatial.calls)
}

func TestPublishSwallowsSpatialFailure(t *testing.T) {
	spatial, registry, a1, _, _ := newScenario()
	spatial.err = context.DeadlineExceeded
	d := domain.NewDispatcher(spatial, registry, 5000, 0, testLogger())

	// A timed-out spatial store abandons fanout for this post only; the
	// caller never sees the failure.
	err := d.Publish(context.Background(), publishedInterest([]string{"chess"}))
	require.NoError(t, err)
	assert.Equal(t, 0, a1.count())
}

func TestPublishContinuesPastFailedConnection(t *testing.T) {
	spatial, registry, a1, a2, b1 := newScenario()
	a1.err = errors.New("connection closed")
	d := domain.NewDispatcher(spatial, registry, 5000, 0, testLogger())

	err := d.Publish(context.Background(), publishedInterest([]string{"chess"}))
	require.NoError(t, err)

	// The broken connection is skipped; every other recipient still gets
	// its delivery.
	assert.Equal(t, 0, a1.count())
	assert.Equal(t, 1, a2.count())
	assert.Equal(t, 1, b1.count())
}

func TestPublishDefaultRadius(t *testing.T) {
	spatial, registry, a1, _, b1 := newScenario()

	// Zero config falls back to the 5000 m default, which still reaches A
	// and B but not C.
	d := domain.NewDispatcher(spatial, registry, 0, 0, testLogger())
	err := d.Publish(context.Background(), publishedInterest([]string{"chess"}))
	require.NoError(t, err)

	assert.Equal(t, 1, a1.count())
	assert.Equal(t, 1, b1.count())
}
