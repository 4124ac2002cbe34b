// Package redisgeo adapts a Redis instance with GEO sets into the spatial
// index and user-directory surface the fanout engine consumes. User locations
// live in one GEO set, interest-post locations in another, and each user's
// declared interest tags in a plain set.
package redisgeo

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/calebwray/interest-radar/internal/domain"
)

const (
	userGeoKey     = "users:geo"
	interestGeoKey = "interests:geo"
)

func userTagsKey(userID string) string {
	return fmt.Sprintf("user:interests:%s", userID)
}

// Store implements domain.SpatialIndex on top of Redis.
type Store struct {
	client *redis.Client
}

// NewStore connects to Redis at addr, verifies the connection, and returns a
// Store. The caller should call Close when done.
func NewStore(ctx context.Context, addr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client}, nil
}

// NewStoreWithClient wraps an existing client, which the caller owns.
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Nearby returns every user with a recorded location within radiusMeters of
// origin, except excludeUserID, with their interest tags attached. Users who
// never saved a location are not in the GEO set and therefore never appear.
func (s *Store) Nearby(ctx context.Context, origin domain.Point, radiusMeters float64, excludeUserID string) ([]domain.Candidate, error) {
	locations, err := s.client.GeoSearchLocation(ctx, userGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  origin.Lng,
			Latitude:   origin.Lat,
			Radius:     radiusMeters,
			RadiusUnit: "m",
		},
		WithCoord: true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geosearch users: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(locations))
	for _, loc := range locations {
		if loc.Name == excludeUserID {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			UserID:   loc.Name,
			Location: domain.Point{Lng: loc.Longitude, Lat: loc.Latitude},
		})
	}
	if len(candidates) == 0 {
		return candidates, nil
	}

	// One round trip for all tag sets.
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringSliceCmd, len(candidates))
	for i, c := range candidates {
		cmds[i] = pipe.SMembers(ctx, userTagsKey(c.UserID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("fetch interest tags: %w", err)
	}
	for i, cmd := range cmds {
		candidates[i].Tags = cmd.Val()
	}

	return candidates, nil
}

// SetUserLocation records or moves a user's location.
func (s *Store) SetUserLocation(ctx context.Context, userID string, p domain.Point) error {
	err := s.client.GeoAdd(ctx, userGeoKey, &redis.GeoLocation{
		Name:      userID,
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
	if err != nil {
		return fmt.Errorf("geoadd user %s: %w", userID, err)
	}
	return nil
}

// UserLocation returns the user's saved location, or nil if none is recorded.
func (s *Store) UserLocation(ctx context.Context, userID string) (*domain.Point, error) {
	positions, err := s.client.GeoPos(ctx, userGeoKey, userID).Result()
	if err != nil {
		return nil, fmt.Errorf("geopos user %s: %w", userID, err)
	}
	if len(positions) == 0 || positions[0] == nil {
		return nil, nil
	}
	return &domain.Point{Lng: positions[0].Longitude, Lat: positions[0].Latitude}, nil
}

// SetUserTags replaces the user's declared interest tag set.
func (s *Store) SetUserTags(ctx context.Context, userID string, tags []string) error {
	key := userTagsKey(userID)
	pipe := s.client.Pipeline()
	pipe.Del(ctx, key)
	if len(tags) > 0 {
		members := make([]any, len(tags))
		for i, t := range tags {
			members[i] = t
		}
		pipe.SAdd(ctx, key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set interest tags for %s: %w", userID, err)
	}
	return nil
}

// UserTags returns the user's declared interest tags.
func (s *Store) UserTags(ctx context.Context, userID string) ([]string, error) {
	tags, err := s.client.SMembers(ctx, userTagsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get interest tags for %s: %w", userID, err)
	}
	return tags, nil
}

// AddInterestLocation indexes a post's location for nearby-interest queries.
func (s *Store) AddInterestLocation(ctx context.Context, interestID string, p domain.Point) error {
	err := s.client.GeoAdd(ctx, interestGeoKey, &redis.GeoLocation{
		Name:      interestID,
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
	if err != nil {
		return fmt.Errorf("geoadd interest %s: %w", interestID, err)
	}
	return nil
}

// RemoveInterestLocation drops a deleted post from the index.
func (s *Store) RemoveInterestLocation(ctx context.Context, interestID string) error {
	if err := s.client.ZRem(ctx, interestGeoKey, interestID).Err(); err != nil {
		return fmt.Errorf("zrem interest %s: %w", interestID, err)
	}
	return nil
}

// NearbyInterestIDs returns ids of posts within radiusMeters of origin,
// nearest first.
func (s *Store) NearbyInterestIDs(ctx context.Context, origin domain.Point, radiusMeters float64) ([]string, error) {
	ids, err := s.client.GeoSearch(ctx, interestGeoKey, &redis.GeoSearchQuery{
		Longitude:  origin.Lng,
		Latitude:   origin.Lat,
		Radius:     radiusMeters,
		RadiusUnit: "m",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geosearch interests: %w", err)
	}
	return ids, nil
}
