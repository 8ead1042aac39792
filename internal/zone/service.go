package zone

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/akshu187/smartsafe/internal/db"
	"github.com/akshu187/smartsafe/internal/shared/geo"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Zones change rarely, so results are cached for ten minutes.
const cacheTTL = 10 * time.Minute

type Service struct {
	db     db.Querier
	redis  *redis.Client
	logger *zap.Logger
}

func NewService(db db.Querier, redisClient *redis.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, redis: redisClient, logger: logger}
}

// Nearby returns the active zones within radiusKm of the position,
// nearest first. Cache failures fall through to the database.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64) (NearbyResponse, error) {
	key := cacheKey(lat, lng, radiusKm)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var resp NearbyResponse
			if err := json.Unmarshal(cached, &resp); err == nil {
				return resp, nil
			}
		}
	}

	rows, err := s.db.Query(ctx, `
		SELECT zone_id, name, lat, lng, radius_m, severity, message, city, state
		FROM accident_zones
		WHERE is_active
	`)
	if err != nil {
		return NearbyResponse{}, err
	}
	defer rows.Close()

	var zones []Zone
	for rows.Next() {
		var z Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.Lat, &z.Lng, &z.RadiusM, &z.Severity, &z.Message, &z.City, &z.State); err != nil {
			return NearbyResponse{}, err
		}
		z.DistanceKm = geo.HaversineKm(lat, lng, z.Lat, z.Lng)
		if z.DistanceKm <= radiusKm {
			zones = append(zones, z)
		}
	}
	if zones == nil {
		zones = []Zone{}
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].DistanceKm < zones[j].DistanceKm })

	resp := NearbyResponse{
		Zones:        zones,
		Count:        len(zones),
		UserLocation: geo.Point{Lat: lat, Lng: lng},
		SearchRadius: radiusKm,
	}

	if s.redis != nil {
		if payload, err := json.Marshal(resp); err == nil {
			if err := s.redis.Set(ctx, key, payload, cacheTTL).Err(); err != nil {
				s.logger.Warn("zone cache write failed", zap.Error(err))
			}
		}
	}
	return resp, nil
}

func cacheKey(lat, lng, radiusKm float64) string {
	return fmt.Sprintf("zones:%.3f:%.3f:%.0f", lat, lng, radiusKm)
}
