package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/internal/config"
	"github.com/temcen/moviegraph/pkg/models"
)

const rateLimitTimeout = 2 * time.Second

// RateLimitService keeps a sliding window of request timestamps per user in
// a Redis sorted set. When Redis cannot be reached requests are allowed.
type RateLimitService struct {
	config      *config.Config
	logger      *logrus.Logger
	redisClient redis.Cmdable
	now         func() time.Time
}

func NewRateLimitService(cfg *config.Config, logger *logrus.Logger, redisClient redis.Cmdable) *RateLimitService {
	return &RateLimitService{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
		now:         time.Now,
	}
}

func (s *RateLimitService) CheckLimit(ctx context.Context, userID, userTier string) *models.RateLimitInfo {
	limit := s.limitForTier(userTier)
	window := s.config.Auth.RateLimit.Window
	now := s.now()
	resetTime := now.Add(window).Unix()

	if s.redisClient == nil {
		return &models.RateLimitInfo{Limit: limit, Remaining: limit, ResetTime: resetTime}
	}

	key := fmt.Sprintf("rate_limit:user:%s", userID)
	windowStart := now.Add(-window)

	ctx, cancel := context.WithTimeout(ctx, rateLimitTimeout)
	defer cancel()

	pipe := s.redisClient.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Rate limit check failed, allowing request")
		return &models.RateLimitInfo{Limit: limit, Remaining: limit, ResetTime: resetTime}
	}

	// The count was taken before this request was added.
	remaining := limit - int(countCmd.Val()) - 1
	if remaining < -1 {
		remaining = -1
	}

	return &models.RateLimitInfo{
		Limit:     limit,
		Remaining: remaining,
		ResetTime: resetTime,
	}
}

// IsAllowed reports whether the request fits in the user's window.
func (s *RateLimitService) IsAllowed(ctx context.Context, userID, userTier string) (bool, *models.RateLimitInfo) {
	info := s.CheckLimit(ctx, userID, userTier)
	allowed := info.Remaining >= 0
	if info.Remaining < 0 {
		info.Remaining = 0
	}
	return allowed, info
}

func (s *RateLimitService) limitForTier(userTier string) int {
	switch userTier {
	case "premium":
		return s.config.Auth.RateLimit.Premium
	default:
		return s.config.Auth.RateLimit.Default
	}
}
