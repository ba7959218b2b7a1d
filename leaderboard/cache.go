// Package leaderboard caches per-game rating standings in a Redis sorted set
// so leaderboard pages don't hit Postgres on every request. The set is
// refreshed after rated matches settle; Postgres stays the source of truth.
package leaderboard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Entry is one leaderboard row served from the cache.
type Entry struct {
	Rank   int `json:"rank"`
	UserID int `json:"user_id"`
	Rating int `json:"rating"`
}

// Cache is the rating-standings cache for a game.
type Cache interface {
	SetRating(ctx context.Context, gameID, userID, rating int) error
	GetPage(ctx context.Context, gameID, offset, limit int) ([]Entry, error)
	Count(ctx context.Context, gameID int) (int64, error)
}

type redisCache struct {
	client *redis.Client
}

// NewRedisCache returns a Cache backed by one ZSET per game.
func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) key(gameID int) string {
	return fmt.Sprintf("arena:leaderboard:%d", gameID)
}

func (c *redisCache) SetRating(ctx context.Context, gameID, userID, rating int) error {
	err := c.client.ZAdd(ctx, c.key(gameID), redis.Z{
		Score:  float64(rating),
		Member: strconv.Itoa(userID),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to cache rating for user %d: %w", userID, err)
	}
	return nil
}

func (c *redisCache) GetPage(ctx context.Context, gameID, offset, limit int) ([]Entry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(gameID),
		int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard page: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for i, result := range results {
		member, ok := result.Member.(string)
		if !ok {
			continue
		}
		userID, err := strconv.Atoi(member)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Rank:   offset + i + 1,
			UserID: userID,
			Rating: int(result.Score),
		})
	}
	return entries, nil
}

func (c *redisCache) Count(ctx context.Context, gameID int) (int64, error) {
	count, err := c.client.ZCard(ctx, c.key(gameID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count leaderboard members: %w", err)
	}
	return count, nil
}
