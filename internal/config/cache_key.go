package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// GuestQuizLimitKey returns the limiter identifier for guest quiz generation from one address.
func (r *CacheKeyStruct) GuestQuizLimitKey(address string) string {
	return fmt.Sprintf("guest:quiz:%s", address)
}

// RateLimitKey returns the Redis key holding the window counter for a limiter identifier.
func (r *CacheKeyStruct) RateLimitKey(identifier string) string {
	return fmt.Sprintf("ratelimit:%s", identifier)
}

// UserStreakLockKey returns the key used to coalesce repeated streak updates for a user on one day.
func (r *CacheKeyStruct) UserStreakLockKey(userID uuid.UUID, day string) string {
	return fmt.Sprintf("user:%s:streak:%s", userID, day)
}

var CacheKey = NewCacheKeyStruct()
