package model

import (
	"time"

	"github.com/google/uuid"
)

// Subscription tiers stored in users.subscription_status.
const (
	SubscriptionFree = "free"
	SubscriptionPro  = "pro"
)

// User is the member record. Quota and streak counters are maintained by
// database procedures.
type User struct {
	ID                 uuid.UUID  `json:"id"`
	Email              *string    `json:"email,omitempty"`
	SubscriptionStatus string     `json:"subscriptionStatus"`
	SubscriptionEnd    *time.Time `json:"subscriptionEnd,omitempty"`
	DailyQuizzesCount  int        `json:"dailyQuizzesCount"`
	StreakDays         int        `json:"streakDays"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// IsPro reports whether the user has an active pro subscription at now.
func (u *User) IsPro(now time.Time) bool {
	return u.SubscriptionStatus == SubscriptionPro && u.SubscriptionEnd != nil && u.SubscriptionEnd.After(now)
}
