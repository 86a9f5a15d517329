package ratelimit

import (
	"context"
	"time"
)

// QueryCounter counts a member's logged queries after a point in time.
type QueryCounter interface {
	CountMemberQueriesSince(ctx context.Context, memberID string, since time.Time) (int, error)
}

// MemberQuota limits how many lookups a member may start in a trailing window.
// A zero limit disables the check.
type MemberQuota struct {
	counter QueryCounter
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewMemberQuota(counter QueryCounter, limit int, window time.Duration) *MemberQuota {
	return &MemberQuota{counter: counter, limit: limit, window: window, now: time.Now}
}

// Exceeded reports whether the member already used up the quota.
func (q *MemberQuota) Exceeded(ctx context.Context, memberID string) (bool, error) {
	if q == nil || q.limit <= 0 {
		return false, nil
	}
	count, err := q.counter.CountMemberQueriesSince(ctx, memberID, q.now().Add(-q.window))
	if err != nil {
		return false, err
	}
	return count >= q.limit, nil
}
