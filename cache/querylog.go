package cache

import (
	"context"
	"time"

	"saucebot/model"
	"saucebot/sauce"
	"saucebot/utils/database"

	"github.com/jmoiron/sqlx"
)

// QueryLog records every attempted lookup.
type QueryLog struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewQueryLog(db *sqlx.DB) *QueryLog {
	return &QueryLog{db: db, now: time.Now}
}

// Record appends a query for ref.
func (q *QueryLog) Record(ctx context.Context, guildID, memberID, ref string) error {
	return database.AddSauceQuery(ctx, q.db, model.SauceQuery{
		GuildID:   guildID,
		MemberID:  memberID,
		URLHash:   sauce.Hash(ref),
		QueriedAt: q.now().Unix(),
	})
}

// CountMemberQueriesSince counts the member's queries strictly after since.
func (q *QueryLog) CountMemberQueriesSince(ctx context.Context, memberID string, since time.Time) (int, error) {
	return database.CountMemberQueriesSince(ctx, q.db, memberID, since.Unix())
}

// MemberTotal is the member's lifetime query count.
func (q *QueryLog) MemberTotal(ctx context.Context, memberID string) (int, error) {
	return database.CountMemberQueries(ctx, q.db, memberID)
}

func (q *QueryLog) Total(ctx context.Context) (int, error) {
	return database.CountSauceQueries(ctx, q.db)
}

func (q *QueryLog) DistinctMembers(ctx context.Context) (int, error) {
	return database.CountDistinctMembers(ctx, q.db)
}
