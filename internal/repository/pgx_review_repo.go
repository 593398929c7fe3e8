package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/yakoovad/scrapyard-registration/internal/db"
	"github.com/yakoovad/scrapyard-registration/internal/model"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	ListByTeam(ctx context.Context, teamID string) ([]*model.Review, error)
}

type pgxReviewRepository struct {
	pool *pgxpool.Pool
}

func NewPgxReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &pgxReviewRepository{pool: pool}
}

func (p *pgxReviewRepository) Create(ctx context.Context, review *model.Review) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("review", "id", "team_id", "decision", "reason", "staff_email", "from_status", "to_status"),
		im.Values(
			psql.Arg(review.ID),
			psql.Arg(review.TeamID),
			psql.Arg(string(review.Decision)),
			psql.Arg(review.Reason),
			psql.Arg(review.StaffEmail),
			psql.Arg(string(review.FromStatus)),
			psql.Arg(string(review.ToStatus)),
		),
		im.Returning("created_at"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	return e.QueryRow(ctx, sql, args...).Scan(&review.CreatedAt)
}

func (p *pgxReviewRepository) ListByTeam(ctx context.Context, teamID string) ([]*model.Review, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "team_id", "decision", "reason", "staff_email", "from_status", "to_status", "created_at"),
		sm.From("review"),
		sm.Where(psql.Quote("team_id").EQ(psql.Arg(teamID))),
		sm.OrderBy(psql.Quote("created_at")).Desc(),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Review, error) {
		r := &model.Review{}
		if err := row.Scan(&r.ID, &r.TeamID, &r.Decision, &r.Reason, &r.StaffEmail,
			&r.FromStatus, &r.ToStatus, &r.CreatedAt); err != nil {
			return nil, err
		}
		return r, nil
	})
}
