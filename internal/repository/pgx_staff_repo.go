package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/yakoovad/scrapyard-registration/internal/db"
	"github.com/yakoovad/scrapyard-registration/internal/model"
)

type StaffRepository interface {
	Get(ctx context.Context, email string) (*model.Staff, error)
	Upsert(ctx context.Context, staff *model.Staff) error
}

type pgxStaffRepository struct {
	pool *pgxpool.Pool
}

func NewPgxStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &pgxStaffRepository{pool: pool}
}

func (p *pgxStaffRepository) Get(ctx context.Context, email string) (*model.Staff, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("email", "name", "active"),
		sm.From("staff"),
		sm.Where(psql.Quote("email").EQ(psql.Arg(email))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	s := &model.Staff{}
	if err = e.QueryRow(ctx, sql, args...).Scan(&s.Email, &s.Name, &s.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (p *pgxStaffRepository) Upsert(ctx context.Context, staff *model.Staff) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("staff", "email", "name", "active"),
		im.Values(psql.Arg(staff.Email), psql.Arg(staff.Name), psql.Arg(staff.Active)),
		im.OnConflict(psql.Quote("email")).DoUpdate(
			im.SetCol("name").ToArg(staff.Name),
			im.SetCol("active").ToArg(staff.Active),
		),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return err
}
