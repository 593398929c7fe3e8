package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/yakoovad/scrapyard-registration/internal/db"
	"github.com/yakoovad/scrapyard-registration/internal/model"
)

var teamColumns = []any{
	"id", "name", "size", "learn_about_us", "status", "leader_id", "teacher_id", "member_ids",
	"team_affidavit", "parents_affidavit", "created_at", "updated_at", "completed_at",
}

type TeamPatch struct {
	ID               string
	Name             *string
	Status           *model.TeamStatus
	TeamAffidavit    *string
	ParentsAffidavit *string
	CompletedAt      *time.Time
}

type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	Get(ctx context.Context, id string) (*model.Team, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*model.Team, error)
	GetActiveByName(ctx context.Context, name string) (*model.Team, error)
	Patch(ctx context.Context, patch *TeamPatch) (*model.Team, error)
	ListByStatus(ctx context.Context, statuses []model.TeamStatus) ([]*model.Team, error)
	LatestCompleted(ctx context.Context, status model.TeamStatus) (*model.Team, error)
}

type pgxTeamRepository struct {
	pool *pgxpool.Pool
}

func NewPgxTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &pgxTeamRepository{pool: pool}
}

func scanTeam(row pgx.Row) (*model.Team, error) {
	t := &model.Team{}
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Size,
		&t.LearnAboutUs,
		&t.Status,
		&t.LeaderID,
		&t.TeacherID,
		&t.MemberIDs,
		&t.TeamAffidavit,
		&t.ParentsAffidavit,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (p *pgxTeamRepository) queryOne(ctx context.Context, q query) (*model.Team, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}
	return scanTeam(e.QueryRow(ctx, sql, args...))
}

func (p *pgxTeamRepository) queryMany(ctx context.Context, q query) ([]*model.Team, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Team, error) {
		return scanTeam(row)
	})
}

func (p *pgxTeamRepository) Create(ctx context.Context, team *model.Team) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("team", "id", "name", "size", "learn_about_us", "status", "leader_id", "teacher_id", "member_ids"),
		im.Values(
			psql.Arg(team.ID),
			psql.Arg(team.Name),
			psql.Arg(team.Size),
			psql.Arg(team.LearnAboutUs),
			psql.Arg(string(team.Status)),
			psql.Arg(team.LeaderID),
			psql.Arg(team.TeacherID),
			psql.Arg(team.MemberIDs),
		),
		im.Returning("created_at", "updated_at"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	err = e.QueryRow(ctx, sql, args...).Scan(&team.CreatedAt, &team.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}

	return err
}

func (p *pgxTeamRepository) Get(ctx context.Context, id string) (*model.Team, error) {
	return p.queryOne(ctx, psql.Select(
		sm.Columns(teamColumns...),
		sm.From("team"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	))
}

func (p *pgxTeamRepository) GetForUpdate(ctx context.Context, id string) (*model.Team, error) {
	return p.queryOne(ctx, psql.Select(
		sm.Columns(teamColumns...),
		sm.From("team"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
		sm.ForUpdate("team"),
	))
}

func (p *pgxTeamRepository) GetActiveByName(ctx context.Context, name string) (*model.Team, error) {
	return p.queryOne(ctx, psql.Select(
		sm.Columns(teamColumns...),
		sm.From("team"),
		sm.Where(
			psql.Quote("name").EQ(psql.Arg(name)).
				And(psql.Quote("status").NE(psql.Arg(string(model.TeamStatusRejected)))),
		),
		sm.Limit(1),
	))
}

func (p *pgxTeamRepository) Patch(ctx context.Context, patch *TeamPatch) (*model.Team, error) {
	sets := make([]bob.Mod[*dialect.UpdateQuery], 0, 6)

	if patch.Name != nil {
		sets = append(sets, um.SetCol("name").ToArg(*patch.Name))
	}
	if patch.Status != nil {
		sets = append(sets, um.SetCol("status").ToArg(string(*patch.Status)))
	}
	if patch.TeamAffidavit != nil {
		sets = append(sets, um.SetCol("team_affidavit").ToArg(*patch.TeamAffidavit))
	}
	if patch.ParentsAffidavit != nil {
		sets = append(sets, um.SetCol("parents_affidavit").ToArg(*patch.ParentsAffidavit))
	}
	if patch.CompletedAt != nil {
		sets = append(sets, um.SetCol("completed_at").ToArg(*patch.CompletedAt))
	}
	sets = append(sets, um.SetCol("updated_at").To(psql.Raw("now()")))

	q := psql.Update(
		um.Table("team"),
		um.Where(psql.Quote("id").EQ(psql.Arg(patch.ID))),
		um.Returning(teamColumns...),
	)
	q.Apply(sets...)

	t, err := p.queryOne(ctx, q)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, ErrAlreadyExists
	}
	return t, err
}

func (p *pgxTeamRepository) ListByStatus(ctx context.Context, statuses []model.TeamStatus) ([]*model.Team, error) {
	return p.queryMany(ctx, listByStatusQuery(statuses))
}

func listByStatusQuery(statuses []model.TeamStatus) query {
	in := make([]bob.Expression, 0, len(statuses))
	for _, s := range statuses {
		in = append(in, psql.Arg(string(s)))
	}

	return psql.Select(
		sm.Columns(teamColumns...),
		sm.From("team"),
		sm.Where(psql.Quote("status").In(in...)),
		sm.OrderBy(psql.Quote("completed_at")).Desc().NullsLast(),
		sm.OrderBy(psql.Quote("created_at")).Desc(),
	)
}

func (p *pgxTeamRepository) LatestCompleted(ctx context.Context, status model.TeamStatus) (*model.Team, error) {
	return p.queryOne(ctx, psql.Select(
		sm.Columns(teamColumns...),
		sm.From("team"),
		sm.Where(
			psql.Quote("status").EQ(psql.Arg(string(status))).
				And(psql.Quote("completed_at").IsNotNull()),
		),
		sm.OrderBy(psql.Quote("completed_at")).Desc(),
		sm.Limit(1),
	))
}
