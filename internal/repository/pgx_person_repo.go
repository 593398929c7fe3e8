package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/yakoovad/scrapyard-registration/internal/db"
	"github.com/yakoovad/scrapyard-registration/internal/model"
)

var personColumns = []any{
	"id", "team_id", "role", "is_leader", "name_zh", "name_en", "email", "email_verified",
	"telephone", "profile", "checked_in", "created_at", "updated_at",
}

type PersonRepository interface {
	Get(ctx context.Context, id string) (*model.Person, error)
	ListByTeam(ctx context.Context, teamID string) ([]*model.Person, error)
	// Upsert overwrites core columns and merges profile keys into the stored profile.
	// email_verified survives only when the email is unchanged.
	Upsert(ctx context.Context, person *model.Person) (*model.Person, error)
	// MarkEmailVerified only succeeds while the stored email still equals email.
	MarkEmailVerified(ctx context.Context, id, email string) error
	SetCheckedIn(ctx context.Context, id string, checkedIn bool) error
	ResetCheckIns(ctx context.Context) (int64, error)
}

type pgxPersonRepository struct {
	pool *pgxpool.Pool
}

func NewPgxPersonRepository(pool *pgxpool.Pool) PersonRepository {
	return &pgxPersonRepository{pool: pool}
}

func scanPerson(row pgx.Row) (*model.Person, error) {
	p := &model.Person{}
	err := row.Scan(
		&p.ID,
		&p.TeamID,
		&p.Role,
		&p.IsLeader,
		&p.NameZh,
		&p.NameEn,
		&p.Email,
		&p.EmailVerified,
		&p.Telephone,
		&p.Profile,
		&p.CheckedIn,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *pgxPersonRepository) Get(ctx context.Context, id string) (*model.Person, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(personColumns...),
		sm.From("person"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	return scanPerson(e.QueryRow(ctx, sql, args...))
}

func (p *pgxPersonRepository) ListByTeam(ctx context.Context, teamID string) ([]*model.Person, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(personColumns...),
		sm.From("person"),
		sm.Where(psql.Quote("team_id").EQ(psql.Arg(teamID))),
		sm.OrderBy(psql.Quote("created_at")),
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

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Person, error) {
		return scanPerson(row)
	})
}

func (p *pgxPersonRepository) Upsert(ctx context.Context, person *model.Person) (*model.Person, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sql, args, err := upsertPersonQuery(person).Build(ctx)
	if err != nil {
		return nil, err
	}

	return scanPerson(e.QueryRow(ctx, sql, args...))
}

// upsertPersonQuery inserts unverified and, on conflict, keeps email_verified
// only while the stored email is unchanged.
func upsertPersonQuery(person *model.Person) query {
	profile := person.Profile
	if profile == nil {
		profile = map[string]any{}
	}

	return psql.Insert(
		im.Into("person", "id", "team_id", "role", "is_leader", "name_zh", "name_en", "email",
			"email_verified", "telephone", "profile"),
		im.Values(
			psql.Arg(person.ID),
			psql.Arg(person.TeamID),
			psql.Arg(string(person.Role)),
			psql.Arg(person.IsLeader),
			psql.Arg(person.NameZh),
			psql.Arg(person.NameEn),
			psql.Arg(person.Email),
			psql.Arg(false),
			psql.Arg(person.Telephone),
			psql.Arg(profile),
		),
		im.OnConflict(psql.Quote("id")).DoUpdate(
			im.SetCol("is_leader").ToArg(person.IsLeader),
			im.SetCol("name_zh").ToArg(person.NameZh),
			im.SetCol("name_en").ToArg(person.NameEn),
			im.SetCol("email").ToArg(person.Email),
			im.SetCol("email_verified").To(psql.Raw("(person.email = EXCLUDED.email AND person.email_verified)")),
			im.SetCol("telephone").ToArg(person.Telephone),
			im.SetCol("profile").To(psql.Raw("person.profile || EXCLUDED.profile")),
			im.SetCol("updated_at").To(psql.Raw("now()")),
		),
		im.Returning(personColumns...),
	)
}

func (p *pgxPersonRepository) MarkEmailVerified(ctx context.Context, id, email string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("person"),
		um.SetCol("email_verified").ToArg(true),
		um.SetCol("updated_at").To(psql.Raw("now()")),
		um.Where(
			psql.Quote("id").EQ(psql.Arg(id)).
				And(psql.Quote("email").EQ(psql.Arg(email))),
		),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *pgxPersonRepository) SetCheckedIn(ctx context.Context, id string, checkedIn bool) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("person"),
		um.SetCol("checked_in").ToArg(checkedIn),
		um.SetCol("updated_at").To(psql.Raw("now()")),
		um.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *pgxPersonRepository) ResetCheckIns(ctx context.Context) (int64, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("person"),
		um.SetCol("checked_in").ToArg(false),
		um.Where(psql.Quote("checked_in").EQ(psql.Arg(true))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return 0, err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
