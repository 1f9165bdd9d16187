package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/datingapp/internal/domain/enums"
	"github.com/ivankudzin/datingapp/internal/domain/model"
	"github.com/ivankudzin/datingapp/internal/pkg/paging"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

const uniqueViolationCode = "23505"

const userColumns = `
	u.id,
	u.username,
	u.password_hash,
	u.role,
	u.gender,
	u.date_of_birth,
	COALESCE(u.known_as, ''),
	COALESCE(u.city, ''),
	COALESCE(u.country, ''),
	COALESCE(u.photo_key, ''),
	u.created_at,
	u.last_active`

// Placeholders $1..$8 are bound by userFilterArgs.
const userFilterWhere = `
WHERE
	($1::bigint <= 0 OR u.id <> $1)
	AND ($2::boolean = FALSE OR u.gender = $3)
	AND ($4::boolean = FALSE OR u.id = ANY($5::bigint[]))
	AND ($6::boolean = FALSE OR (u.date_of_birth > $7::date AND u.date_of_birth <= $8::date))`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) FindByID(ctx context.Context, userID int64) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return model.User{}, ErrUserNotFound
	}

	user, err := scanUser(r.pool.QueryRow(ctx, `
SELECT`+userColumns+`
FROM users u
WHERE u.id = $1
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}

	return user, nil
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	username = normalizeUsername(username)
	if username == "" {
		return model.User{}, ErrUserNotFound
	}

	user, err := scanUser(r.pool.QueryRow(ctx, `
SELECT`+userColumns+`
FROM users u
WHERE u.username = $1
`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user by username: %w", err)
	}

	return user, nil
}

func (r *UserRepo) Create(ctx context.Context, user model.User) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	user.Username = normalizeUsername(user.Username)
	if user.Username == "" {
		return model.User{}, fmt.Errorf("username is required")
	}
	if user.Role == "" {
		user.Role = enums.RoleUser
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO users (
	username,
	password_hash,
	role,
	gender,
	date_of_birth,
	known_as,
	city,
	country,
	photo_key,
	created_at,
	last_active
) VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, NULLIF($9, ''), NOW(), NOW())
RETURNING id, created_at, last_active
`,
		user.Username,
		user.PasswordHash,
		string(user.Role),
		string(user.Gender),
		user.DateOfBirth,
		user.KnownAs,
		user.City,
		user.Country,
		user.PhotoKey,
	).Scan(&user.ID, &user.Created, &user.LastActive)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return model.User{}, ErrUsernameTaken
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (r *UserRepo) TouchLastActive(ctx context.Context, userID int64, at time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE users
SET last_active = GREATEST(last_active, $2)
WHERE id = $1
`, userID, at.UTC())
	if err != nil {
		return fmt.Errorf("touch user last active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// RelatedUserIDs returns who liked userID (likers) or whom userID liked
// (likees).
func (r *UserRepo) RelatedUserIDs(ctx context.Context, userID int64, direction enums.LikeDirection) ([]int64, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	query := `SELECT liker_id FROM likes WHERE likee_id = $1`
	if direction == enums.LikeDirectionLikees {
		query = `SELECT likee_id FROM likes WHERE liker_id = $1`
	}

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list related user ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, 16)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan related user id: %w", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate related user ids: %w", rows.Err())
	}

	return ids, nil
}

// Query returns the filtered, ordered user sequence. Count and Slice run the
// same WHERE clause so the total is taken before slicing.
func (r *UserRepo) Query(filter model.UserFilter) paging.Sequence[model.User] {
	return &userSequence{pool: r.pool, filter: filter}
}

type userSequence struct {
	pool   *pgxpool.Pool
	filter model.UserFilter
}

func (s *userSequence) Count(ctx context.Context) (int, error) {
	if s.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	if err := s.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM users u`+userFilterWhere, userFilterArgs(s.filter)...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

func (s *userSequence) Slice(ctx context.Context, offset, limit int) ([]model.User, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	args := append(userFilterArgs(s.filter), string(s.filter.OrderBy), limit, offset)
	rows, err := s.pool.Query(ctx, `
SELECT`+userColumns+`
FROM users u`+userFilterWhere+`
ORDER BY
	CASE WHEN $9::text = 'created' THEN u.created_at ELSE u.last_active END DESC,
	u.id DESC
LIMIT $10 OFFSET $11
`, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate users: %w", rows.Err())
	}

	return users, nil
}

func userFilterArgs(f model.UserFilter) []any {
	ids := f.IDs
	if ids == nil {
		ids = []int64{}
	}
	return []any{
		f.ExcludeUserID,
		f.Gender != "",
		string(f.Gender),
		f.RestrictIDs,
		ids,
		f.ApplyAge,
		f.BornAfter.UTC(),
		f.BornOnOrBefore.UTC(),
	}
}

func scanUser(row pgx.Row) (model.User, error) {
	var (
		user   model.User
		role   string
		gender string
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&role,
		&gender,
		&user.DateOfBirth,
		&user.KnownAs,
		&user.City,
		&user.Country,
		&user.PhotoKey,
		&user.Created,
		&user.LastActive,
	); err != nil {
		return model.User{}, err
	}
	user.Role = enums.Role(role)
	user.Gender = enums.Gender(gender)

	return user, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
