package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PGStore)(nil)

const defaultSessionWindow = 7 * 24 * time.Hour

// PGStore implements Store on PostgreSQL via database/sql.
type PGStore struct {
	db     *sql.DB
	window time.Duration
}

// PGOption configures PGStore.
type PGOption func(*PGStore)

// WithSessionWindow overrides the refresh-session liveness window. It
// should match the refresh token lifetime.
func WithSessionWindow(d time.Duration) PGOption {
	return func(s *PGStore) {
		if d > 0 {
			s.window = d
		}
	}
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB, opts ...PGOption) *PGStore {
	s := &PGStore{db: db, window: defaultSessionWindow}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PGStore) Users(context.Context) UserStore { return &userStore{db: s.db} }
func (s *PGStore) Sessions(context.Context) SessionStore {
	return &sessionStore{db: s.db, window: s.window}
}
func (s *PGStore) Audit(context.Context) AuditStore { return &auditStore{db: s.db} }

// isUniqueViolation reports whether err is a PostgreSQL duplicate-key
// error. The unique constraints on email and username are the actual
// concurrency guard for registration races.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// User store ---------------------------------------------------------------

type userStore struct{ db *sql.DB }

const userColumns = `id, email, username, password_hash, role, active, points, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.Active, &u.Points, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *userStore) Create(ctx context.Context, u *User) error {
	row := s.db.QueryRowContext(ctx,
		`insert into users(email, username, password_hash, role, active, points)
		 values($1, $2, $3, $4, $5, $6)
		 returning id, created_at`,
		u.Email, u.Username, u.PasswordHash, u.Role, u.Active, u.Points,
	)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *userStore) Find(ctx context.Context, id int64) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id))
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email = $1`, email))
}

func (s *userStore) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from users where email = $1 or username = $2)`,
		email, username,
	).Scan(&exists)
	return exists, err
}

func (s *userStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.Active, &u.Points, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (s *userStore) UpdateUsername(ctx context.Context, id int64, username string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set username = $2 where id = $1`, id, username)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return requireRow(res)
}

func (s *userStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash = $2 where id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`update users set active = $2 where id = $1`, id, active)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Session store -------------------------------------------------------------

type sessionStore struct {
	db     *sql.DB
	window time.Duration
}

func (s *sessionStore) Store(ctx context.Context, userID int64, rawToken string) error {
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_tokens(user_id, token_hash) values($1, $2)`,
		userID, HashToken(rawToken),
	)
	return err
}

func (s *sessionStore) IsValid(ctx context.Context, userID int64, rawToken string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(
			select 1 from refresh_tokens
			 where user_id = $1 and token_hash = $2
			   and created_at > now() - ($3 * interval '1 second'))`,
		userID, HashToken(rawToken), int64(s.window.Seconds()),
	).Scan(&exists)
	return exists, err
}

func (s *sessionStore) Invalidate(ctx context.Context, userID int64, rawToken string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from refresh_tokens where user_id = $1 and token_hash = $2`,
		userID, HashToken(rawToken),
	)
	return err
}

func (s *sessionStore) InvalidateAll(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`delete from refresh_tokens where user_id = $1`, userID)
	return err
}

// EnforceLimit evicts the single oldest session once the user holds max or
// more live sessions. Count check and eviction run in one statement so the
// eviction itself cannot race with another eviction for the same user.
func (s *sessionStore) EnforceLimit(ctx context.Context, userID int64, max int) error {
	if max <= 0 {
		return fmt.Errorf("invalid session limit %d", max)
	}
	_, err := s.db.ExecContext(ctx,
		`delete from refresh_tokens
		  where id in (
			select id from refresh_tokens
			 where user_id = $1
			 order by created_at asc
			 limit 1)
		    and (select count(*) from refresh_tokens
			  where user_id = $1
			    and created_at > now() - ($3 * interval '1 second')) >= $2`,
		userID, max, int64(s.window.Seconds()),
	)
	return err
}

// Audit store ---------------------------------------------------------------

type auditStore struct{ db *sql.DB }

func (s *auditStore) Append(ctx context.Context, e *AuditEvent) error {
	row := s.db.QueryRowContext(ctx,
		`insert into audit_log(actor_id, action, entity_type, entity_id, trace_id)
		 values($1, $2, $3, $4, $5)
		 returning id, created_at`,
		e.ActorID, e.Action, e.EntityType, e.EntityID, e.TraceID,
	)
	return row.Scan(&e.ID, &e.CreatedAt)
}

func (s *auditStore) AppendLoginAttempt(ctx context.Context, email string, success bool, traceID string) error {
	action := ActionLoginFailed
	if success {
		action = ActionLoginSuccess
	}
	_, err := s.db.ExecContext(ctx,
		`insert into audit_log(actor_id, action, entity_type, trace_id)
		 values((select id from users where email = $1), $2, $3, $4)`,
		email, action, EntityLogin, traceID,
	)
	return err
}

func (s *auditStore) RecentLoginAttempts(ctx context.Context, limit int) ([]AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`select id, actor_id, action, entity_type, entity_id, trace_id, created_at
		   from audit_log
		  where entity_type = $1
		  order by created_at desc
		  limit $2`,
		EntityLogin, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var (
			e       AuditEvent
			traceID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &traceID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.TraceID = traceID.String
		events = append(events, e)
	}
	return events, rows.Err()
}
