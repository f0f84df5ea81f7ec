package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("db: not found")

type DB struct {
	pool *pgxpool.Pool
}

type User struct {
	Username     string `db:"username"`
	PasswordHash []byte `db:"password_hash"`
	IsOperator   bool   `db:"is_operator"`
}

// SignatureRecord is one journal entry of the service key's signatures.
type SignatureRecord struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Algorithm string    `db:"algorithm" json:"algorithm"`
	Curve     string    `db:"curve" json:"curve"`
	Hash      []byte    `db:"hash" json:"hash"`
	Signature []byte    `db:"signature" json:"signature"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func Create(pool *pgxpool.Pool) DB {
	return DB{pool}
}

const schema = `
create table if not exists users (
	username      text primary key,
	password_hash bytea not null,
	is_operator   boolean not null default false
);

create table if not exists otp (
	username text primary key references users (username) on delete cascade,
	otp      bytea not null
);

create table if not exists signatures (
	id         bigserial primary key,
	username   text not null references users (username),
	algorithm  text not null,
	curve      text not null,
	hash       bytea not null,
	signature  bytea not null,
	created_at timestamptz not null default now()
);

create table if not exists sessions (
	token  text primary key,
	data   bytea not null,
	expiry timestamptz not null
);

create index if not exists sessions_expiry_idx on sessions (expiry);
`

// Migrate creates the tables the service needs.
func (db DB) Migrate(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, schema)
	return errors.Wrap(err, "db: migrate")
}

func (db DB) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx, "select exists (select 1 from users where username = $1)", username).Scan(&exists)
	return exists, err
}

func (db DB) UserIsOperator(ctx context.Context, username string) (bool, error) {
	var isOperator bool
	err := db.pool.QueryRow(ctx, "select is_operator from users where username = $1", username).Scan(&isOperator)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	return isOperator, err
}

func (db DB) UserIsOTPEnabled(ctx context.Context, username string) (bool, error) {
	var isOTPEnabled bool
	err := db.pool.QueryRow(ctx, "select exists (select 1 from otp where username = $1)", username).Scan(&isOTPEnabled)
	return isOTPEnabled, err
}

func (db DB) UserInsert(ctx context.Context, username string, passwordHash []byte, isOperator bool) error {
	_, err := db.pool.Exec(ctx, "insert into users (username, password_hash, is_operator) values ($1, $2, $3)", username, passwordHash, isOperator)
	return uniqueViolation(err)
}

// uniqueViolation maps a unique_violation to ErrDuplicate.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return errors.Wrap(ErrDuplicate, pgErr.Detail)
	}
	return err
}

func (db DB) UserPasswordHashGet(ctx context.Context, username string) ([]byte, error) {
	var passwordHash []byte
	err := db.pool.QueryRow(ctx, "select password_hash from users where username = $1", username).Scan(&passwordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return passwordHash, err
}

func (db DB) UserPasswordHashSet(ctx context.Context, username string, newHash []byte) error {
	tag, err := db.pool.Exec(ctx, "update users set password_hash = $1 where username = $2", newHash, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db DB) UserTableGet(ctx context.Context) ([]User, error) {
	rows, err := db.pool.Query(ctx, "select username, password_hash, is_operator from users order by username")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[User])
}

func (db DB) UserOTPSecretInsert(ctx context.Context, username string, otpSecret []byte) error {
	_, err := db.pool.Exec(ctx, "insert into otp (username, otp) values ($1, $2)", username, otpSecret)
	return uniqueViolation(err)
}

func (db DB) UserOTPSecretGet(ctx context.Context, username string) ([]byte, error) {
	var otpSecret []byte
	err := db.pool.QueryRow(ctx, "select otp from otp where username = $1", username).Scan(&otpSecret)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return otpSecret, err
}

func (db DB) UserOTPSecretDelete(ctx context.Context, username string) error {
	_, err := db.pool.Exec(ctx, "delete from otp where username = $1", username)
	return err
}

// SignatureInsert journals a signature and returns its id.
func (db DB) SignatureInsert(ctx context.Context, rec SignatureRecord) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx,
		"insert into signatures (username, algorithm, curve, hash, signature) values ($1, $2, $3, $4, $5) returning id",
		rec.Username, rec.Algorithm, rec.Curve, rec.Hash, rec.Signature).Scan(&id)
	return id, err
}

// SignatureList returns the newest limit journal entries, newest first.
func (db DB) SignatureList(ctx context.Context, limit int) ([]SignatureRecord, error) {
	rows, err := db.pool.Query(ctx,
		"select id, username, algorithm, curve, hash, signature, created_at from signatures order by id desc limit $1", limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[SignatureRecord])
}
