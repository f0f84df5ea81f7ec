package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// MemoryURL selects the in-memory store instead of PostgreSQL.
const MemoryURL = "memory://"

// Store is the persistence the service needs. DB and Memory implement it.
type Store interface {
	UserExists(ctx context.Context, username string) (bool, error)
	UserIsOperator(ctx context.Context, username string) (bool, error)
	UserIsOTPEnabled(ctx context.Context, username string) (bool, error)
	UserInsert(ctx context.Context, username string, passwordHash []byte, isOperator bool) error
	UserPasswordHashGet(ctx context.Context, username string) ([]byte, error)
	UserPasswordHashSet(ctx context.Context, username string, newHash []byte) error
	UserTableGet(ctx context.Context) ([]User, error)
	UserOTPSecretInsert(ctx context.Context, username string, otpSecret []byte) error
	UserOTPSecretGet(ctx context.Context, username string) ([]byte, error)
	UserOTPSecretDelete(ctx context.Context, username string) error
	SignatureInsert(ctx context.Context, rec SignatureRecord) (int64, error)
	SignatureList(ctx context.Context, limit int) ([]SignatureRecord, error)
}

var (
	_ Store = DB{}
	_ Store = (*Memory)(nil)
)

// ErrDuplicate is returned by Memory when a username is taken.
var ErrDuplicate = errors.New("db: duplicate key")

// Memory is a Store that lives in process memory. Nothing survives a restart.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]User
	otp        map[string][]byte
	signatures []SignatureRecord
}

func NewMemory() *Memory {
	return &Memory{users: make(map[string]User), otp: make(map[string][]byte)}
}

func (m *Memory) UserExists(_ context.Context, username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[username]
	return ok, nil
}

func (m *Memory) UserIsOperator(_ context.Context, username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return false, ErrNotFound
	}
	return u.IsOperator, nil
}

func (m *Memory) UserIsOTPEnabled(_ context.Context, username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.otp[username]
	return ok, nil
}

func (m *Memory) UserInsert(_ context.Context, username string, passwordHash []byte, isOperator bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; ok {
		return errors.Wrapf(ErrDuplicate, "user %q", username)
	}
	m.users[username] = User{Username: username, PasswordHash: clone(passwordHash), IsOperator: isOperator}
	return nil
}

func (m *Memory) UserPasswordHashGet(_ context.Context, username string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u.PasswordHash), nil
}

func (m *Memory) UserPasswordHashSet(_ context.Context, username string, newHash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = clone(newHash)
	m.users[username] = u
	return nil
}

func (m *Memory) UserTableGet(_ context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *Memory) UserOTPSecretInsert(_ context.Context, username string, otpSecret []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; !ok {
		return errors.Wrapf(ErrNotFound, "user %q", username)
	}
	if _, ok := m.otp[username]; ok {
		return errors.Wrapf(ErrDuplicate, "otp for %q", username)
	}
	m.otp[username] = clone(otpSecret)
	return nil
}

func (m *Memory) UserOTPSecretGet(_ context.Context, username string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.otp[username]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func (m *Memory) UserOTPSecretDelete(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.otp, username)
	return nil
}

func (m *Memory) SignatureInsert(_ context.Context, rec SignatureRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[rec.Username]; !ok {
		return 0, errors.Wrapf(ErrNotFound, "user %q", rec.Username)
	}
	rec.ID = int64(len(m.signatures) + 1)
	rec.Hash = clone(rec.Hash)
	rec.Signature = clone(rec.Signature)
	rec.CreatedAt = time.Now().UTC()
	m.signatures = append(m.signatures, rec)
	return rec.ID, nil
}

func (m *Memory) SignatureList(_ context.Context, limit int) ([]SignatureRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SignatureRecord, 0, limit)
	for i := len(m.signatures) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.signatures[i])
	}
	return out, nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
