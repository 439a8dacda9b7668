// Package auth holds hand-written doubles for the auth ports.
package auth

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	"github.com/target/opscrm-api/internal/ports"
)

var (
	_ ports.AuthProvider   = (*MockAuthProvider)(nil)
	_ ports.SessionStore   = (*MemorySessionStore)(nil)
	_ ports.RoleMapper     = (*StaticRoleMapper)(nil)
	_ ports.StaffDirectory = (*StaffRecorder)(nil)
)

// ErrNotFound is returned by MemorySessionStore for unknown ids.
var ErrNotFound = errors.New("not found")

func defaultIdentity() domainauth.Identity {
	return domainauth.Identity{
		UserID:    "mock-user-1",
		FirstName: "Mock",
		LastName:  "User",
		Email:     "mock.user@example.com",
		Groups:    []string{"operations"},
	}
}

// MockAuthProvider stands in for an IdP. Without overrides Begin numbers its
// state and nonce per call ("state-1", "nonce-1", ...) and Exchange returns
// DefaultUser valid for one hour.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	AuthURL     string
	StatePrefix string
	NoncePrefix string
	DefaultUser domainauth.Identity

	mu    sync.Mutex
	begun int
}

func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{DefaultUser: defaultIdentity()}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.mu.Lock()
	m.begun++
	n := m.begun
	m.mu.Unlock()

	return cmp.Or(m.AuthURL, "https://mock-idp/auth"),
		fmt.Sprintf("%s-%d", cmp.Or(m.StatePrefix, "state"), n),
		fmt.Sprintf("%s-%d", cmp.Or(m.NoncePrefix, "nonce"), n),
		nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	id := m.DefaultUser
	if id.UserID == "" {
		id = defaultIdentity()
	}
	id.Groups = slices.Clone(id.Groups)
	id.ExpiresAt = time.Now().Add(time.Hour)
	return id, nil
}

// MemorySessionStore keeps sessions in a map. Safe for concurrent use.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domainauth.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string]domainauth.Session{}}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// StaticRoleMapper matches groups exactly. Admin outranks operations, then
// qc_manager, then training.
type StaticRoleMapper struct {
	AdminGroup      string
	OperationsGroup string
	TrainingGroup   string
	QCManagerGroup  string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	ranked := []struct {
		group string
		role  domainauth.Role
	}{
		{m.AdminGroup, domainauth.RoleAdmin},
		{m.OperationsGroup, domainauth.RoleOperations},
		{m.QCManagerGroup, domainauth.RoleQCManager},
		{m.TrainingGroup, domainauth.RoleTraining},
	}
	for _, r := range ranked {
		if r.group != "" && slices.Contains(groups, r.group) {
			return r.role
		}
	}
	return domainauth.RoleGuest
}

// StaffRecorder records every SyncFromSession call and returns Err.
type StaffRecorder struct {
	mu     sync.Mutex
	Synced []domainauth.Session
	Err    error
}

func (r *StaffRecorder) SyncFromSession(_ context.Context, sess domainauth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Synced = append(r.Synced, sess)
	return r.Err
}
