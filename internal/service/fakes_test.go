package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"go-user-auth/internal/event"
	"go-user-auth/internal/model"
)

// memStore is an in-memory users table implementing UserStore,
// SessionStore and PermissionStore.
type memStore struct {
	mu          sync.Mutex
	users       map[string]*model.User
	roles       map[string]model.Role
	permissions map[string][]model.Permission // role name -> permissions
	err         error                         // forced failure for every call
	writes      int                           // row updates applied
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]*model.User),
		roles: map[string]model.Role{
			"User":  {ID: "role-user", Name: "User"},
			"Admin": {ID: "role-admin", Name: "Admin"},
		},
		permissions: map[string][]model.Permission{
			"User":  {{Code: "profile:update"}, {Code: "profile:read"}},
			"Admin": {{Code: "users:manage"}, {Code: "profile:read"}, {Code: "users:read"}, {Code: "profile:read"}},
		},
	}
}

// addUser seeds an ACTIVE, verified account with the given password.
func (s *memStore) addUser(id, username, password string, mutate ...func(u *model.User)) *model.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	verified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	u := &model.User{
		ID:              id,
		Username:        username,
		Email:           username + "@example.com",
		Name:            strings.ToUpper(username[:1]) + username[1:],
		PasswordHash:    string(hash),
		Status:          model.StatusActive,
		EmailVerifiedAt: &verified,
		Role:            s.roles["User"],
	}
	for _, m := range mutate {
		m(u)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = u
	return s.copyOf(u)
}

func (s *memStore) get(id string) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyOf(s.users[id])
}

func (s *memStore) copyOf(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.RefreshTokenHash != nil {
		h := *u.RefreshTokenHash
		c.RefreshTokenHash = &h
	}
	return &c
}

func (s *memStore) find(match func(u *model.User) bool) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.users {
		if match(u) {
			return s.copyOf(u), nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (s *memStore) FindByUsernameForAuth(_ context.Context, username string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return strings.EqualFold(u.Username, strings.TrimSpace(username)) })
}

func (s *memStore) FindByID(_ context.Context, id string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.ID == id })
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *memStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.FindByUsernameForAuth(ctx, username)
}

func (s *memStore) FindRoleByName(_ context.Context, name string) (*model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[name]
	if !ok {
		return nil, model.ErrRoleNotFound
	}
	return &role, nil
}

func (s *memStore) Create(_ context.Context, nu model.NewUser) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, nu.Email) || strings.EqualFold(u.Username, nu.Username) {
			return nil, model.ErrUserAlreadyExists
		}
	}
	var role model.Role
	for _, r := range s.roles {
		if r.ID == nu.RoleID {
			role = r
		}
	}
	u := &model.User{
		ID:           nu.ID,
		Username:     nu.Username,
		Email:        nu.Email,
		Name:         nu.Name,
		PhoneNumber:  nu.PhoneNumber,
		PasswordHash: nu.PasswordHash,
		Status:       model.StatusPending,
		Role:         role,
	}
	s.users[u.ID] = u
	return s.copyOf(u), nil
}

func (s *memStore) MarkEmailVerified(_ context.Context, id string, at time.Time) error {
	return s.update(id, func(u *model.User) {
		if u.EmailVerifiedAt == nil {
			u.EmailVerifiedAt = &at
		}
		if u.Status == model.StatusPending {
			u.Status = model.StatusActive
		}
	})
}

func (s *memStore) UpdateSession(_ context.Context, id string, update model.SessionUpdate) error {
	return s.update(id, func(u *model.User) {
		if update.RefreshTokenHash != nil {
			h := *update.RefreshTokenHash
			u.RefreshTokenHash = &h
		}
		if update.LastLoginAt != nil {
			at := *update.LastLoginAt
			u.LastLoginAt = &at
		}
	})
}

func (s *memStore) BumpUserVersion(_ context.Context, id string) error {
	return s.update(id, func(u *model.User) { u.UserVersion++ })
}

func (s *memStore) BumpRefreshVersion(_ context.Context, id string) error {
	return s.update(id, func(u *model.User) { u.RefreshTokenVersion++ })
}

func (s *memStore) RevokeRefreshTokens(_ context.Context, id string) error {
	return s.update(id, func(u *model.User) {
		u.RefreshTokenVersion++
		u.RefreshTokenHash = nil
	})
}

func (s *memStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *memStore) ClearRefreshHash(_ context.Context, id string) error {
	return s.update(id, func(u *model.User) { u.RefreshTokenHash = nil })
}

func (s *memStore) InvalidateSessions(_ context.Context, id string) error {
	return s.update(id, func(u *model.User) {
		u.UserVersion++
		u.RefreshTokenVersion++
		u.RefreshTokenHash = nil
	})
}

func (s *memStore) update(id string, fn func(u *model.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	u, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	fn(u)
	s.writes++
	return nil
}

func (s *memStore) GetUserPermissions(_ context.Context, userID string) ([]model.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return append([]model.Permission(nil), s.permissions[u.Role.Name]...), nil
}

type memVerifications struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMemVerifications() *memVerifications {
	return &memVerifications{tokens: make(map[string]string)}
}

func (m *memVerifications) Save(_ context.Context, tokenHash string, userID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenHash] = userID
	return nil
}

func (m *memVerifications) Consume(_ context.Context, tokenHash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.tokens[tokenHash]
	if !ok {
		return "", model.ErrTokenNotFound
	}
	delete(m.tokens, tokenHash)
	return userID, nil
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, email model.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(e event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
