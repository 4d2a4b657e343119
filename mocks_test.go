package auth_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	auth "github.com/goliatone/go-auth-core"
)

const testSecret = "test-signing-key-0123456789abcdef"

// MockCredentialStore implements auth.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

var _ auth.CredentialStore = (*MockCredentialStore)(nil)

func (m *MockCredentialStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockCredentialStore) FindByID(ctx context.Context, id string) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockCredentialStore) Create(ctx context.Context, user *auth.User, password string) (*auth.User, error) {
	args := m.Called(ctx, user, password)
	created, _ := args.Get(0).(*auth.User)
	return created, args.Error(1)
}

func (m *MockCredentialStore) VerifyPassword(ctx context.Context, user *auth.User, password string) (bool, error) {
	args := m.Called(ctx, user, password)
	return args.Bool(0), args.Error(1)
}

func (m *MockCredentialStore) GetRoles(ctx context.Context, user *auth.User) ([]string, error) {
	args := m.Called(ctx, user)
	roles, _ := args.Get(0).([]string)
	return roles, args.Error(1)
}

func (m *MockCredentialStore) AddRole(ctx context.Context, user *auth.User, role string) error {
	args := m.Called(ctx, user, role)
	return args.Error(0)
}

func (m *MockCredentialStore) RemoveRoles(ctx context.Context, user *auth.User, roles []string) error {
	args := m.Called(ctx, user, roles)
	return args.Error(0)
}

func (m *MockCredentialStore) ReplaceRoles(ctx context.Context, user *auth.User, roles []string) error {
	args := m.Called(ctx, user, roles)
	return args.Error(0)
}

func (m *MockCredentialStore) RoleExists(ctx context.Context, role string) (bool, error) {
	args := m.Called(ctx, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockCredentialStore) EnsureRoles(ctx context.Context, roles []string) error {
	args := m.Called(ctx, roles)
	return args.Error(0)
}

// MockConfig implements auth.Config
type MockConfig struct {
	SigningKey        []byte
	PreviousKeys      [][]byte
	TokenExpiration   time.Duration
	Issuer            string
	Audience          []string
	PasswordMinLength int
	DeclaredRoles     []string
	AdminRole         string
}

var _ auth.Config = MockConfig{}

func newMockConfig() MockConfig {
	return MockConfig{
		SigningKey:        []byte(testSecret),
		TokenExpiration:   time.Hour,
		PasswordMinLength: auth.DefaultPasswordMinLength,
		DeclaredRoles:     auth.DefaultRoles(),
		AdminRole:         auth.RoleNameAdmin,
	}
}

func (m MockConfig) GetSigningKey() []byte { return m.SigningKey }
func (m MockConfig) GetPreviousSigningKeys() [][]byte { return m.PreviousKeys }
func (m MockConfig) GetTokenExpiration() time.Duration { return m.TokenExpiration }
func (m MockConfig) GetIssuer() string { return m.Issuer }
func (m MockConfig) GetAudience() []string { return m.Audience }
func (m MockConfig) GetPasswordMinLength() int { return m.PasswordMinLength }
func (m MockConfig) GetDeclaredRoles() []string { return m.DeclaredRoles }
func (m MockConfig) GetAdminRole() string { return m.AdminRole }

// MockIdentity implements auth.Identity for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Username() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) FullName() string {
	args := m.Called()
	return args.String(0)
}

type logEntry struct {
	Level string
	Msg   string
	Args  []any
}

// recordingLogger implements auth.Logger and keeps every entry
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{Level: level, Msg: msg, Args: args})
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any) { l.add("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any) { l.add("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *recordingLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Level == level && e.Msg == msg {
			return true
		}
	}
	return false
}

// argValue returns the value logged for key in the first entry with msg
func (l *recordingLogger) argValue(msg, key string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Msg != msg {
			continue
		}
		for i := 0; i+1 < len(e.Args); i += 2 {
			if fmt.Sprint(e.Args[i]) == key {
				return fmt.Sprint(e.Args[i+1])
			}
		}
	}
	return ""
}

// recordingSink implements auth.ActivitySink
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
	err    error
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}
