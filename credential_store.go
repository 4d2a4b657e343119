package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// BunCredentialStore is a CredentialStore backed by a bun database.
type BunCredentialStore struct {
	repo   RepositoryManager
	hasher PasswordAuthenticator
	logger Logger
}

var _ CredentialStore = (*BunCredentialStore)(nil)

// NewCredentialStore returns a store over repo using bcrypt at the
// default cost.
func NewCredentialStore(repo RepositoryManager) *BunCredentialStore {
	return &BunCredentialStore{
		repo:   repo,
		hasher: NewBcryptHasher(passwordHashCost()),
		logger: defLogger{},
	}
}

func (s *BunCredentialStore) WithLogger(logger Logger) *BunCredentialStore {
	s.logger = normalizeLogger(logger)
	return s
}

func (s *BunCredentialStore) WithPasswordHasher(hasher PasswordAuthenticator) *BunCredentialStore {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

func (s *BunCredentialStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeError(err, "find user by email")
	}

	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, s.lookupError(err, "find user by email", map[string]any{"email": email})
	}
	return user, nil
}

func (s *BunCredentialStore) FindByID(ctx context.Context, id string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeError(err, "find user by id")
	}

	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrIdentityNotFound.Clone().WithMetadata(map[string]any{"user_id": id})
	}

	user, err := s.repo.Users().GetByID(ctx, uid)
	if err != nil {
		return nil, s.lookupError(err, "find user by id", map[string]any{"user_id": id})
	}
	return user, nil
}

// Create hashes password and stores user. Email uniqueness is checked
// against the normalized form; a unique violation raised by a concurrent
// insert maps to the same error as the pre-check.
func (s *BunCredentialStore) Create(ctx context.Context, user *User, password string) (*User, error) {
	if user == nil {
		return nil, NewError(KindValidation, "user is required")
	}

	if password == "" {
		return nil, ErrNoEmptyString
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		if IsKind(err, KindValidation) {
			return nil, err
		}
		return nil, WrapError(err, KindInternal, "unable to hash password")
	}

	record := *user
	record.PasswordHash = hash

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.repo.Users().GetByEmailTx(ctx, tx, record.Email); err == nil {
			return ErrDuplicateEmail.Clone().WithMetadata(map[string]any{"email": record.Email})
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if _, err := s.repo.Users().GetByUsernameTx(ctx, tx, record.Username); err == nil {
			return ErrDuplicateUsername.Clone().WithMetadata(map[string]any{"username": record.Username})
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		_, err := s.repo.Users().CreateTx(ctx, tx, &record)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(strings.ToLower(err.Error()), "username") {
				return nil, ErrDuplicateUsername.Clone().WithMetadata(map[string]any{"username": record.Username})
			}
			return nil, ErrDuplicateEmail.Clone().WithMetadata(map[string]any{"email": record.Email})
		}
		return nil, storeError(err, "create user")
	}

	s.logger.Debug("Credential store created user", "user_id", record.ID.String())

	return &record, nil
}

// VerifyPassword compares password with the stored verifier. A mismatch
// is reported as false with no error.
func (s *BunCredentialStore) VerifyPassword(ctx context.Context, user *User, password string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, storeError(err, "verify password")
	}

	if user == nil || user.PasswordHash == "" {
		return false, nil
	}

	if err := s.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, WrapError(err, KindInternal, "unable to verify password")
	}

	return true, nil
}

func (s *BunCredentialStore) GetRoles(ctx context.Context, user *User) ([]string, error) {
	if user == nil {
		return nil, ErrIdentityNotFound
	}

	if err := ctx.Err(); err != nil {
		return nil, storeError(err, "get roles")
	}

	roles, err := s.repo.Roles().ListForUserTx(ctx, s.repo.DB(), user.ID)
	if err != nil {
		return nil, storeError(err, "get roles")
	}
	return roles, nil
}

// AddRole adds role to the user's set, a no-op when already held
func (s *BunCredentialStore) AddRole(ctx context.Context, user *User, role string) error {
	if user == nil {
		return ErrIdentityNotFound
	}

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.requireRoles(ctx, tx, []string{role}); err != nil {
			return err
		}
		return s.repo.Roles().AddTx(ctx, tx, user.ID, role)
	})

	return storeError(err, "add role")
}

func (s *BunCredentialStore) RemoveRoles(ctx context.Context, user *User, roles []string) error {
	if user == nil {
		return ErrIdentityNotFound
	}

	roles = NormalizeRoles(roles)
	if len(roles) == 0 {
		return nil
	}

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Roles().RemoveTx(ctx, tx, user.ID, roles)
	})

	return storeError(err, "remove roles")
}

// ReplaceRoles swaps the user's role set for roles. Unknown roles abort
// the transaction and leave the previous set untouched.
func (s *BunCredentialStore) ReplaceRoles(ctx context.Context, user *User, roles []string) error {
	if user == nil {
		return ErrIdentityNotFound
	}

	roles = NormalizeRoles(roles)

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.requireRoles(ctx, tx, roles); err != nil {
			return err
		}
		return s.repo.Roles().ReplaceTx(ctx, tx, user.ID, roles)
	})

	return storeError(err, "replace roles")
}

func (s *BunCredentialStore) RoleExists(ctx context.Context, role string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, storeError(err, "role exists")
	}

	ok, err := s.repo.Roles().ExistsTx(ctx, s.repo.DB(), role)
	if err != nil {
		return false, storeError(err, "role exists")
	}
	return ok, nil
}

// EnsureRoles creates any missing declared roles
func (s *BunCredentialStore) EnsureRoles(ctx context.Context, roles []string) error {
	roles = NormalizeRoles(roles)
	if len(roles) == 0 {
		return nil
	}

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Roles().EnsureTx(ctx, tx, roles)
	})
	if err != nil {
		return storeError(err, "ensure roles")
	}

	s.logger.Debug("Credential store ensured roles", "roles", strings.Join(roles, ","))
	return nil
}

func (s *BunCredentialStore) requireRoles(ctx context.Context, tx bun.IDB, roles []string) error {
	missing := []string{}
	for _, role := range roles {
		ok, err := s.repo.Roles().ExistsTx(ctx, tx, role)
		if err != nil {
			return err
		}
		if !ok {
			missing = append(missing, role)
		}
	}

	if len(missing) > 0 {
		return ErrUnknownRole.Clone().WithMetadata(map[string]any{
			"roles": lo.Uniq(missing),
		})
	}

	return nil
}

func (s *BunCredentialStore) lookupError(err error, op string, md map[string]any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrIdentityNotFound.Clone().WithMetadata(md)
	}
	s.logger.Error("Credential store lookup failed", "op", op, "error", err)
	return storeError(err, op)
}

// storeError leaves package errors untouched and classifies everything
// else as a transient store failure.
func storeError(err error, op string) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	return TransientError(err, "credential store: "+op)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.IntegrityViolation()
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
