package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Roles interface {
	List(ctx context.Context) ([]string, error)
	ExistsTx(ctx context.Context, tx bun.IDB, name string) (bool, error)
	EnsureTx(ctx context.Context, tx bun.IDB, names []string) error
	ListForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]string, error)
	AddTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, role string) error
	RemoveTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, roles []string) error
	ReplaceTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, roles []string) error
}

type roles struct {
	db *bun.DB
}

var _ Roles = (*roles)(nil)

func NewRolesRepository(db *bun.DB) Roles {
	return &roles{db: db}
}

func (r *roles) List(ctx context.Context) ([]string, error) {
	names := []string{}
	err := r.db.NewSelect().
		Model((*Role)(nil)).
		Column("name").
		Order("name ASC").
		Scan(ctx, &names)
	return names, err
}

func (r *roles) ExistsTx(ctx context.Context, tx bun.IDB, name string) (bool, error) {
	return tx.NewSelect().
		Model((*Role)(nil)).
		Where("?TableAlias.name = ?", name).
		Exists(ctx)
}

func (r *roles) EnsureTx(ctx context.Context, tx bun.IDB, names []string) error {
	now := time.Now().UTC()
	for _, name := range names {
		record := &Role{Name: name, CreatedAt: &now}
		if _, err := tx.NewInsert().
			Model(record).
			On("CONFLICT DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *roles) ListForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]string, error) {
	names := []string{}
	err := tx.NewSelect().
		Model((*UserRole)(nil)).
		Column("role_name").
		Where("?TableAlias.user_id = ?", userID).
		Order("role_name ASC").
		Scan(ctx, &names)
	return names, err
}

// AddTx inserts a membership, ignoring one that already exists
func (r *roles) AddTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, role string) error {
	now := time.Now().UTC()
	record := &UserRole{UserID: userID, RoleName: role, CreatedAt: &now}
	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	return err
}

func (r *roles) RemoveTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, roles []string) error {
	if len(roles) == 0 {
		return nil
	}
	_, err := tx.NewDelete().
		Model((*UserRole)(nil)).
		Where("user_id = ?", userID).
		Where("role_name IN (?)", bun.In(roles)).
		Exec(ctx)
	return err
}

// ReplaceTx deletes every membership then inserts roles. Callers run it
// inside a transaction.
func (r *roles) ReplaceTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, roles []string) error {
	if _, err := tx.NewDelete().
		Model((*UserRole)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx); err != nil {
		return err
	}

	for _, role := range roles {
		if err := r.AddTx(ctx, tx, userID, role); err != nil {
			return err
		}
	}

	return nil
}
