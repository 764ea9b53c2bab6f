package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/flemzord/ragraft/internal/tenant"
)

// CreateTenant implements tenant.Directory.
func (s *Store) CreateTenant(ctx context.Context, t tenant.Tenant) error {
	if !tenant.ValidPublicCode(t.PublicCode) {
		return fmt.Errorf("%w: %q", tenant.ErrInvalidCode, t.PublicCode)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, public_code, created_at)
		VALUES (?, ?, ?, ?)`,
		t.ID, t.Name, t.PublicCode, formatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create tenant: %w", err)
	}
	return nil
}

// Tenant implements tenant.Directory.
func (s *Store) Tenant(ctx context.Context, id string) (tenant.Tenant, bool, error) {
	return s.scanTenant(s.db.QueryRowContext(ctx,
		"SELECT id, name, public_code, created_at FROM tenants WHERE id = ?", id))
}

// TenantByCode implements tenant.Directory.
func (s *Store) TenantByCode(ctx context.Context, code string) (tenant.Tenant, bool, error) {
	return s.scanTenant(s.db.QueryRowContext(ctx,
		"SELECT id, name, public_code, created_at FROM tenants WHERE public_code = ?", code))
}

func (s *Store) scanTenant(row *sql.Row) (tenant.Tenant, bool, error) {
	var (
		t       tenant.Tenant
		created string
	)
	err := row.Scan(&t.ID, &t.Name, &t.PublicCode, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return tenant.Tenant{}, false, nil
	}
	if err != nil {
		return tenant.Tenant{}, false, fmt.Errorf("sqlite: scan tenant: %w", err)
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return tenant.Tenant{}, false, err
	}
	return t, true, nil
}
