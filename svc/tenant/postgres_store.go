package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/pillar/pkg/pg"
	"github.com/dmitrymomot/pillar/pkg/tenant"
)

const tenantColumns = `
	t.id, t.slug, t.name, t.status, t.database_name, t.connection_string,
	t.contact_email, t.contact_name, t.contact_phone, t.configuration, t.is_demo,
	t.branding_id, t.created_at, t.activated_at, t.updated_at,
	b.primary_color, b.secondary_color, b.accent_color, b.logo_url,
	b.favicon_url, b.background_url, b.custom_css`

const tenantFrom = `FROM tenants t LEFT JOIN brandings b ON b.id = t.branding_id`

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Store backed by the control-plane database.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	if pool == nil {
		panic("tenant: postgres pool is required")
	}
	return &pgStore{pool: pool}
}

func (s *pgStore) GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return s.getOne(ctx, `SELECT `+tenantColumns+` `+tenantFrom+` WHERE lower(t.slug) = lower($1)`, slug)
}

func (s *pgStore) GetPrimaryTenantForUser(ctx context.Context, userID uuid.UUID) (*tenant.Tenant, error) {
	return s.getOne(ctx, `SELECT `+tenantColumns+` `+tenantFrom+`
		JOIN tenant_memberships m ON m.tenant_id = t.id
		WHERE m.user_id = $1 AND m.revoked_at IS NULL
		ORDER BY m.assigned_at, t.id
		LIMIT 1`, userID)
}

func (s *pgStore) ListTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.getMany(ctx, `SELECT `+tenantColumns+` `+tenantFrom+` ORDER BY t.id`)
}

func (s *pgStore) GetTenant(ctx context.Context, id int64) (*tenant.Tenant, error) {
	return s.getOne(ctx, `SELECT `+tenantColumns+` `+tenantFrom+` WHERE t.id = $1`, id)
}

func (s *pgStore) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenants WHERE lower(slug) = lower($1) AND id <> $2)`,
		slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

func (s *pgStore) DatabaseNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	if name == "" {
		return false, nil
	}
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenants WHERE database_name = $1 AND id <> $2)`,
		name, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check database name: %w", err)
	}
	return exists, nil
}

func (s *pgStore) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := upsertBranding(ctx, tx, t); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO tenants (slug, name, status, database_name, connection_string,
				contact_email, contact_name, contact_phone, configuration, is_demo,
				branding_id, activated_at)
			VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, created_at, updated_at`,
			t.Slug, t.Name, t.Status, t.DatabaseName, t.ConnectionString,
			t.ContactEmail, t.ContactName, t.ContactPhone, nullJSON(t.Configuration), t.IsDemo,
			t.BrandingID, t.ActivatedAt,
		).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	})
	return mapWriteError(err)
}

func (s *pgStore) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := upsertBranding(ctx, tx, t); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			UPDATE tenants SET slug = $2, name = $3, status = $4,
				database_name = NULLIF($5, ''), connection_string = NULLIF($6, ''),
				contact_email = $7, contact_name = $8, contact_phone = $9,
				configuration = $10, is_demo = $11, branding_id = $12,
				activated_at = $13, updated_at = now()
			WHERE id = $1
			RETURNING updated_at`,
			t.ID, t.Slug, t.Name, t.Status, t.DatabaseName, t.ConnectionString,
			t.ContactEmail, t.ContactName, t.ContactPhone, nullJSON(t.Configuration), t.IsDemo,
			t.BrandingID, t.ActivatedAt,
		).Scan(&t.UpdatedAt)
	})
	return mapWriteError(err)
}

func (s *pgStore) DeleteTenant(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func (s *pgStore) ListMemberships(ctx context.Context, tenantID int64) ([]tenant.Membership, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tenant_id, user_id, assigned_by, assigned_at, revoked_at
		FROM tenant_memberships WHERE tenant_id = $1
		ORDER BY assigned_at, user_id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (tenant.Membership, error) {
		var m tenant.Membership
		err := row.Scan(&m.TenantID, &m.UserID, &m.AssignedBy, &m.AssignedAt, &m.RevokedAt)
		return m, err
	})
}

func (s *pgStore) AssignMembership(ctx context.Context, m tenant.Membership) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO tenant_memberships (tenant_id, user_id, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, user_id) DO UPDATE
			SET assigned_by = EXCLUDED.assigned_by,
				assigned_at = EXCLUDED.assigned_at,
				revoked_at = NULL
			WHERE tenant_memberships.revoked_at IS NOT NULL`,
		m.TenantID, m.UserID, m.AssignedBy, m.AssignedAt)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return false, ErrTenantNotFound
		}
		return false, fmt.Errorf("assign membership: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *pgStore) RevokeMembership(ctx context.Context, tenantID int64, userID uuid.UUID, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tenant_memberships SET revoked_at = $3
		WHERE tenant_id = $1 AND user_id = $2 AND revoked_at IS NULL`,
		tenantID, userID, at)
	if err != nil {
		return false, fmt.Errorf("revoke membership: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *pgStore) ListUserTenants(ctx context.Context, userID uuid.UUID) ([]*tenant.Tenant, error) {
	return s.getMany(ctx, `SELECT `+tenantColumns+` `+tenantFrom+`
		JOIN tenant_memberships m ON m.tenant_id = t.id
		WHERE m.user_id = $1 AND m.revoked_at IS NULL
		ORDER BY m.assigned_at, t.id`, userID)
}

func (s *pgStore) getOne(ctx context.Context, query string, args ...any) (*tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tenant: %w", err)
	}
	t, err := pgx.CollectExactlyOneRow(rows, scanTenant)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	return t, nil
}

func (s *pgStore) getMany(ctx context.Context, query string, args ...any) ([]*tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanTenant)
	if err != nil {
		return nil, fmt.Errorf("scan tenants: %w", err)
	}
	return list, nil
}

func scanTenant(row pgx.CollectableRow) (*tenant.Tenant, error) {
	var (
		t                         tenant.Tenant
		dbName, dsn               *string
		primary, secondary        *string
		accent, logo, favicon, bg *string
		css                       *string
		configuration             []byte
	)
	err := row.Scan(
		&t.ID, &t.Slug, &t.Name, &t.Status, &dbName, &dsn,
		&t.ContactEmail, &t.ContactName, &t.ContactPhone, &configuration, &t.IsDemo,
		&t.BrandingID, &t.CreatedAt, &t.ActivatedAt, &t.UpdatedAt,
		&primary, &secondary, &accent, &logo, &favicon, &bg, &css,
	)
	if err != nil {
		return nil, err
	}
	t.Configuration = configuration
	t.DatabaseName = deref(dbName)
	t.ConnectionString = deref(dsn)
	if t.BrandingID != nil {
		t.Branding = &tenant.Branding{
			ID:             *t.BrandingID,
			PrimaryColor:   deref(primary),
			SecondaryColor: deref(secondary),
			AccentColor:    deref(accent),
			LogoURL:        deref(logo),
			FaviconURL:     deref(favicon),
			BackgroundURL:  deref(bg),
			CustomCSS:      deref(css),
		}
	}
	return &t, nil
}

func upsertBranding(ctx context.Context, tx pgx.Tx, t *tenant.Tenant) error {
	b := t.Branding
	if b == nil {
		t.BrandingID = nil
		return nil
	}
	if b.ID == 0 {
		err := tx.QueryRow(ctx, `
			INSERT INTO brandings (primary_color, secondary_color, accent_color,
				logo_url, favicon_url, background_url, custom_css)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			b.PrimaryColor, b.SecondaryColor, b.AccentColor,
			b.LogoURL, b.FaviconURL, b.BackgroundURL, b.CustomCSS,
		).Scan(&b.ID)
		if err != nil {
			return fmt.Errorf("insert branding: %w", err)
		}
	} else {
		_, err := tx.Exec(ctx, `
			UPDATE brandings SET primary_color = $2, secondary_color = $3, accent_color = $4,
				logo_url = $5, favicon_url = $6, background_url = $7, custom_css = $8,
				updated_at = now()
			WHERE id = $1`,
			b.ID, b.PrimaryColor, b.SecondaryColor, b.AccentColor,
			b.LogoURL, b.FaviconURL, b.BackgroundURL, b.CustomCSS)
		if err != nil {
			return fmt.Errorf("update branding: %w", err)
		}
	}
	id := b.ID
	t.BrandingID = &id
	return nil
}

// mapWriteError turns unique violations into the service's conflict errors.
// They only happen when two writers race past the availability pre-checks.
func mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrTenantNotFound
	case pg.IsDuplicateKeyError(err):
		switch pg.ConstraintName(err) {
		case "tenants_database_name_key":
			return ErrDatabaseNameTaken
		default:
			return ErrSlugTaken
		}
	}
	return fmt.Errorf("write tenant: %w", err)
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
