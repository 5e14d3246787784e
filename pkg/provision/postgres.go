package provision

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/pillar/pkg/logger"
	"github.com/dmitrymomot/pillar/pkg/pg"
)

// PostgresInfra provisions tenant databases on a Postgres server.
type PostgresInfra struct {
	adminDatabase string
	base          pg.Config
	migrations    fs.FS
	log           *slog.Logger
}

// NewPostgresInfra returns an Infra that creates databases through
// adminDatabase and migrates them with the goose files in migrations. base
// supplies pool and retry settings for tenant connections.
func NewPostgresInfra(adminDatabase string, base pg.Config, migrations fs.FS, log *slog.Logger) *PostgresInfra {
	if log == nil {
		log = logger.Discard()
	}
	if adminDatabase == "" {
		adminDatabase = "postgres"
	}
	return &PostgresInfra{
		adminDatabase: adminDatabase,
		base:          base,
		migrations:    migrations,
		log:           log,
	}
}

// EnsureDatabase implements Infra.
func (p *PostgresInfra) EnsureDatabase(ctx context.Context, connString, name string) (bool, error) {
	conn, err := pg.ConnectAdmin(ctx, connString, p.adminDatabase)
	if err != nil {
		return false, err
	}
	defer conn.Close(context.WithoutCancel(ctx))

	return pg.EnsureDatabase(ctx, conn, name)
}

// Open implements Infra.
func (p *PostgresInfra) Open(ctx context.Context, connString string) (TenantDB, error) {
	pool, err := pg.Connect(ctx, p.base.WithConnectionString(connString))
	if err != nil {
		return nil, err
	}
	return &postgresDB{pool: pool, migrations: p.migrations, log: p.log}, nil
}

type postgresDB struct {
	pool       *pgxpool.Pool
	migrations fs.FS
	log        *slog.Logger
}

func (d *postgresDB) Close() {
	d.pool.Close()
}

func (d *postgresDB) Migrate(ctx context.Context) (int, error) {
	return pg.Migrate(ctx, d.pool, d.migrations, d.log)
}

func (d *postgresDB) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := d.pool.Query(ctx, `SELECT id, name, normalized_name FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Role, error) {
		var r Role
		err := row.Scan(&r.ID, &r.Name, &r.NormalizedName)
		return r, err
	})
}

func (d *postgresDB) CreateRoles(ctx context.Context, roles []Role) error {
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, r := range roles {
			batch.Queue(
				`INSERT INTO roles (name, normalized_name) VALUES ($1, $2)
				 ON CONFLICT (normalized_name) DO NOTHING`,
				r.Name, r.NormalizedName,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (d *postgresDB) FindUserByEmail(ctx context.Context, normalizedEmail string) (*User, error) {
	var u User
	err := d.pool.QueryRow(ctx,
		`SELECT id, email, normalized_email, name, password_hash
		   FROM users WHERE normalized_email = $1`,
		normalizedEmail,
	).Scan(&u.ID, &u.Email, &u.NormalizedEmail, &u.Name, &u.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *postgresDB) CreateUser(ctx context.Context, u User) (*User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := d.pool.Exec(ctx,
		`INSERT INTO users (id, email, normalized_email, name, password_hash, must_change_password)
		 VALUES ($1, $2, $3, $4, $5, TRUE)`,
		u.ID, u.Email, u.NormalizedEmail, u.Name, u.PasswordHash,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *postgresDB) LinkUserRole(ctx context.Context, userID uuid.UUID, roleID int64) (bool, error) {
	tag, err := d.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		userID, roleID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
