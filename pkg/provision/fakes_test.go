package provision_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/pillar/pkg/provision"
	"github.com/dmitrymomot/pillar/pkg/tenant"
)

type link struct {
	user uuid.UUID
	role int64
}

// memDB is an in-memory tenant database.
type memDB struct {
	mu        sync.Mutex
	migrated  int
	roles     []provision.Role
	users     map[string]*provision.User
	links     map[link]bool
	nextRole  int64
	createErr error
}

func newMemDB() *memDB {
	return &memDB{users: make(map[string]*provision.User), links: make(map[link]bool)}
}

func (d *memDB) ListRoles(context.Context) ([]provision.Role, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]provision.Role(nil), d.roles...), nil
}

func (d *memDB) CreateRoles(_ context.Context, roles []provision.Role) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createErr != nil {
		return d.createErr
	}
	for _, r := range roles {
		d.nextRole++
		r.ID = d.nextRole
		d.roles = append(d.roles, r)
	}
	return nil
}

func (d *memDB) FindUserByEmail(_ context.Context, email string) (*provision.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[email]
	if !ok {
		return nil, provision.ErrNotFound
	}
	return u, nil
}

func (d *memDB) CreateUser(_ context.Context, u provision.User) (*provision.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u.ID = uuid.New()
	d.users[u.NormalizedEmail] = &u
	return &u, nil
}

func (d *memDB) LinkUserRole(_ context.Context, userID uuid.UUID, roleID int64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := link{userID, roleID}
	if d.links[key] {
		return false, nil
	}
	d.links[key] = true
	return true, nil
}

// handle wraps memDB as an open TenantDB.
type handle struct {
	*memDB
	infra *memInfra
}

func (h handle) Migrate(context.Context) (int, error) {
	if h.infra.migrateErr != nil {
		return 0, h.infra.migrateErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.migrated == 2 {
		return 0, nil
	}
	h.migrated = 2
	return 2, nil
}

func (h handle) Close() {}

// memInfra is a fake database server keyed by connection string.
type memInfra struct {
	mu         sync.Mutex
	databases  map[string]*memDB
	byDSN      map[string]string
	ensured    int
	migrateErr error
	gate       chan struct{}
	ctxErrs    []error
}

func newMemInfra() *memInfra {
	return &memInfra{databases: make(map[string]*memDB), byDSN: make(map[string]string)}
}

func (i *memInfra) EnsureDatabase(ctx context.Context, dsn, name string) (bool, error) {
	if i.gate != nil {
		<-i.gate
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ctxErrs = append(i.ctxErrs, ctx.Err())
	i.ensured++
	i.byDSN[dsn] = name
	if _, ok := i.databases[name]; ok {
		return false, nil
	}
	i.databases[name] = newMemDB()
	return true, nil
}

func (i *memInfra) Open(_ context.Context, dsn string) (provision.TenantDB, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return handle{memDB: i.databases[i.byDSN[dsn]], infra: i}, nil
}

func (i *memInfra) db(name string) *memDB {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.databases[name]
}

// memTenants records persisted tenant snapshots.
type memTenants struct {
	mu      sync.Mutex
	updates []tenant.Tenant
}

func (m *memTenants) UpdateTenant(_ context.Context, t *tenant.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, *t.Clone())
	return nil
}

func (m *memTenants) last() tenant.Tenant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates[len(m.updates)-1]
}
