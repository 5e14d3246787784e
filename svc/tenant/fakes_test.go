package tenant

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/pillar/pkg/tenant"
)

type fakeProvisioner struct {
	mu    sync.Mutex
	store Store
	err   error
	calls int
}

func (p *fakeProvisioner) Provision(ctx context.Context, t *tenant.Tenant) error {
	p.mu.Lock()
	p.calls++
	err := p.err
	p.mu.Unlock()

	if t.DatabaseName == "" {
		t.DatabaseName = "pillar_" + strings.ReplaceAll(t.Slug, "-", "_")
	}
	if err != nil {
		_ = p.store.UpdateTenant(ctx, t)
		return err
	}
	t.Status = tenant.StatusActive
	now := time.Now().UTC()
	t.ActivatedAt = &now
	return p.store.UpdateTenant(ctx, t)
}

func (p *fakeProvisioner) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type recordingInvalidator struct {
	mu    sync.Mutex
	slugs []string
	users []uuid.UUID
}

func (r *recordingInvalidator) InvalidateTenant(_ context.Context, slug string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slugs = append(r.slugs, slug)
}

func (r *recordingInvalidator) InvalidateUser(_ context.Context, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, id)
}

func (r *recordingInvalidator) Slugs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.slugs...)
}

func (r *recordingInvalidator) Users() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uuid.UUID(nil), r.users...)
}

type fixture struct {
	store Store
	prov  *fakeProvisioner
	inv   *recordingInvalidator
	svc   Service
}

func newFixture() *fixture {
	store := NewInMemStore()
	prov := &fakeProvisioner{store: store}
	inv := &recordingInvalidator{}
	return &fixture{
		store: store,
		prov:  prov,
		inv:   inv,
		svc:   NewService(store, prov, WithInvalidator(inv)),
	}
}
