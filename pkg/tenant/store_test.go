package tenant_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dmitrymomot/pillar/pkg/tenant"
)

type memStore struct {
	mu      sync.Mutex
	bySlug  map[string]*tenant.Tenant
	primary map[uuid.UUID]*tenant.Tenant
	err     error
	calls   atomic.Int64
	gate    chan struct{}
	ctxErr  error
}

func newMemStore(tenants ...*tenant.Tenant) *memStore {
	s := &memStore{
		bySlug:  make(map[string]*tenant.Tenant),
		primary: make(map[uuid.UUID]*tenant.Tenant),
	}
	for _, t := range tenants {
		s.bySlug[t.Slug] = t
	}
	return s
}

func (s *memStore) withMembership(userID uuid.UUID, slug string) *memStore {
	s.primary[userID] = s.bySlug[slug]
	return s
}

func (s *memStore) GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxErr = ctx.Err()
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.bySlug[slug]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (s *memStore) GetPrimaryTenantForUser(_ context.Context, userID uuid.UUID) (*tenant.Tenant, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.primary[userID]
	if !ok || t == nil {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (s *memStore) setSlug(slug string, t *tenant.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySlug[slug] = t
}

func newTenant(id int64, slug string) *tenant.Tenant {
	return &tenant.Tenant{
		ID:     id,
		Slug:   slug,
		Name:   slug + " inc",
		Status: tenant.StatusActive,
	}
}
