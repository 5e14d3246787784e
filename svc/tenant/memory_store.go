package tenant

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/pillar/pkg/tenant"
)

type memberKey struct {
	tenantID int64
	userID   uuid.UUID
}

type inMemStore struct {
	mu           sync.RWMutex
	nextID       int64
	nextBranding int64
	tenants      map[int64]*tenant.Tenant
	members      map[memberKey]tenant.Membership
	now          func() time.Time
}

// NewInMemStore returns a Store kept in process memory. Values are cloned on
// the way in and out so callers never share state with the store.
func NewInMemStore() Store {
	return &inMemStore{
		tenants: make(map[int64]*tenant.Tenant),
		members: make(map[memberKey]tenant.Membership),
		now:     time.Now,
	}
}

func (s *inMemStore) GetTenantBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t := s.bySlug(slug, 0); t != nil {
		return t.Clone(), nil
	}
	return nil, ErrTenantNotFound
}

func (s *inMemStore) GetPrimaryTenantForUser(_ context.Context, userID uuid.UUID) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var primary *tenant.Membership
	for _, m := range s.members {
		if m.UserID != userID || !m.Active() {
			continue
		}
		if primary == nil || earlier(m, *primary) {
			primary = &m
		}
	}
	if primary == nil {
		return nil, ErrTenantNotFound
	}
	return s.tenants[primary.TenantID].Clone(), nil
}

func (s *inMemStore) ListTenants(_ context.Context) ([]*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, t.Clone())
	}
	slices.SortFunc(out, func(a, b *tenant.Tenant) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *inMemStore) GetTenant(_ context.Context, id int64) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return t.Clone(), nil
}

func (s *inMemStore) SlugExists(_ context.Context, slug string, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bySlug(slug, excludeID) != nil, nil
}

func (s *inMemStore) DatabaseNameExists(_ context.Context, name string, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if name == "" {
		return false, nil
	}
	for id, t := range s.tenants {
		if id != excludeID && t.DatabaseName == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *inMemStore) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bySlug(t.Slug, 0) != nil {
		return ErrSlugTaken
	}
	s.nextID++
	now := s.now()
	t.ID = s.nextID
	t.CreatedAt = now
	t.UpdatedAt = now
	s.assignBranding(t)
	s.tenants[t.ID] = t.Clone()
	return nil
}

func (s *inMemStore) UpdateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[t.ID]; !ok {
		return ErrTenantNotFound
	}
	if s.bySlug(t.Slug, t.ID) != nil {
		return ErrSlugTaken
	}
	t.UpdatedAt = s.now()
	s.assignBranding(t)
	s.tenants[t.ID] = t.Clone()
	return nil
}

func (s *inMemStore) DeleteTenant(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[id]; !ok {
		return ErrTenantNotFound
	}
	delete(s.tenants, id)
	for k := range s.members {
		if k.tenantID == id {
			delete(s.members, k)
		}
	}
	return nil
}

func (s *inMemStore) ListMemberships(_ context.Context, tenantID int64) ([]tenant.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []tenant.Membership
	for k, m := range s.members {
		if k.tenantID == tenantID {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b tenant.Membership) int {
		if earlier(a, b) {
			return -1
		}
		return 1
	})
	return out, nil
}

func (s *inMemStore) AssignMembership(_ context.Context, m tenant.Membership) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[m.TenantID]; !ok {
		return false, ErrTenantNotFound
	}
	k := memberKey{m.TenantID, m.UserID}
	if cur, ok := s.members[k]; ok && cur.Active() {
		return false, nil
	}
	m.RevokedAt = nil
	s.members[k] = m
	return true, nil
}

func (s *inMemStore) RevokeMembership(_ context.Context, tenantID int64, userID uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := memberKey{tenantID, userID}
	cur, ok := s.members[k]
	if !ok || !cur.Active() {
		return false, nil
	}
	cur.RevokedAt = &at
	s.members[k] = cur
	return true, nil
}

func (s *inMemStore) ListUserTenants(_ context.Context, userID uuid.UUID) ([]*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ms []tenant.Membership
	for _, m := range s.members {
		if m.UserID == userID && m.Active() {
			ms = append(ms, m)
		}
	}
	slices.SortFunc(ms, func(a, b tenant.Membership) int {
		if earlier(a, b) {
			return -1
		}
		return 1
	})
	out := make([]*tenant.Tenant, 0, len(ms))
	for _, m := range ms {
		out = append(out, s.tenants[m.TenantID].Clone())
	}
	return out, nil
}

func (s *inMemStore) bySlug(slug string, excludeID int64) *tenant.Tenant {
	slug = tenant.NormalizeSlug(slug)
	for id, t := range s.tenants {
		if id != excludeID && tenant.NormalizeSlug(t.Slug) == slug {
			return t
		}
	}
	return nil
}

func (s *inMemStore) assignBranding(t *tenant.Tenant) {
	if t.Branding == nil {
		t.BrandingID = nil
		return
	}
	if t.Branding.ID == 0 {
		s.nextBranding++
		t.Branding.ID = s.nextBranding
	}
	id := t.Branding.ID
	t.BrandingID = &id
}

// earlier orders memberships by assignment time, then tenant id.
func earlier(a, b tenant.Membership) bool {
	if !a.AssignedAt.Equal(b.AssignedAt) {
		return a.AssignedAt.Before(b.AssignedAt)
	}
	return a.TenantID < b.TenantID
}
