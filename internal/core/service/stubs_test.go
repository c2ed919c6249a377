package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/familycircle/circle-api/internal/core/domain"
)

type stubIdentityRepo struct {
	mu         sync.Mutex
	identities map[string]*domain.Identity
	deleted    []string
}

func newStubIdentityRepo() *stubIdentityRepo {
	return &stubIdentityRepo{identities: make(map[string]*domain.Identity)}
}

func (r *stubIdentityRepo) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.identities {
		if existing.Email == identity.Email {
			return nil, domain.ErrEmailInUse
		}
	}
	copy := *identity
	copy.ID = "uid-" + strings.SplitN(identity.Email, "@", 2)[0]
	r.identities[copy.ID] = &copy
	out := copy
	return &out, nil
}

func (r *stubIdentityRepo) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.identities {
		if existing.Email == email {
			out := *existing
			return &out, nil
		}
	}
	return nil, domain.ErrInvalidCredentials
}

func (r *stubIdentityRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.identities, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubIdentityRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.identities)
}

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return nil, domain.ErrEmailInUse
		}
	}
	r.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.users[id]), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *stubUserRepo) Update(_ context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.ProfileImage != nil {
		u.ProfileImage = clearable(*update.ProfileImage)
	}
	if update.FamilyID != nil {
		u.FamilyID = clearable(*update.FamilyID)
	}
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func clearable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func (r *stubUserRepo) ListByFamilyID(_ context.Context, familyID string) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		if u.InFamily(familyID) {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

type stubFamilyRepo struct {
	mu       sync.Mutex
	families map[string]*domain.Family
	taken    map[string]bool
	seq      int
	deleted  []string
}

func newStubFamilyRepo() *stubFamilyRepo {
	return &stubFamilyRepo{families: make(map[string]*domain.Family), taken: make(map[string]bool)}
}

func (r *stubFamilyRepo) Create(_ context.Context, family *domain.Family) (*domain.Family, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken[family.InviteCode] {
		return nil, domain.ErrDuplicateInviteCode
	}
	r.seq++
	copy := *family
	copy.ID = fmt.Sprintf("fam-%d", r.seq)
	r.families[copy.ID] = &copy
	r.taken[copy.InviteCode] = true
	out := copy
	return &out, nil
}

func (r *stubFamilyRepo) FindByID(_ context.Context, id string) (*domain.Family, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[id]
	if !ok {
		return nil, nil
	}
	out := *f
	return &out, nil
}

func (r *stubFamilyRepo) FindByInviteCode(_ context.Context, code string) (*domain.Family, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.families {
		if f.InviteCode == code {
			out := *f
			return &out, nil
		}
	}
	return nil, nil
}

func (r *stubFamilyRepo) Update(_ context.Context, id string, update domain.FamilyUpdate) (*domain.Family, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[id]
	if !ok {
		return nil, domain.ErrFamilyNotFound
	}
	if update.Name != nil {
		f.Name = *update.Name
	}
	f.UpdatedAt = time.Now().UTC()
	out := *f
	return &out, nil
}

func (r *stubFamilyRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.families, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubFamilyRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.families)
}

type stubRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func newStubRevoker() *stubRevoker {
	return &stubRevoker{revoked: make(map[string]time.Time)}
}

func (r *stubRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[tokenID] = until
	return nil
}

func (r *stubRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[tokenID]
	return ok, nil
}

type stubPublisher struct {
	mu     sync.Mutex
	events []domain.AuthEvent
	err    error
}

func (p *stubPublisher) Publish(_ context.Context, event domain.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *stubPublisher) published() []domain.AuthEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.AuthEvent(nil), p.events...)
}

type stubCache struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	tokens map[string]string
}

func newStubCache() *stubCache {
	return &stubCache{users: make(map[string]*domain.User), tokens: make(map[string]string)}
}

func (c *stubCache) Store(_ context.Context, identityID, token string, user *domain.User, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[identityID] = cloneUser(user)
	c.tokens[identityID] = token
	return nil
}

func (c *stubCache) CachedUser(_ context.Context, identityID string) (*domain.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneUser(c.users[identityID]), nil
}

func (c *stubCache) Refresh(_ context.Context, identityID string, user *domain.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.users[identityID]; ok {
		c.users[identityID] = cloneUser(user)
	}
	return nil
}

func (c *stubCache) Clear(_ context.Context, identityID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.users, identityID)
	delete(c.tokens, identityID)
	return nil
}

type stubStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	puts      int
	deleteErr error
	deleted   []string
}

func newStubStorage() *stubStorage {
	return &stubStorage{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *stubStorage) Put(_ context.Context, path, contentType string, data []byte) (domain.StoredObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.objects[path] = append([]byte(nil), data...)
	s.types[path] = contentType
	return domain.StoredObject{Path: path, ContentType: contentType, Size: int64(len(data))}, nil
}

func (s *stubStorage) Open(_ context.Context, path string) (io.ReadCloser, domain.StoredObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, domain.StoredObject{}, domain.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), domain.StoredObject{Path: path, Size: int64(len(data))}, nil
}

func (s *stubStorage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, path)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, path)
	return nil
}

func (s *stubStorage) List(_ context.Context, prefix string) ([]domain.StoredObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StoredObject
	for p, data := range s.objects {
		rest, ok := strings.CutPrefix(p, prefix+"/")
		if ok && !strings.Contains(rest, "/") {
			out = append(out, domain.StoredObject{Path: p, Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func strPtr(s string) *string { return &s }
