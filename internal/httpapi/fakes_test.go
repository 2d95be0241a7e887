package httpapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coremd.cloud/internal/auth"
	"coremd.cloud/internal/course"
)

// memBackend is an in-memory backend implementing both auth.Store and
// course.Store for handler tests.
type memBackend struct {
	mu        sync.Mutex
	seq       int
	users     map[string]*auth.User
	roles     map[string]*auth.Role
	blacklist map[string]time.Time
	courses   map[string]*course.Course
	modules   map[string]*course.Module
	subs      map[string]map[string]bool
}

func newMemBackend() *memBackend {
	return &memBackend{
		users:     make(map[string]*auth.User),
		roles:     make(map[string]*auth.Role),
		blacklist: make(map[string]time.Time),
		courses:   make(map[string]*course.Course),
		modules:   make(map[string]*course.Module),
		subs:      make(map[string]map[string]bool),
	}
}

func (b *memBackend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

// auth.Store

func (b *memBackend) Users(context.Context) auth.UserStore          { return beUsers{b} }
func (b *memBackend) Roles(context.Context) auth.RoleStore          { return beRoles{b} }
func (b *memBackend) Blacklist(context.Context) auth.BlacklistStore { return beBlacklist{b} }

type beUsers struct{ b *memBackend }

func (s beUsers) Create(_ context.Context, u *auth.User) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if u.ID == "" {
		u.ID = s.b.nextID("user")
	}
	cp := *u
	s.b.users[u.ID] = &cp
	return nil
}

func (s beUsers) Find(_ context.Context, id string) (*auth.User, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	u, ok := s.b.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s beUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	for _, u := range s.b.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s beUsers) List(_ context.Context) ([]*auth.User, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	var out []*auth.User
	for _, u := range s.b.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (s beUsers) Update(_ context.Context, u *auth.User) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if _, ok := s.b.users[u.ID]; !ok {
		return auth.ErrNotFound
	}
	cp := *u
	s.b.users[u.ID] = &cp
	return nil
}

func (s beUsers) UpdatePassword(_ context.Context, userID, hash string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	u, ok := s.b.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s beUsers) SetEmailVerified(_ context.Context, userID string, verified bool) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	u, ok := s.b.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.EmailVerified = verified
	return nil
}

func (s beUsers) Delete(_ context.Context, id string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if _, ok := s.b.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.b.users, id)
	return nil
}

type beRoles struct{ b *memBackend }

func (s beRoles) Create(_ context.Context, role *auth.Role) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if role.ID == "" {
		role.ID = s.b.nextID("role")
	}
	cp := *role
	s.b.roles[role.ID] = &cp
	return nil
}

func (s beRoles) Find(_ context.Context, id string) (*auth.Role, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	r, ok := s.b.roles[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s beRoles) FindByName(_ context.Context, name auth.RoleName) (*auth.Role, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	for _, r := range s.b.roles {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s beRoles) List(_ context.Context) ([]*auth.Role, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	var out []*auth.Role
	for _, r := range s.b.roles {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s beRoles) Update(_ context.Context, role *auth.Role) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if _, ok := s.b.roles[role.ID]; !ok {
		return auth.ErrNotFound
	}
	cp := *role
	s.b.roles[role.ID] = &cp
	return nil
}

func (s beRoles) Delete(_ context.Context, id string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if _, ok := s.b.roles[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.b.roles, id)
	return nil
}

type beBlacklist struct{ b *memBackend }

func (s beBlacklist) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if _, ok := s.b.blacklist[token]; !ok {
		s.b.blacklist[token] = expiresAt
	}
	return nil
}

func (s beBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	_, ok := s.b.blacklist[token]
	return ok, nil
}

func (s beBlacklist) PruneExpired(_ context.Context, now time.Time) (int64, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	var n int64
	for token, exp := range s.b.blacklist {
		if !exp.After(now) {
			delete(s.b.blacklist, token)
			n++
		}
	}
	return n, nil
}

// course.Store

func (b *memBackend) CreateCourse(_ context.Context, c *course.Course) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.ID == "" {
		c.ID = b.nextID("course")
	}
	cp := *c
	b.courses[c.ID] = &cp
	return nil
}

func (b *memBackend) FindCourse(_ context.Context, id string) (*course.Course, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.courses[id]
	if !ok {
		return nil, course.ErrNotFound
	}
	cp := *c
	for userID := range b.subs[id] {
		cp.Subscribers = append(cp.Subscribers, userID)
	}
	return &cp, nil
}

func (b *memBackend) ListCourses(_ context.Context) ([]*course.Course, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*course.Course
	for _, c := range b.courses {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (b *memBackend) UpdateCourse(_ context.Context, c *course.Course) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.courses[c.ID]; !ok {
		return course.ErrNotFound
	}
	cp := *c
	b.courses[c.ID] = &cp
	return nil
}

func (b *memBackend) DeleteCourse(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(b.courses, id)
	return nil
}

func (b *memBackend) AddSubscriber(_ context.Context, courseID, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[courseID] == nil {
		b.subs[courseID] = make(map[string]bool)
	}
	b.subs[courseID][userID] = true
	return nil
}

func (b *memBackend) CreateModule(_ context.Context, m *course.Module) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m.ID == "" {
		m.ID = b.nextID("module")
	}
	cp := *m
	b.modules[m.ID] = &cp
	return nil
}

func (b *memBackend) FindModule(_ context.Context, id string) (*course.Module, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.modules[id]
	if !ok {
		return nil, course.ErrModuleNotFound
	}
	cp := *m
	return &cp, nil
}

func (b *memBackend) ListModules(_ context.Context, courseID string) ([]*course.Module, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*course.Module
	for _, m := range b.modules {
		if m.CourseID == courseID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (b *memBackend) UpdateModule(_ context.Context, m *course.Module) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.modules[m.ID]; !ok {
		return course.ErrModuleNotFound
	}
	cp := *m
	b.modules[m.ID] = &cp
	return nil
}

func (b *memBackend) DeleteModule(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.modules[id]; !ok {
		return course.ErrModuleNotFound
	}
	delete(b.modules, id)
	return nil
}

func (b *memBackend) FindModuleWithInstructor(_ context.Context, id string) (*course.ModuleWithInstructor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.modules[id]
	if !ok {
		return nil, course.ErrModuleNotFound
	}
	c, ok := b.courses[m.CourseID]
	if !ok {
		return nil, course.ErrNotFound
	}
	return &course.ModuleWithInstructor{
		Module:       *m,
		CourseTitle:  c.Title,
		InstructorID: c.InstructorID,
	}, nil
}

// nopMailer satisfies auth.Mailer without side effects.
type nopMailer struct{}

func (nopMailer) Send(context.Context, string, string, string, map[string]any) error { return nil }
