package service

import (
	"context"
	"sync"

	"github.com/creamcroissant/xboard-sub/internal/repository"
)

type memoryUsers struct {
	mu      sync.Mutex
	users   map[int64]*repository.User
	lookups int
}

func newMemoryUsers(users ...*repository.User) *memoryUsers {
	m := &memoryUsers{users: make(map[int64]*repository.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memoryUsers) FindByID(_ context.Context, id int64) (*repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) FindByToken(_ context.Context, token string) (*repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	for _, u := range m.users {
		if u.Token == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) Create(_ context.Context, user *repository.User) (*repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = int64(len(m.users) + 1)
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUsers) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

type memoryPlans struct {
	plans map[int64]*repository.Plan
}

func (m *memoryPlans) FindByID(_ context.Context, id int64) (*repository.Plan, error) {
	if p, ok := m.plans[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryPlans) Create(_ context.Context, plan *repository.Plan) (*repository.Plan, error) {
	plan.ID = int64(len(m.plans) + 1)
	m.plans[plan.ID] = plan
	return plan, nil
}

type memoryServers struct {
	mu      sync.Mutex
	servers []*repository.Server
	listErr error
}

func (m *memoryServers) ListVisible(ctx context.Context) ([]*repository.Server, error) {
	all, err := m.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*repository.Server
	for _, s := range all {
		if s.Show {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryServers) ListAll(_ context.Context) ([]*repository.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*repository.Server, 0, len(m.servers))
	for _, s := range m.servers {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryServers) FindByID(_ context.Context, id int64) (*repository.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.servers {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryServers) Create(_ context.Context, server *repository.Server) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	server.ID = int64(len(m.servers) + 1)
	m.servers = append(m.servers, server)
	return nil
}

func (m *memoryServers) TouchHeartbeat(_ context.Context, id int64, at int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.servers {
		if s.ID == id {
			s.LastHeartbeatAt = at
			return nil
		}
	}
	return repository.ErrNotFound
}
