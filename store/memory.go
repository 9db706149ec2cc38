package store

import (
	"context"
	"sort"
	"sync"

	"fieldfusion/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory keeps everything in process. Used when no MONGO_URI is set and by
// tests.
type Memory struct {
	mu      sync.RWMutex
	users   map[primitive.ObjectID]models.User
	reports map[primitive.ObjectID]models.Report
}

func NewMemory() *Memory {
	return &Memory{
		users:   map[primitive.ObjectID]models.User{},
		reports: map[primitive.ObjectID]models.Report{},
	}
}

func (m *Memory) Close(context.Context) error { return nil }

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := models.NormalizeEmail(u.Email)
	for _, existing := range m.users {
		if existing.Email == email {
			return ErrDuplicate
		}
	}
	u.Email = email
	u.ID = primitive.NewObjectID()
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) VerifyUser(_ context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.VerificationToken == token {
			u.IsVerified = true
			u.VerificationToken = ""
			m.users[id] = u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) SaveReport(_ context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = primitive.NewObjectID()
	m.reports[r.ID] = *r
	return nil
}

func (m *Memory) ListReports(_ context.Context, owner primitive.ObjectID) ([]models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Report{}
	for _, r := range m.reports {
		if r.OwnerID == owner {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) GetReport(_ context.Context, owner, id primitive.ObjectID) (*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	if !ok || r.OwnerID != owner {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *Memory) DeleteReport(_ context.Context, owner, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok || r.OwnerID != owner {
		return ErrNotFound
	}
	delete(m.reports, id)
	return nil
}
