package database

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aquasafe/aquasafe/pkg/models"
)

type memoryUser struct {
	user models.User
	hash string
}

// MemoryStore keeps samples and users in process memory. It is safe for
// concurrent use and is what tests and the "memory" driver run against.
type MemoryStore struct {
	mu      sync.RWMutex
	samples map[uuid.UUID]models.WaterSample
	users   map[uuid.UUID]memoryUser
}

// NewMemory creates an empty in-memory store
func NewMemory() *MemoryStore {
	return &MemoryStore{
		samples: make(map[uuid.UUID]models.WaterSample),
		users:   make(map[uuid.UUID]memoryUser),
	}
}

func (m *MemoryStore) Migrate(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// Health always reports healthy
func (m *MemoryStore) Health(ctx context.Context) HealthStatus {
	return HealthStatus{Healthy: true, CheckedAt: time.Now().UTC()}
}

func (m *MemoryStore) InsertOne(ctx context.Context, sample *models.WaterSample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples[sample.ID] = stored(sample)
	return nil
}

// stored copies a sample without its resolved collector
func stored(sample *models.WaterSample) models.WaterSample {
	out := sample.Clone()
	out.Collector = nil
	return out
}

func (m *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.WaterSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.samples[id]
	if !ok {
		return nil, nil
	}
	out := s.Clone()
	return &out, nil
}

func (m *MemoryStore) FindMany(ctx context.Context, filter models.SampleFilter, sort models.Sort, skip, limit int) ([]models.WaterSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matched := m.matching(filter)

	desc := sort.Direction != models.SortAsc
	slices.SortFunc(matched, func(a, b models.WaterSample) int {
		c := compareField(a, b, sort.Field)
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if desc {
			return -c
		}
		return c
	})

	skip = max(skip, 0)
	if skip >= len(matched) {
		return nil, nil
	}
	matched = matched[skip:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MemoryStore) Count(ctx context.Context, filter models.SampleFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(m.matching(filter)), nil
}

func (m *MemoryStore) UpdateByID(ctx context.Context, sample *models.WaterSample) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.samples[sample.ID]; !ok {
		return false, nil
	}
	m.samples[sample.ID] = stored(sample)
	return true, nil
}

func (m *MemoryStore) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.samples[id]; !ok {
		return false, nil
	}
	delete(m.samples, id)
	return true, nil
}

// matching returns clones of every sample accepted by filter
func (m *MemoryStore) matching(filter models.SampleFilter) []models.WaterSample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.WaterSample
	for _, s := range m.samples {
		if filter.Matches(s) {
			out = append(out, s.Clone())
		}
	}
	return out
}

func compareField(a, b models.WaterSample, field string) int {
	switch field {
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "sample_date":
		return a.SampleDate.Compare(b.SampleDate)
	case "hmpi_value":
		return cmp.Compare(a.IndexValue, b.IndexValue)
	case "location":
		return strings.Compare(a.Location, b.Location)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "cu_concentration":
		return cmp.Compare(a.Cu, b.Cu)
	case "pb_concentration":
		return cmp.Compare(a.Pb, b.Pb)
	case "cd_concentration":
		return cmp.Compare(a.Cd, b.Cd)
	case "zn_concentration":
		return cmp.Compare(a.Zn, b.Zn)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (m *MemoryStore) CreateUser(ctx context.Context, nu models.NewUser) (*models.User, error) {
	if err := checkNewUser(nu); err != nil {
		return nil, err
	}
	hash, err := hashPassword(nu.Password)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	username := strings.TrimSpace(nu.Username)
	if _, ok := m.userByName(username); ok {
		return nil, ErrUserExists
	}

	now := utcMicro(time.Now())
	u := models.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     nu.Email,
		Name:      nu.Name,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.users[u.ID] = memoryUser{user: u, hash: hash}
	return &u, nil
}

func (m *MemoryStore) ValidateUser(ctx context.Context, username, password string) (*models.User, error) {
	m.mu.RLock()
	mu, ok := m.userByName(username)
	m.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if ok, _ := checkPassword(mu.hash, password); !ok {
		return nil, ErrInvalidCredentials
	}
	u := mu.user
	return &u, nil
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mu, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := mu.user
	return &u, nil
}

func (m *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mu, ok := m.userByName(username)
	if !ok {
		return nil, ErrUserNotFound
	}
	u := mu.user
	return &u, nil
}

func (m *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]models.User, 0, len(m.users))
	for _, mu := range m.users {
		users = append(users, mu.user)
	}
	slices.SortFunc(users, func(a, b models.User) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

// userByName must be called with mu held
func (m *MemoryStore) userByName(username string) (memoryUser, bool) {
	for _, mu := range m.users {
		if mu.user.Username == username {
			return mu, true
		}
	}
	return memoryUser{}, false
}
