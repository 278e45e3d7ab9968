// Package memory provides mutex-guarded in-memory implementations of the
// repository interfaces. They follow the same not-found and compare-and-set
// semantics as the Postgres repositories.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/joaomjbraga/shipment-management/internal/domain"
	"github.com/joaomjbraga/shipment-management/internal/repository"
)

// Store holds users, deliveries and logs behind one lock so that a status
// transition and its log entry become visible together.
type Store struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	deliveries map[string]domain.Delivery
	logs       map[string][]domain.DeliveryLog
	now        func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:      make(map[string]domain.User),
		deliveries: make(map[string]domain.Delivery),
		logs:       make(map[string][]domain.DeliveryLog),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Users exposes the store as a UserRepository.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Deliveries exposes the store as a DeliveryRepository.
func (s *Store) Deliveries() repository.DeliveryRepository { return deliveryRepo{s} }

// DeliveryLogs exposes the store as a DeliveryLogRepository.
func (s *Store) DeliveryLogs() repository.DeliveryLogRepository { return logRepo{s} }

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.emailTaken(user.Email, "") {
		return repository.ErrEmailTaken
	}
	now := r.s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if r.s.emailTaken(user.Email, user.ID) {
		return repository.ErrEmailTaken
	}
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = r.s.now()
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.users, id)
	for deliveryID, d := range r.s.deliveries {
		if d.UserID == id {
			delete(r.s.deliveries, deliveryID)
			delete(r.s.logs, deliveryID)
		}
	}
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, user := range r.s.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r userRepo) List(_ context.Context) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.User, 0, len(r.s.users))
	for _, user := range r.s.users {
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

type deliveryRepo struct{ s *Store }

func (r deliveryRepo) Create(_ context.Context, delivery *domain.Delivery) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[delivery.UserID]; !ok {
		return pgx.ErrNoRows
	}
	now := r.s.now()
	delivery.ID = uuid.NewString()
	delivery.CreatedAt = now
	delivery.UpdatedAt = now
	r.s.deliveries[delivery.ID] = *delivery
	return nil
}

func (r deliveryRepo) GetByID(_ context.Context, id string) (*domain.Delivery, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	delivery, ok := r.s.deliveries[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &delivery, nil
}

func (r deliveryRepo) ListWithOwner(_ context.Context) ([]domain.DeliveryWithOwner, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.DeliveryWithOwner, 0, len(r.s.deliveries))
	for _, d := range r.s.deliveries {
		owner := r.s.users[d.UserID]
		result = append(result, domain.DeliveryWithOwner{
			Delivery: d,
			Owner:    domain.DeliveryOwner{Name: owner.Name, Email: owner.Email},
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r deliveryRepo) TransitionStatus(_ context.Context, id string, from, to domain.DeliveryStatus) (*domain.Delivery, *domain.DeliveryLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delivery, ok := r.s.deliveries[id]
	if !ok {
		return nil, nil, pgx.ErrNoRows
	}
	if delivery.Status != from {
		return nil, nil, repository.ErrStatusChanged
	}
	now := r.s.now()
	delivery.Status = to
	delivery.UpdatedAt = now
	r.s.deliveries[id] = delivery

	entry := domain.DeliveryLog{
		ID:          uuid.NewString(),
		DeliveryID:  id,
		Description: string(to),
		CreatedAt:   now,
	}
	r.s.logs[id] = append(r.s.logs[id], entry)
	return &delivery, &entry, nil
}

type logRepo struct{ s *Store }

func (r logRepo) CreateIfStatus(_ context.Context, entry *domain.DeliveryLog, status domain.DeliveryStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delivery, ok := r.s.deliveries[entry.DeliveryID]
	if !ok {
		return pgx.ErrNoRows
	}
	if delivery.Status != status {
		return repository.ErrStatusChanged
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = r.s.now()
	r.s.logs[entry.DeliveryID] = append(r.s.logs[entry.DeliveryID], *entry)
	return nil
}

func (r logRepo) ListByDelivery(_ context.Context, deliveryID string) ([]domain.DeliveryLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	entries := r.s.logs[deliveryID]
	result := make([]domain.DeliveryLog, len(entries))
	copy(result, entries)
	return result, nil
}

func (s *Store) emailTaken(email, exceptID string) bool {
	for id, user := range s.users {
		if id != exceptID && strings.EqualFold(user.Email, email) {
			return true
		}
	}
	return false
}
