// Package memoryrepo keeps ledger state in process memory. It backs tests and
// the STORAGE_DRIVER=memory mode.
package memoryrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"csc-ledger/internal/models"
)

type EntitlementStore struct {
	mu sync.RWMutex

	entitlements map[string]*models.Entitlement
	byReference  map[string]string
}

func NewEntitlementStore() *EntitlementStore {
	return &EntitlementStore{
		entitlements: make(map[string]*models.Entitlement),
		byReference:  make(map[string]string),
	}
}

func (s *EntitlementStore) InsertEntitlement(_ context.Context, e *models.Entitlement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byReference[e.PurchaseReference]; exists {
		return false, nil
	}
	stored := *e
	s.entitlements[e.ID] = &stored
	s.byReference[e.PurchaseReference] = e.ID
	return true, nil
}

func (s *EntitlementStore) GetEntitlement(_ context.Context, entitlementID string) (*models.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entitlements[entitlementID]; ok {
		out := *e
		return &out, nil
	}
	return nil, models.ErrEntitlementNotFound
}

func (s *EntitlementStore) GetEntitlementByReference(_ context.Context, purchaseReference string) (*models.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.byReference[purchaseReference]; ok {
		out := *s.entitlements[id]
		return &out, nil
	}
	return nil, models.ErrEntitlementNotFound
}

func (s *EntitlementStore) ListEntitlements(_ context.Context, ownerID string, ownerKind models.OwnerKind) ([]models.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(e *models.Entitlement) bool {
		return e.OwnerID == ownerID && e.OwnerKind == ownerKind
	}), nil
}

func (s *EntitlementStore) ListConsumable(_ context.Context, ownerID string, ownerKind models.OwnerKind, now time.Time) ([]models.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(e *models.Entitlement) bool {
		return e.OwnerID == ownerID && e.OwnerKind == ownerKind && e.Consumable(now)
	}), nil
}

// IncrementUsed applies the guarded increment under the write lock, which makes
// check and write a single step.
func (s *EntitlementStore) IncrementUsed(_ context.Context, entitlementID string, now time.Time) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entitlements[entitlementID]
	if !ok {
		return 0, false, models.ErrEntitlementNotFound
	}
	if !e.Consumable(now) {
		return 0, false, nil
	}
	e.UsedCredits++
	return e.RemainingCredits(), true, nil
}

func (s *EntitlementStore) DecrementUsed(_ context.Context, entitlementID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entitlements[entitlementID]
	if !ok {
		return 0, false, models.ErrEntitlementNotFound
	}
	if e.UsedCredits == 0 {
		return 0, false, nil
	}
	e.UsedCredits--
	return e.RemainingCredits(), true, nil
}

// collect returns copies ordered oldest purchase first, ties broken by id.
func (s *EntitlementStore) collect(match func(*models.Entitlement) bool) []models.Entitlement {
	result := make([]models.Entitlement, 0)
	for _, e := range s.entitlements {
		if match(e) {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].PurchasedAt.Equal(result[j].PurchasedAt) {
			return result[i].PurchasedAt.Before(result[j].PurchasedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}
