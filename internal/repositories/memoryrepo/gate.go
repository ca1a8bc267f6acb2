package memoryrepo

import (
	"context"
	"fmt"
	"sync"

	"csc-ledger/internal/models"
)

type GateStore struct {
	mu sync.RWMutex

	applications map[string]*models.JobApplication
	leads        map[string]*models.LeadAssignment
}

func NewGateStore() *GateStore {
	return &GateStore{
		applications: make(map[string]*models.JobApplication),
		leads:        make(map[string]*models.LeadAssignment),
	}
}

func (s *GateStore) CreateApplication(_ context.Context, a *models.JobApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *a
	s.applications[a.ID] = &stored
	return nil
}

func (s *GateStore) ReserveLead(_ context.Context, a *models.LeadAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.leads[a.LeadID]; exists {
		return fmt.Errorf("lead %s: %w", a.LeadID, models.ErrLeadAlreadyAssigned)
	}
	stored := *a
	stored.EntitlementID = ""
	s.leads[a.LeadID] = &stored
	return nil
}

func (s *GateStore) ConfirmLead(_ context.Context, leadID, entitlementID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leads[leadID]
	if !ok || l.EntitlementID != "" {
		return fmt.Errorf("lead %s has no open reservation", leadID)
	}
	l.EntitlementID = entitlementID
	return nil
}

func (s *GateStore) ReleaseLead(_ context.Context, leadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.leads[leadID]; ok && l.EntitlementID == "" {
		delete(s.leads, leadID)
	}
	return nil
}

// Lead returns the assignment of a lead, reserved or confirmed.
func (s *GateStore) Lead(leadID string) (models.LeadAssignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.leads[leadID]
	if !ok {
		return models.LeadAssignment{}, false
	}
	return *l, true
}

// Applications returns the recorded applications of a user.
func (s *GateStore) Applications(userID string) []models.JobApplication {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.JobApplication, 0)
	for _, a := range s.applications {
		if a.UserID == userID {
			result = append(result, *a)
		}
	}
	return result
}
