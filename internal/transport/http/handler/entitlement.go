package handler

import (
	"net/http"

	"github.com/go-playground/validator"
	"github.com/sirupsen/logrus"

	"csc-ledger/internal/models"
	"csc-ledger/internal/services"
)

type Entitlement struct {
	entitlementService *services.EntitlementService
	validate           *validator.Validate
	logger             *logrus.Logger
}

func NewEntitlement(mux *http.ServeMux, entitlementService *services.EntitlementService, logger *logrus.Logger) *Entitlement {
	h := &Entitlement{
		entitlementService: entitlementService,
		validate:           validator.New(),
		logger:             logger,
	}

	mux.HandleFunc("POST /api/v1/entitlements", h.grant)
	mux.HandleFunc("POST /api/v1/entitlements/consume", h.consume)
	mux.HandleFunc("GET /api/v1/entitlements/{entitlementId}/status", h.status)
	mux.HandleFunc("GET /api/v1/owners/{ownerKind}/{ownerId}/entitlements", h.list)

	return h
}

// @Summary Grant an entitlement
// @Description Records a confirmed package purchase. Replaying a purchase reference returns the existing entitlement.
// @Tags entitlements
// @Accept json
// @Produce json
// @Param grant body models.GrantRequest true "Grant Request"
// @Success 201 {object} models.GrantResponse
// @Success 200 {object} models.GrantResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /entitlements [post]
func (h *Entitlement) grant(w http.ResponseWriter, r *http.Request) {
	var req models.GrantRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	resp, err := h.entitlementService.Grant(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "grant entitlement", err)
		return
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

// @Summary Consume one credit
// @Description Spends one credit from the owner's oldest active entitlement
// @Tags entitlements
// @Accept json
// @Produce json
// @Param consume body models.ConsumeRequest true "Consume Request"
// @Success 200 {object} models.ConsumeResult
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /entitlements/consume [post]
func (h *Entitlement) consume(w http.ResponseWriter, r *http.Request) {
	var req models.ConsumeRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	resp, err := h.entitlementService.Consume(r.Context(), req.OwnerID, req.OwnerKind)
	if err != nil {
		writeServiceError(w, h.logger, "consume credit", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary Get entitlement status
// @Tags entitlements
// @Produce json
// @Param entitlementId path string true "Entitlement ID"
// @Success 200 {object} models.EntitlementStatusResponse
// @Failure 404 {object} ErrorResponse
// @Router /entitlements/{entitlementId}/status [get]
func (h *Entitlement) status(w http.ResponseWriter, r *http.Request) {
	entitlementID := r.PathValue("entitlementId")
	if err := h.validate.Var(entitlementID, "required,max=64"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entitlement ID")
		return
	}

	resp, err := h.entitlementService.Status(r.Context(), entitlementID)
	if err != nil {
		writeServiceError(w, h.logger, "get entitlement status", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary List an owner's entitlements
// @Description Every entitlement with its derived status, plus totals
// @Tags entitlements
// @Produce json
// @Param ownerKind path string true "user or center"
// @Param ownerId path string true "Owner ID"
// @Success 200 {object} models.OwnerEntitlementsResponse
// @Failure 400 {object} ErrorResponse
// @Router /owners/{ownerKind}/{ownerId}/entitlements [get]
func (h *Entitlement) list(w http.ResponseWriter, r *http.Request) {
	ownerKind := r.PathValue("ownerKind")
	ownerID := r.PathValue("ownerId")
	if err := h.validate.Var(ownerKind, "required,oneof=user center"); err != nil {
		writeError(w, http.StatusBadRequest, "ownerKind must be user or center")
		return
	}

	resp, err := h.entitlementService.List(r.Context(), ownerID, models.OwnerKind(ownerKind))
	if err != nil {
		writeServiceError(w, h.logger, "list entitlements", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
