package handler

import (
	"net/http"

	"github.com/go-playground/validator"
	"github.com/sirupsen/logrus"

	"csc-ledger/internal/models"
	"csc-ledger/internal/services"
)

type Gate struct {
	gateService *services.GateService
	validate    *validator.Validate
	logger      *logrus.Logger
}

func NewGate(mux *http.ServeMux, gateService *services.GateService, logger *logrus.Logger) *Gate {
	h := &Gate{
		gateService: gateService,
		validate:    validator.New(),
		logger:      logger,
	}

	mux.HandleFunc("POST /api/v1/applications", h.submitApplication)
	mux.HandleFunc("POST /api/v1/leads/{leadId}/assign", h.assignLead)

	return h
}

// @Summary Submit a job application
// @Description Spends one of the user's credits and records the application
// @Tags gates
// @Accept json
// @Produce json
// @Param application body models.SubmitApplicationRequest true "Application"
// @Success 201 {object} models.GateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /applications [post]
func (h *Gate) submitApplication(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitApplicationRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	resp, err := h.gateService.SubmitApplication(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "submit application", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// @Summary Assign a lead to a center
// @Description Spends one of the center's credits; a lead is assigned at most once
// @Tags gates
// @Accept json
// @Produce json
// @Param leadId path string true "Lead ID"
// @Param assignment body models.AssignLeadRequest true "Assignment"
// @Success 201 {object} models.GateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /leads/{leadId}/assign [post]
func (h *Gate) assignLead(w http.ResponseWriter, r *http.Request) {
	var req models.AssignLeadRequest
	req.LeadID = r.PathValue("leadId")
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	resp, err := h.gateService.AssignLead(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "assign lead", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}
