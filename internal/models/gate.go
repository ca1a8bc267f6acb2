package models

import "time"

type JobApplication struct {
	ID            string    `db:"id" json:"applicationId"`
	UserID        string    `db:"user_id" json:"userId"`
	JobID         string    `db:"job_id" json:"jobId"`
	EntitlementID string    `db:"entitlement_id" json:"entitlementId"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

type LeadAssignment struct {
	LeadID        string    `db:"lead_id" json:"leadId"`
	CenterID      string    `db:"center_id" json:"centerId"`
	EntitlementID string    `db:"entitlement_id" json:"entitlementId"`
	AssignedAt    time.Time `db:"assigned_at" json:"assignedAt"`
}

type SubmitApplicationRequest struct {
	UserID string `json:"userId" validate:"required,max=64"`
	JobID  string `json:"jobId" validate:"required,max=64"`
}

type AssignLeadRequest struct {
	LeadID   string `json:"-" validate:"required,max=64"`
	CenterID string `json:"centerId" validate:"required,max=64"`
}

type GateResponse struct {
	ID               string `json:"id"`
	EntitlementID    string `json:"entitlementId"`
	RemainingCredits int    `json:"remainingCredits"`
}
