// Package api contains the HTTP request contracts of the ads hub.
// Version v1 represents the current stable API version.
package api

import (
	"adshub/pkg/contracts/domain"
)

// OperationStartRequest starts a pipeline run
type OperationStartRequest struct {
	// Step runs a single stage instead of the whole pipeline
	Step       string                 `json:"step,omitempty" validate:"omitempty,oneof=merge hr-extract standardize master rolling persist publish"`
	Strategy   string                 `json:"strategy,omitempty" validate:"omitempty,oneof=croatia-spend croatia-only"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// OperationListRequest lists pipeline runs
type OperationListRequest struct {
	Status string `json:"status" query:"status" validate:"omitempty,oneof=pending running completed failed cancelled"`
	Limit  int    `json:"limit" query:"limit" validate:"omitempty,min=1,max=500"`
}

// EstimatorQueryRequest is the body of the estimator campaign and summary
// endpoints
type EstimatorQueryRequest struct {
	domain.EstimatorFilter
}

// AuditRunRequest selects audits to run in one call
type AuditRunRequest struct {
	Names []string `json:"names" validate:"required,min=1,dive,required"`
	XLSX  string   `json:"xlsx,omitempty"`
}
