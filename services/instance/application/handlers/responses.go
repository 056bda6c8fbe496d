package handlers

import (
	"time"

	"github.com/ghuser/appkit/services/instance/domain/models"
)

// InstanceResponse is the latest known state of one service instance.
type InstanceResponse struct {
	ServiceID   string    `json:"service_id"           example:"api-7f9c"`
	ServiceName string    `json:"service_name"         example:"appkit"`
	State       string    `json:"state"                example:"READY"`
	LastError   string    `json:"last_error,omitempty" example:"startup hooks failed: db: connection refused"`
	UpdatedAt   time.Time `json:"updated_at"           example:"2024-01-15T10:30:00Z"`
} // @name InstanceResponse

// TransitionResponse is one recorded lifecycle transition.
type TransitionResponse struct {
	ID         string    `json:"id"              example:"123e4567-e89b-12d3-a456-426614174000"`
	From       string    `json:"from"            example:"READYING"`
	To         string    `json:"to"              example:"READY"`
	Error      string    `json:"error,omitempty" example:""`
	OccurredAt time.Time `json:"occurred_at"     example:"2024-01-15T10:30:00Z"`
} // @name TransitionResponse

// ListInstancesResponse is a page of instances.
type ListInstancesResponse struct {
	Items  []InstanceResponse `json:"items"`
	Total  int                `json:"total"  example:"3"`
	Limit  int                `json:"limit"  example:"20"`
	Offset int                `json:"offset" example:"0"`
} // @name ListInstancesResponse

// ListTransitionsResponse is a page of an instance's transition history.
type ListTransitionsResponse struct {
	Items  []TransitionResponse `json:"items"`
	Total  int                  `json:"total"  example:"5"`
	Limit  int                  `json:"limit"  example:"20"`
	Offset int                  `json:"offset" example:"0"`
} // @name ListTransitionsResponse

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error" example:"instance not found"`
} // @name ErrorResponse

func toInstanceResponse(i *models.Instance) InstanceResponse {
	return InstanceResponse{
		ServiceID:   i.ServiceID.String(),
		ServiceName: i.ServiceName,
		State:       i.State.String(),
		LastError:   i.LastError,
		UpdatedAt:   i.UpdatedAt,
	}
}

func toTransitionResponse(t *models.Transition) TransitionResponse {
	return TransitionResponse{
		ID:         t.ID.String(),
		From:       t.From.String(),
		To:         t.To.String(),
		Error:      t.Error,
		OccurredAt: t.OccurredAt,
	}
}
