// Vet-call HTTP handlers.
//
// The home-visit form is the one public write endpoint:
//   - POST /vet-calls              (public submission, Idempotency-Key aware)
//   - GET  /vet-calls              (admin list, ?status= filter, paginated)
//   - PUT  /vet-calls/{id}/status  (admin workflow transition)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vetsupport/go-vet-backend/internal/domain"
	"github.com/vetsupport/go-vet-backend/internal/http/middleware"
	"github.com/vetsupport/go-vet-backend/internal/services"
)

//
// DTOs
//

// CreateVetCallRequest is the JSON payload of the public home-visit form.
type CreateVetCallRequest struct {
	Name          string `json:"name" binding:"required,min=1,max=255" example:"Alice Smith"`
	Phone         string `json:"phone" binding:"required,min=5,max=32" example:"+7-900-000-00-00"`
	Address       string `json:"address" binding:"required,min=5" example:"Lenina 1, apt 5"`
	PetType       string `json:"pet_type" example:"cat"`
	PetName       string `json:"pet_name" example:"Murka"`
	PetAge        string `json:"pet_age" example:"3 years"`
	Problem       string `json:"problem" binding:"required,min=3" example:"not eating for two days"`
	Urgency       string `json:"urgency" example:"high"`
	PreferredTime string `json:"preferred_time" example:"today evening"`
	Comments      string `json:"comments"`
}

// ListVetCallsResponse wraps a page of vet calls.
type ListVetCallsResponse struct {
	VetCalls   []domain.VetCall `json:"vet_calls"`
	Pagination Pagination       `json:"pagination"`
}

// SetVetCallStatusRequest is the JSON payload for a workflow transition.
type SetVetCallStatusRequest struct {
	Status string `json:"status" binding:"required" example:"approved"`
}

//
// Handlers
//

// CreateVetCall godoc
// @ID          createVetCall
// @Summary     Submit a home-visit request
// @Description Creates a pending vet call. Repeating the request with the same Idempotency-Key returns the original record.
// @Tags        VetCalls
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Client-chosen replay suppression key"
// @Param       body             body    handlers.CreateVetCallRequest  true "Home-visit form"
//
// @Success     201  {object} domain.VetCall
// @Success     200  {object} domain.VetCall "Replay of an earlier submission"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /vet-calls [post]
func (h *Handlers) CreateVetCall(c *gin.Context) {
	var req CreateVetCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, phone, address and problem are required")
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)
	call := &domain.VetCall{
		Name:          req.Name,
		Phone:         req.Phone,
		Address:       req.Address,
		PetType:       req.PetType,
		PetName:       req.PetName,
		PetAge:        req.PetAge,
		Problem:       req.Problem,
		Urgency:       req.Urgency,
		PreferredTime: req.PreferredTime,
		Comments:      req.Comments,
	}

	created, replay, err := h.vetCalls.Submit(c.Request.Context(), call, idemKey)
	switch {
	case err == nil:
		if replay {
			ok(c, http.StatusOK, created)
			return
		}
		ok(c, http.StatusCreated, created)
	case errors.Is(err, services.ErrInvalidVetCall):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, phone, address and problem are required")
	case errors.Is(err, services.ErrDuplicateVetCall):
		ok(c, http.StatusOK, created)
	default:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
	}
}

// ListVetCalls godoc
// @ID          listVetCalls
// @Summary     List home-visit requests (paginated)
// @Description Returns a page of vet calls, newest first. Optional status filter.
// @Tags        VetCalls
// @Produce     json
//
// @Param       status     query  string  false "Filter: pending|approved|completed|cancelled"
// @Param       page       query  int     false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListVetCallsResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /vet-calls [get]
func (h *Handlers) ListVetCalls(c *gin.Context) {
	page, pageSize := clampPagination(c)

	calls, total, err := h.vetCalls.List(c.Request.Context(), c.Query("status"), (page-1)*pageSize, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrInvalidStatus) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown status filter")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListVetCallsResponse{VetCalls: calls, Pagination: pageOf(page, pageSize, total)})
}

// SetVetCallStatus godoc
// @ID          setVetCallStatus
// @Summary     Move a vet call through its workflow
// @Description Sets the status to pending, approved, completed, or cancelled.
// @Tags        VetCalls
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                               true "Vet call ID"
// @Param       body  body  handlers.SetVetCallStatusRequest  true "New status"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Vet call not found"
// @Router      /vet-calls/{id}/status [put]
func (h *Handlers) SetVetCallStatus(c *gin.Context) {
	id, good := pathID(c)
	if !good {
		return
	}
	var req SetVetCallStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}

	err := h.vetCalls.SetStatus(c.Request.Context(), id, req.Status)
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrInvalidStatus):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown status")
	case errors.Is(err, services.ErrVetCallNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "vet call not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
