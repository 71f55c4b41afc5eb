// Consultation admin HTTP handlers.
//
// This file exposes the live-consultation surface of the admin API:
//   - GET  /consultations                  (list, ?status= filter, paginated)
//   - GET  /consultations/{id}/messages    (history, paginated)
//   - POST /consultations/{id}/messages    (inject operator message)
//   - POST /consultations/{id}/reassign    (hand over to another doctor)
//   - POST /consultations/{id}/complete    (close the thread)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vetsupport/go-vet-backend/internal/domain"
	"github.com/vetsupport/go-vet-backend/internal/repo"
	"github.com/vetsupport/go-vet-backend/internal/services"
)

//
// DTOs
//

// ListConsultationsResponse wraps a page of consultation threads.
type ListConsultationsResponse struct {
	Consultations []domain.ActiveConsultation `json:"consultations"`
	Pagination    Pagination                  `json:"pagination"`
}

// ListMessagesResponse wraps a page of a thread's message history.
type ListMessagesResponse struct {
	Messages   []domain.ConsultationMessage `json:"messages"`
	Pagination Pagination                   `json:"pagination"`
}

// InjectMessageRequest is the JSON payload for an operator message.
type InjectMessageRequest struct {
	Username string `json:"username" binding:"required,min=1,max=255" example:"reception"`
	Text     string `json:"text" binding:"required,min=1" example:"A doctor will join within 10 minutes"`
}

// ReassignRequest is the JSON payload for handing a thread to another doctor.
type ReassignRequest struct {
	DoctorID uint `json:"doctor_id" binding:"required" example:"3"`
}

//
// Handlers
//

// ListConsultations godoc
// @ID          listConsultations
// @Summary     List consultation threads (paginated)
// @Description Returns a page of escalation threads, newest first. Optional status filter.
// @Tags        Consultations
// @Produce     json
//
// @Param       status     query  string  false "Filter: waiting|assigned|active|completed"
// @Param       page       query  int     false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListConsultationsResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /consultations [get]
func (h *Handlers) ListConsultations(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	status := strings.TrimSpace(c.Query("status"))
	switch status {
	case "", domain.ActiveStatusWaiting, domain.ActiveStatusAssigned,
		domain.ActiveStatusActive, domain.ActiveStatusCompleted:
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown status filter")
		return
	}

	items, err := repo.ListActiveConsultationsPage(ctx, h.coord.DB, status, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	total, err := repo.CountActiveConsultations(ctx, h.coord.DB, status)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListConsultationsResponse{
		Consultations: items,
		Pagination:    pageOf(page, pageSize, total),
	})
}

// ListConsultationMessages godoc
// @ID          listConsultationMessages
// @Summary     Consultation history (paginated)
// @Description Returns the ordered message history of one thread.
// @Tags        Consultations
// @Produce     json
//
// @Param       id         path   int  true  "Consultation ID"
// @Param       page       query  int  false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Consultation not found"
// @Router      /consultations/{id}/messages [get]
func (h *Handlers) ListConsultationMessages(c *gin.Context) {
	ctx := c.Request.Context()
	id, good := pathID(c)
	if !good {
		return
	}
	page, pageSize := clampPagination(c)

	if _, err := repo.GetActiveConsultation(ctx, h.coord.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "consultation not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	msgs, err := repo.ListConsultationMessagesPage(ctx, h.coord.DB, id, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	total, err := repo.CountConsultationMessages(ctx, h.coord.DB, id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: msgs, Pagination: pageOf(page, pageSize, total)})
}

// InjectMessage godoc
// @ID          injectOperatorMessage
// @Summary     Send an operator message into a thread
// @Description Records the message in the history and delivers it to the client.
// @Tags        Consultations
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                            true "Consultation ID"
// @Param       body  body  handlers.InjectMessageRequest  true "Operator message"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Consultation not found"
// @Failure     409  {object} handlers.ErrorResponse "Consultation closed"
// @Router      /consultations/{id}/messages [post]
func (h *Handlers) InjectMessage(c *gin.Context) {
	id, good := pathID(c)
	if !good {
		return
	}
	var req InjectMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and text required")
		return
	}

	err := h.coord.InjectAdminMessage(c.Request.Context(), id, req.Username, req.Text)
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrConsultationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "consultation not found")
	case errors.Is(err, services.ErrConsultationClosed):
		fail(c, http.StatusConflict, ErrCodeClosed, "consultation is closed")
	case errors.Is(err, services.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text must not be blank")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// Reassign godoc
// @ID          reassignConsultation
// @Summary     Hand a thread over to another doctor
// @Description The target doctor must be approved, active, and different from the current one.
// @Tags        Consultations
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                       true "Consultation ID"
// @Param       body  body  handlers.ReassignRequest  true "Target doctor"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Consultation or doctor not found"
// @Failure     409  {object} handlers.ErrorResponse "Conflict"
// @Router      /consultations/{id}/reassign [post]
func (h *Handlers) Reassign(c *gin.Context) {
	id, good := pathID(c)
	if !good {
		return
	}
	var req ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DoctorID == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "doctor_id required")
		return
	}

	err := h.coord.Reassign(c.Request.Context(), id, req.DoctorID)
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrConsultationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "consultation not found")
	case errors.Is(err, services.ErrDoctorNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "doctor not found")
	case errors.Is(err, services.ErrDoctorNotEligible):
		fail(c, http.StatusConflict, ErrCodeConflict, "doctor is not approved or is paused")
	case errors.Is(err, services.ErrSameDoctor):
		fail(c, http.StatusConflict, ErrCodeConflict, "doctor is already assigned to this consultation")
	case errors.Is(err, services.ErrConsultationClosed):
		fail(c, http.StatusConflict, ErrCodeClosed, "consultation is closed")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// Complete godoc
// @ID          completeConsultation
// @Summary     Close a consultation thread
// @Description Marks the thread completed and notifies both participants.
// @Tags        Consultations
// @Produce     json
//
// @Param       id  path  int  true "Consultation ID"
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Consultation not found"
// @Failure     409  {object} handlers.ErrorResponse "Consultation closed"
// @Router      /consultations/{id}/complete [post]
func (h *Handlers) Complete(c *gin.Context) {
	id, good := pathID(c)
	if !good {
		return
	}

	err := h.coord.Complete(c.Request.Context(), id)
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrConsultationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "consultation not found")
	case errors.Is(err, services.ErrConsultationClosed):
		fail(c, http.StatusConflict, ErrCodeClosed, "consultation is already closed")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
