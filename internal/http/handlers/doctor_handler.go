// Doctor admin HTTP handlers.
//
// This file exposes REST endpoints for the doctor roster:
//   - GET  /doctors                (list, paginated)
//   - PUT  /doctors/{id}/approval  (approve / revoke)
//   - PUT  /doctors/{id}/active    (pause / resume)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vetsupport/go-vet-backend/internal/domain"
	"github.com/vetsupport/go-vet-backend/internal/repo"
	"github.com/vetsupport/go-vet-backend/internal/services"
	"github.com/vetsupport/go-vet-backend/internal/utils"
)

//
// Handler wiring
//

// Handlers groups the admin and public HTTP endpoints. It depends on the
// service layer; the raw DB handle is only used for read-side listing and the
// dashboard stats.
type Handlers struct {
	coord    *services.Coordinator
	doctors  *services.DoctorService
	vetCalls *services.VetCallService
}

// New constructs a Handlers instance bound to the given services.
func New(coord *services.Coordinator, doctors *services.DoctorService, vetCalls *services.VetCallService) *Handlers {
	return &Handlers{coord: coord, doctors: doctors, vetCalls: vetCalls}
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListDoctorsResponse wraps a page of doctors and pagination information.
type ListDoctorsResponse struct {
	Doctors    []domain.Doctor `json:"doctors"`
	Pagination Pagination      `json:"pagination"`
}

// SetApprovalRequest is the JSON payload for approving or revoking a doctor.
type SetApprovalRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

// SetActiveRequest is the JSON payload for pausing or resuming a doctor.
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// pageOf computes the pagination envelope for a result page.
func pageOf(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// pathID parses the :id path param as an unsigned integer.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

//
// Handlers
//

// ListDoctors godoc
// @ID          listDoctors
// @Summary     List doctors (paginated)
// @Description Returns a page of registered doctors, newest first.
// @Tags        Doctors
// @Produce     json
//
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListDoctorsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /doctors [get]
func (h *Handlers) ListDoctors(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	items, err := repo.ListDoctorsPage(ctx, h.coord.DB, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	total, err := repo.CountDoctors(ctx, h.coord.DB, false)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListDoctorsResponse{Doctors: items, Pagination: pageOf(page, pageSize, total)})
}

// SetDoctorApproval godoc
// @ID          setDoctorApproval
// @Summary     Approve or revoke a doctor
// @Description Approved doctors start receiving new client notifications.
// @Tags        Doctors
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                           true "Doctor ID"
// @Param       body  body  handlers.SetApprovalRequest   true "Approval payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Doctor not found"
// @Router      /doctors/{id}/approval [put]
func (h *Handlers) SetDoctorApproval(c *gin.Context) {
	id, good := pathID(c)
	if !good {
		return
	}
	var req SetApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Approved == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "approved (bool) required")
		return
	}

	if err := h.doctors.Approve(c.Request.Context(), id, *req.Approved); err != nil {
		if errors.Is(err, services.ErrDoctorNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "doctor not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// SetDoctorActive godoc
// @ID          setDoctorActive
// @Summary     Pause or resume a doctor
// @Description Paused doctors keep their current consultation but receive no new clients.
// @Tags        Doctors
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                        true "Doctor ID"
// @Param       body  body  handlers.SetActiveRequest  true "Availability payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Doctor not found"
// @Router      /doctors/{id}/active [put]
func (h *Handlers) SetDoctorActive(c *gin.Context) {
	id, good := pathID(c)
	if !good {
		return
	}
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "active (bool) required")
		return
	}

	if err := repo.SetDoctorActive(c.Request.Context(), h.coord.DB, id, *req.Active); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "doctor not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// Stats godoc
// @ID          dashboardStats
// @Summary     Dashboard counters
// @Description Returns aggregate counters for the admin dashboard.
// @Tags        Admin
// @Produce     json
//
// @Success     200  {object} repo.DashboardStats
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /stats [get]
func (h *Handlers) Stats(c *gin.Context) {
	stats, err := repo.CollectDashboardStats(c.Request.Context(), h.coord.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}
