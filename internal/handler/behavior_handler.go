package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carebridge/carebridge-api/internal/dto"
	"github.com/carebridge/carebridge-api/internal/middleware"
	"github.com/carebridge/carebridge-api/internal/models"
	"github.com/carebridge/carebridge-api/internal/service"
	appErrors "github.com/carebridge/carebridge-api/pkg/errors"
	"github.com/carebridge/carebridge-api/pkg/response"
)

// BehaviorHandler exposes behavior incident and risk endpoints.
type BehaviorHandler struct {
	service *service.BehaviorService
}

// NewBehaviorHandler creates a new behavior handler.
func NewBehaviorHandler(svc *service.BehaviorService) *BehaviorHandler {
	return &BehaviorHandler{service: svc}
}

// Report godoc
// @Summary Report incident
// @Description Record a behavior incident, optionally tagged to an activity
// @Tags Behavior
// @Accept json
// @Produce json
// @Param payload body dto.ReportIncidentRequest true "Incident payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /incidents [post]
func (h *BehaviorHandler) Report(c *gin.Context) {
	var req dto.ReportIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	incident, err := h.service.Report(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, incident)
}

// Get godoc
// @Summary Get incident
// @Tags Behavior
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /incidents/{id} [get]
func (h *BehaviorHandler) Get(c *gin.Context) {
	incident, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incident, nil)
}

// List godoc
// @Summary List incidents
// @Description Carers only see incidents they reported
// @Tags Behavior
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param activity_id query string false "Activity filter"
// @Param client_id query string false "Client filter"
// @Param critical query bool false "Only critical incidents"
// @Success 200 {object} response.Envelope
// @Router /incidents [get]
func (h *BehaviorHandler) List(c *gin.Context) {
	var filter models.IncidentFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.ActivityID = c.Query("activity_id")
	filter.ClientID = c.Query("client_id")
	if critical := queryBool(c, "critical"); critical != nil {
		filter.Critical = *critical
	}
	filter.DateFrom = queryTime(c, "date_from")
	filter.DateTo = queryTime(c, "date_to")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	incidents, total, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incidents, paginationFrom(filter.Page, filter.PageSize, total))
}

// Update godoc
// @Summary Update incident
// @Description Amend follow-up details; locked for the reporter once reviewed
// @Tags Behavior
// @Accept json
// @Produce json
// @Param id path string true "Incident ID"
// @Param payload body dto.UpdateIncidentRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /incidents/{id} [put]
func (h *BehaviorHandler) Update(c *gin.Context) {
	var req dto.UpdateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	incident, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incident, nil)
}

// Review godoc
// @Summary Review incident
// @Tags Behavior
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /incidents/{id}/review [post]
func (h *BehaviorHandler) Review(c *gin.Context) {
	incident, err := h.service.Review(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incident, nil)
}

// Risk godoc
// @Summary Activity risk
// @Description Derived behavioral risk classification for an activity
// @Tags Behavior
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Router /activities/{id}/risk [get]
func (h *BehaviorHandler) Risk(c *gin.Context) {
	risk, hit, err := h.service.Risk(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, risk, nil, middleware.ExtractMeta(c))
}

// RiskSummary godoc
// @Summary Activity risk summary
// @Description Full incident analytics view for an activity
// @Tags Behavior
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Router /activities/{id}/risk-summary [get]
func (h *BehaviorHandler) RiskSummary(c *gin.Context) {
	summary, err := h.service.RiskSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
