package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carebridge/carebridge-api/internal/models"
	"github.com/carebridge/carebridge-api/internal/service"
	appErrors "github.com/carebridge/carebridge-api/pkg/errors"
	"github.com/carebridge/carebridge-api/pkg/response"
)

// MediaHandler exposes upload and signed download endpoints.
type MediaHandler struct {
	service *service.MediaService
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(svc *service.MediaService) *MediaHandler {
	return &MediaHandler{service: svc}
}

type mediaUploadResponse struct {
	File  *models.MediaFile `json:"file"`
	Token string            `json:"token"`
}

// Upload godoc
// @Summary Upload media
// @Description Store a file and return its record plus a signed download token
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File"
// @Param resource formData string false "Owning resource"
// @Param resource_id formData string false "Owning resource ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /media [post]
func (h *MediaHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}

	src, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close()

	var resource, resourceID *string
	if v := c.PostForm("resource"); v != "" {
		resource = &v
	}
	if v := c.PostForm("resource_id"); v != "" {
		resourceID = &v
	}

	contentType := header.Header.Get("Content-Type")
	file, token, err := h.service.Upload(c.Request.Context(), claimsFromContext(c), header.Filename, contentType, header.Size, src, resource, resourceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mediaUploadResponse{File: file, Token: token})
}

// Get godoc
// @Summary Get media record
// @Description Returns the record with a fresh signed download token
// @Tags Media
// @Produce json
// @Param id path string true "Media ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /media/{id} [get]
func (h *MediaHandler) Get(c *gin.Context) {
	file, token, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mediaUploadResponse{File: file, Token: token}, nil)
}

// List godoc
// @Summary List media records
// @Description Carers only see their own uploads
// @Tags Media
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param resource query string false "Owning resource filter"
// @Param resource_id query string false "Owning resource ID filter"
// @Success 200 {object} response.Envelope
// @Router /media [get]
func (h *MediaHandler) List(c *gin.Context) {
	var filter models.MediaFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.Resource = c.Query("resource")
	filter.ResourceID = c.Query("resource_id")

	files, total, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, files, paginationFrom(filter.Page, filter.PageSize, total))
}

// Download godoc
// @Summary Download media
// @Description Streams the file for a valid signed token
// @Tags Media
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /media/download [get]
func (h *MediaHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, reader, err := h.service.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Header("Content-Type", file.ContentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		_ = c.Error(err)
	}
}
