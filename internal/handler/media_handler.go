package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parleychat/parley-backend/internal/common"
	"github.com/parleychat/parley-backend/internal/middleware"
	"github.com/parleychat/parley-backend/pkg/storage"
)

const (
	maxUploadBytes = 20 << 20 // 20 MiB
	presignTTL     = 15 * time.Minute
)

// MediaHandler handles media upload and URL retrieval. Uploads return
// an opaque storage key; clients attach the key to a message and
// resolve it to a short-lived URL on render.
type MediaHandler struct {
	storage *storage.S3Client
}

// NewMediaHandler creates a new MediaHandler. storage may be nil when
// object storage is not configured; endpoints then report 503.
func NewMediaHandler(s3 *storage.S3Client) *MediaHandler {
	return &MediaHandler{storage: s3}
}

// Upload handles POST /media
// @Summary Upload a media file
// @Tags media
// @Accept mpfd
// @Produce json
// @Param file formData file true "file to upload"
// @Success 200 {object} common.APIResponse
// @Router /media [post]
func (h *MediaHandler) Upload(c *gin.Context) {
	if h.storage == nil {
		common.ErrorResponse(c, http.StatusServiceUnavailable, "media storage not configured", nil)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "file is required", err)
		return
	}
	if file.Size > maxUploadBytes {
		common.ErrorResponse(c, http.StatusBadRequest, "file too large", nil)
		return
	}

	src, err := file.Open()
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "cannot read file", err)
		return
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := storage.GenerateKey("chat/"+middleware.GetUserID(c), file.Filename)
	storedKey, err := h.storage.Upload(c.Request.Context(), key, src, contentType)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "upload failed", err)
		return
	}

	common.SuccessResponse(c, gin.H{"key": storedKey}, nil)
}

// URL handles GET /media/:key/url
// @Summary Short-lived download URL for a stored object
// @Tags media
// @Produce json
// @Param key path string true "storage key"
// @Success 200 {object} common.APIResponse
// @Router /media/{key}/url [get]
func (h *MediaHandler) URL(c *gin.Context) {
	if h.storage == nil {
		common.ErrorResponse(c, http.StatusServiceUnavailable, "media storage not configured", nil)
		return
	}

	key := c.Param("key")
	if key == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "key is required", nil)
		return
	}

	url, err := h.storage.PresignedURL(c.Request.Context(), key, presignTTL)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "presign failed", err)
		return
	}

	common.SuccessResponse(c, gin.H{"url": url}, nil)
}
