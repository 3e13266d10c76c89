// Package qrcode renders short URLs as QR code images.
package qrcode

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"github.com/mikepea/shorturls/pkg/shorturls/auth"
	"github.com/mikepea/shorturls/pkg/shorturls/links"
	"github.com/skip2/go-qrcode"
)

const (
	defaultSize = 256
	maxSize     = 1024
)

// Handler serves QR codes for links
type Handler struct {
	service *links.Service
	baseURL string
}

// NewHandler creates a new QR code handler
func NewHandler(service *links.Service, baseURL string) *Handler {
	return &Handler{service: service, baseURL: baseURL}
}

// Encode returns a PNG QR code of content, size pixels square.
func Encode(content string, size int) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}

// Get returns a QR code for the link's short URL
// @Summary Get a QR code
// @Description PNG QR code encoding the link's short URL (admin only)
// @Tags links
// @Produce png
// @Param id path int true "Link ID"
// @Param size query int false "Image size in pixels (default 256, max 1024)"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string "Link not found"
// @Security BearerAuth
// @Router /links/{id}/qrcode [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := links.ParseID(c)
	if !ok {
		return
	}

	size := defaultSize
	if s := c.Query("size"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 && parsed <= maxSize {
			size = parsed
		}
	}

	link, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		links.WriteError(c, err)
		return
	}

	png, err := Encode(h.baseURL+"/"+link.Code, size)
	if err != nil {
		glog.Errorf("Encode(%s) %+v", link.Code, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate QR code"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%s.png", link.Code))
	c.Data(http.StatusOK, "image/png", png)
}

// RegisterRoutes registers QR code routes. rg must already authenticate the caller.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/links/:id/qrcode", auth.RequireAdmin(), h.Get)
}
