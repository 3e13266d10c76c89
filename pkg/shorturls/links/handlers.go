package links

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"github.com/mikepea/shorturls/pkg/shorturls/auth"
	"github.com/mikepea/shorturls/pkg/shorturls/models"
)

// Handler handles link-related requests
type Handler struct {
	service *Service
	baseURL string
}

// NewHandler creates a new links handler. baseURL prefixes short URLs in responses.
func NewHandler(service *Service, baseURL string) *Handler {
	return &Handler{service: service, baseURL: baseURL}
}

// CreateLinkRequest represents the request to create a link
type CreateLinkRequest struct {
	Destination string     `json:"destination" binding:"required"`
	Code        string     `json:"code" binding:"omitempty,max=64"`
	Title       string     `json:"title"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// UpdateLinkRequest represents a partial update. Omitted fields are left
// unchanged; "expires_at": null removes the expiry.
type UpdateLinkRequest struct {
	Code        *string         `json:"code" binding:"omitempty,min=1,max=64"`
	Destination *string         `json:"destination"`
	Title       *string         `json:"title"`
	Active      *bool           `json:"active"`
	ExpiresAt   json.RawMessage `json:"expires_at" swaggertype:"string" format:"date-time"`
}

// LinkResponse represents a link in API responses
type LinkResponse struct {
	ID          uint       `json:"id"`
	Code        string     `json:"code"`
	ShortURL    string     `json:"short_url"`
	Destination string     `json:"destination"`
	Title       string     `json:"title"`
	Active      bool       `json:"active"`
	ExpiresAt   *time.Time `json:"expires_at"`
	CreatedByID *uint      `json:"created_by_id"`
	Clicks      int64      `json:"clicks"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

func (h *Handler) linkToResponse(link models.Link) LinkResponse {
	return LinkResponse{
		ID:          link.ID,
		Code:        link.Code,
		ShortURL:    h.baseURL + "/" + link.Code,
		Destination: link.Destination,
		Title:       link.Title,
		Active:      link.Active,
		ExpiresAt:   link.ExpiresAt,
		CreatedByID: link.CreatedByID,
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   link.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// WriteError maps a service error to its HTTP status and a JSON body.
func WriteError(c *gin.Context, err error) {
	var validationErr *ValidationError
	var conflictErr *ConflictError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"error": "Code already in use"})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
	case errors.Is(err, ErrGone):
		c.JSON(http.StatusGone, gin.H{"error": "Link has expired"})
	case errors.Is(err, ErrAllocationExhausted):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate unique code"})
	default:
		glog.Errorf("%s %s %+v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// ParseID reads the :id path parameter.
func ParseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid link ID"})
		return 0, false
	}
	return uint(id), true
}

// Create creates a new link
// @Summary Create a link
// @Description Shorten a URL. Without a code, a random one is generated.
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link details"
// @Success 201 {object} LinkResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Code already in use"
// @Failure 500 {object} map[string]string "No unique code could be generated"
// @Security BearerAuth
// @Router /links [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	createReq := CreateRequest{
		Code:        req.Code,
		Destination: req.Destination,
		Title:       req.Title,
		ExpiresAt:   req.ExpiresAt,
	}
	if userID, ok := auth.GetUserID(c); ok {
		createReq.CreatedByID = &userID
	}

	link, err := h.service.Create(c.Request.Context(), createReq)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.linkToResponse(*link))
}

// List returns all links
// @Summary List links
// @Description List links, newest first, optionally filtered by code, destination or title (admin only)
// @Tags links
// @Produce json
// @Param q query string false "Case-insensitive filter"
// @Success 200 {array} LinkResponse
// @Failure 403 {object} map[string]string "Admin access required"
// @Security BearerAuth
// @Router /links [get]
func (h *Handler) List(c *gin.Context) {
	links, err := h.service.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		WriteError(c, err)
		return
	}

	responses := make([]LinkResponse, len(links))
	for i, link := range links {
		responses[i] = h.linkToResponse(link)
	}

	c.JSON(http.StatusOK, responses)
}

// Get returns a link by id
// @Summary Get a link
// @Description Get link details by id, including inactive and expired links (admin only)
// @Tags links
// @Produce json
// @Param id path int true "Link ID"
// @Success 200 {object} LinkResponse
// @Failure 404 {object} map[string]string "Link not found"
// @Security BearerAuth
// @Router /links/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := ParseID(c)
	if !ok {
		return
	}

	link, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.linkToResponse(*link))
}

// Update updates a link
// @Summary Update a link
// @Description Partially update a link (admin only). Send "expires_at": null to remove the expiry.
// @Tags links
// @Accept json
// @Produce json
// @Param id path int true "Link ID"
// @Param request body UpdateLinkRequest true "Fields to change"
// @Success 200 {object} LinkResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Link not found"
// @Failure 409 {object} map[string]string "Code already in use"
// @Security BearerAuth
// @Router /links/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	id, ok := ParseID(c)
	if !ok {
		return
	}

	var req UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changes := Changes{
		Code:        req.Code,
		Destination: req.Destination,
		Title:       req.Title,
		Active:      req.Active,
	}

	switch raw := bytes.TrimSpace(req.ExpiresAt); {
	case len(raw) == 0:
	case bytes.Equal(raw, []byte("null")):
		changes.ClearExpiresAt = true
	default:
		var expiresAt time.Time
		if err := json.Unmarshal(raw, &expiresAt); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expires_at must be an RFC 3339 timestamp or null"})
			return
		}
		changes.ExpiresAt = &expiresAt
	}

	link, err := h.service.Update(c.Request.Context(), id, changes)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.linkToResponse(*link))
}

// Delete deletes a link
// @Summary Delete a link
// @Description Delete a link by id, releasing its code (admin only)
// @Tags links
// @Produce json
// @Param id path int true "Link ID"
// @Success 200 {object} map[string]string "Link deleted"
// @Failure 404 {object} map[string]string "Link not found"
// @Security BearerAuth
// @Router /links/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := ParseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link deleted"})
}

// RegisterRoutes registers link routes. rg must already authenticate the
// caller; everything except creation additionally requires an admin.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/links", h.Create)

	admin := rg.Group("/links", auth.RequireAdmin())
	admin.GET("", h.List)
	admin.GET("/:id", h.Get)
	admin.PUT("/:id", h.Update)
	admin.DELETE("/:id", h.Delete)
}
