package redirect

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/shorturls/pkg/shorturls/links"
)

// Handler handles redirect requests
type Handler struct {
	service *links.Service
}

// NewHandler creates a new redirect handler
func NewHandler(service *links.Service) *Handler {
	return &Handler{service: service}
}

// ResolveResponse is returned by the JSON resolve endpoint
type ResolveResponse struct {
	Destination string `json:"destination"`
}

// Redirect sends the caller to the link's destination and counts the click.
// Unknown and inactive codes get 404, expired ones 410.
func (h *Handler) Redirect(c *gin.Context) {
	destination, err := h.service.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		links.WriteError(c, err)
		return
	}

	c.Redirect(http.StatusFound, destination)
}

// Resolve returns the destination as JSON and counts the click
// @Summary Resolve a short code
// @Description Look up the destination for a code. Counts as a click.
// @Tags redirect
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} ResolveResponse
// @Failure 404 {object} map[string]string "Link not found"
// @Failure 410 {object} map[string]string "Link has expired"
// @Router /resolve/{code} [get]
func (h *Handler) Resolve(c *gin.Context) {
	destination, err := h.service.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		links.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, ResolveResponse{Destination: destination})
}

// RegisterAPIRoutes registers the JSON resolve endpoint on the API group
func (h *Handler) RegisterAPIRoutes(rg *gin.RouterGroup) {
	rg.GET("/resolve/:code", h.Resolve)
}

// RegisterRoutes registers redirect routes on the root router
// This should be called AFTER all other routes to avoid conflicts
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/:code", h.Redirect)
}
