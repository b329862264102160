package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
	"github.com/ksultani/go-dinebot-backend/internal/utils"
)

// maxMenuPageSize bounds the ?limit= query parameter.
const maxMenuPageSize = 100

// MenuResponse is the payload returned by the menu endpoint.
type MenuResponse struct {
	Items []domain.MenuItem `json:"items"`
	Total int               `json:"total" example:"28"`
}

// GetMenu godoc
// @ID          getMenu
// @Summary     List available menu items
// @Description Returns the catalog of currently available items, optionally filtered by category.
// @Tags        Menu
// @Produce     json
//
// @Param       category  query  string  false  "Filter by category (case-insensitive)"  example(burgers)
// @Param       limit     query  int     false  "Cap the number of returned items"       example(10)
//
// @Success     200  {object}  handlers.MenuResponse   "Available items"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /menu [get]
func (h *Handlers) GetMenu(c *gin.Context) {
	items, err := h.menu.Items(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeMenuFailed, "could not load menu")
		return
	}

	if cat := strings.TrimSpace(c.Query("category")); cat != "" {
		filtered := make([]domain.MenuItem, 0, len(items))
		for _, it := range items {
			if strings.EqualFold(it.Category, cat) {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}

	if raw := c.Query("limit"); raw != "" {
		limit := utils.ClampInt(utils.AtoiDefault(raw, len(items)), 1, maxMenuPageSize)
		if limit < len(items) {
			items = items[:limit]
		}
	}

	ok(c, http.StatusOK, MenuResponse{Items: items, Total: len(items)})
}
