package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopmate/backend/internal/services"
	"github.com/shopmate/backend/internal/store"
)

type AdminHandler struct {
	DB     *sql.DB
	Images services.ImageStore
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}

	result, err := store.ListUsers(c.Request.Context(), h.DB, page)
	if err != nil {
		handleError(c, err)
		return
	}

	respond(c, http.StatusOK, "users fetched", gin.H{"users": result})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID, ok := paramID(c, "userID")
	if !ok {
		return
	}

	if userID == currentUser(c).ID {
		respondError(c, http.StatusBadRequest, "you cannot delete your own account")
		return
	}

	ctx := c.Request.Context()

	user, err := store.DeleteUser(ctx, h.DB, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	if user.Avatar.AssetID != "" {
		if err := h.Images.Destroy(ctx, user.Avatar.AssetID); err != nil {
			respondError(c, http.StatusInternalServerError, "user deleted but avatar cleanup failed")
			return
		}
	}

	respond(c, http.StatusOK, "user deleted", nil)
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := store.GetDashboardStats(c.Request.Context(), h.DB)
	if err != nil {
		handleError(c, err)
		return
	}

	respond(c, http.StatusOK, "dashboard stats fetched", gin.H{"stats": stats})
}
