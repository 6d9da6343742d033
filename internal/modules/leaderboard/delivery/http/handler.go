package http

import (
	"net/http"

	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/internal/modules/leaderboard/dto"
	leaderboardService "anoa.com/foodrescue/internal/modules/leaderboard/service"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LeaderboardHandler struct {
	service leaderboardService.LeaderboardService
	log     *zap.Logger
}

func NewLeaderboardHandler(service leaderboardService.LeaderboardService, log *zap.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{service: service, log: log}
}

func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	var q dto.LeaderboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ResponseError(c, h.log, apperror.Validation("role must be one of DONOR, NGO, VOLUNTEER"))
		return
	}

	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Limit > 50 {
		q.Limit = 50
	}

	leaderboard, err := h.service.GetLeaderboard(c.Request.Context(), entity.Role(q.Role), q.Limit)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": leaderboard})
}

// Rebuild recomputes a whole role from the ledger. Admin only.
func (h *LeaderboardHandler) Rebuild(c *gin.Context) {
	role := entity.Role(c.Param("role"))
	if role == entity.RoleAdmin || !role.Valid() {
		response.ResponseError(c, h.log, apperror.Validation("unknown role %q", role))
		return
	}

	n, err := h.service.RebuildRole(c.Request.Context(), role)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.RebuildResponse{Role: string(role), Users: n})
}
