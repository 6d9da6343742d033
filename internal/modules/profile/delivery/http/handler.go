package http

import (
	"net/http"

	profile "anoa.com/foodrescue/internal/modules/profile/service"
	"anoa.com/foodrescue/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	profileService profile.ProfileService
	log            *zap.Logger
}

func NewProfileHandler(profileService profile.ProfileService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		log:            log,
	}
}

func (h *ProfileHandler) MyPoints(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	page, limit := response.Pagination(c, 20)
	summary, err := h.profileService.GetPoints(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *ProfileHandler) MyAchievements(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	achievements, err := h.profileService.GetAchievements(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": achievements})
}

func (h *ProfileHandler) MyBadges(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	badges, err := h.profileService.GetBadges(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": badges})
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	res, err := h.profileService.GetPublicProfile(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
