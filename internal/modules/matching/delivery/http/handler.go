package http

import (
	"context"
	"net/http"

	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/internal/modules/matching/dto"
	matchingService "anoa.com/foodrescue/internal/modules/matching/service"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MatchingHandler struct {
	service matchingService.MatchingService
	log     *zap.Logger
}

func NewMatchingHandler(service matchingService.MatchingService, log *zap.Logger) *MatchingHandler {
	return &MatchingHandler{service: service, log: log}
}

func (h *MatchingHandler) NearbyNGOs(c *gin.Context) {
	h.nearbyUsers(c, h.service.NearbyNGOs)
}

func (h *MatchingHandler) NearbyVolunteers(c *gin.Context) {
	h.nearbyUsers(c, h.service.NearbyVolunteers)
}

func (h *MatchingHandler) NearbyDonations(c *gin.Context) {
	q, radius, ok := h.bind(c)
	if !ok {
		return
	}

	donations, err := h.service.NearbyDonations(c.Request.Context(), *q.Lat, *q.Lng, &radius, entity.DonationStatus(q.Status))
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NearbyResponse[dto.NearbyDonation]{Data: donations, RadiusKm: radius})
}

type userSearch func(ctx context.Context, lat, lng float64, radiusKm *float64) ([]dto.NearbyUser, error)

func (h *MatchingHandler) nearbyUsers(c *gin.Context, search userSearch) {
	q, radius, ok := h.bind(c)
	if !ok {
		return
	}

	users, err := search(c.Request.Context(), *q.Lat, *q.Lng, &radius)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NearbyResponse[dto.NearbyUser]{Data: users, RadiusKm: radius})
}

func (h *MatchingHandler) bind(c *gin.Context) (dto.NearbyQuery, float64, bool) {
	var q dto.NearbyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ResponseError(c, h.log, apperror.Validation("lat and lng are required"))
		return q, 0, false
	}

	radius, err := h.service.Radius(q.RadiusKm)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return q, 0, false
	}
	return q, radius, true
}
