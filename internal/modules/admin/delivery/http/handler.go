package http

import (
	"context"
	"net/http"

	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/internal/modules/admin/dto"
	adminService "anoa.com/foodrescue/internal/modules/admin/service"
	pointsDto "anoa.com/foodrescue/internal/modules/points/dto"
	pointsService "anoa.com/foodrescue/internal/modules/points/service"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/response"
	"anoa.com/foodrescue/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobRunner runs a registered background job on demand.
type JobRunner interface {
	RunByName(ctx context.Context, name string) error
}

type AdminHandler struct {
	adminService  adminService.AdminService
	pointsService pointsService.PointsService
	jobs          JobRunner
	log           *zap.Logger
}

func NewAdminHandler(adminService adminService.AdminService, pointsService pointsService.PointsService, jobs JobRunner, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminService:  adminService,
		pointsService: pointsService,
		jobs:          jobs,
		log:           log,
	}
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var input dto.CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	user, err := h.adminService.CreateUser(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *AdminHandler) GetUsers(c *gin.Context) {
	var q dto.ListUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	users, err := h.adminService.GetUsersByRole(c.Request.Context(), entity.Role(q.Role))
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *AdminHandler) AdjustPoints(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	var input pointsDto.AdjustPointsRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	userID, err := uuid.Parse(input.UserID)
	if err != nil {
		response.ResponseError(c, h.log, apperror.Validation("invalid user_id"))
		return
	}

	result, err := h.pointsService.AdjustPoints(c.Request.Context(), actor, userID, input.Amount, input.Reason)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *AdminHandler) RunJob(c *gin.Context) {
	if h.jobs == nil {
		response.ResponseError(c, h.log, apperror.NotFound("no jobs registered"))
		return
	}

	name := c.Param("name")
	if err := h.jobs.RunByName(c.Request.Context(), name); err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job completed", "job": name})
}
