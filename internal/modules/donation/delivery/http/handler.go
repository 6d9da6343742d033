package http

import (
	"net/http"

	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/internal/modules/donation/dto"
	donationService "anoa.com/foodrescue/internal/modules/donation/service"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/response"
	"anoa.com/foodrescue/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DonationHandler struct {
	service donationService.DonationService
	log     *zap.Logger
}

func NewDonationHandler(service donationService.DonationService, log *zap.Logger) *DonationHandler {
	return &DonationHandler{service: service, log: log}
}

func (h *DonationHandler) CreateDonation(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	var req dto.CreateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	donation, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, donation)
}

func (h *DonationHandler) GetMyDonations(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	page, limit := response.Pagination(c, 20)
	res, err := h.service.ListByDonor(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *DonationHandler) GetDonation(c *gin.Context) {
	id, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *DonationHandler) DeleteDonation(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "donation deleted successfully"})
}

func (h *DonationHandler) Accept(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	h.respond(c, func() (*entity.Donation, error) {
		return h.service.Accept(c.Request.Context(), actor, id)
	})
}

func (h *DonationHandler) AssignVolunteer(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req dto.AssignVolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	volunteerID, err := uuid.Parse(req.VolunteerID)
	if err != nil {
		response.ResponseError(c, h.log, apperror.Validation("invalid volunteer_id"))
		return
	}

	h.respond(c, func() (*entity.Donation, error) {
		return h.service.AssignVolunteer(c.Request.Context(), actor, id, volunteerID)
	})
}

func (h *DonationHandler) StartPickup(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	h.respond(c, func() (*entity.Donation, error) {
		return h.service.StartPickup(c.Request.Context(), actor, id)
	})
}

func (h *DonationHandler) Complete(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	h.respond(c, func() (*entity.Donation, error) {
		return h.service.Complete(c.Request.Context(), actor, id)
	})
}

func (h *DonationHandler) Cancel(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	// the body is optional
	var req dto.CancelDonationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
			return
		}
	}

	h.respond(c, func() (*entity.Donation, error) {
		return h.service.Cancel(c.Request.Context(), actor, id, req.Reason)
	})
}

func (h *DonationHandler) RatePickup(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}
	donationID, err := response.ParseUUIDParam(c, "donation_id")
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	var req dto.RatePickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	assignment, err := h.service.RatePickup(c.Request.Context(), actor, donationID, req.Rating, req.Feedback)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

func (h *DonationHandler) actorAndID(c *gin.Context) (entity.Actor, uuid.UUID, bool) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return actor, uuid.Nil, false
	}
	id, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, h.log, err)
		return actor, uuid.Nil, false
	}
	return actor, id, true
}

func (h *DonationHandler) respond(c *gin.Context, transition func() (*entity.Donation, error)) {
	donation, err := transition()
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, donation)
}
