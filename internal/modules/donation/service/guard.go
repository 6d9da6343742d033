package service

import (
	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/pkg/apperror"
	"github.com/google/uuid"
)

// guard decides whether an actor may move a donation that already passed
// the status check.
type guard func(d *entity.Donation) error

func isUser(id *uuid.UUID, actor entity.Actor) bool {
	return id != nil && *id == actor.UserID
}

func actingAs(actor entity.Actor, role entity.Role) guard {
	return func(d *entity.Donation) error {
		if actor.Role != role {
			return apperror.Forbidden("role %s cannot act on donation %s", actor.Role, d.ID)
		}
		return nil
	}
}

func acceptingOrgOrAdmin(actor entity.Actor) guard {
	return func(d *entity.Donation) error {
		if actor.Role == entity.RoleAdmin || isUser(d.AcceptedBy, actor) {
			return nil
		}
		return apperror.Forbidden("only the accepting organization can assign donation %s", d.ID)
	}
}

func assignedVolunteer(actor entity.Actor) guard {
	return func(d *entity.Donation) error {
		if isUser(d.AssignedVolunteerID, actor) {
			return nil
		}
		return apperror.Forbidden("only the assigned volunteer can start pickup of donation %s", d.ID)
	}
}

func volunteerOrAcceptingOrg(actor entity.Actor) guard {
	return func(d *entity.Donation) error {
		if isUser(d.AssignedVolunteerID, actor) || isUser(d.AcceptedBy, actor) {
			return nil
		}
		return apperror.Forbidden("only the assigned volunteer or accepting organization can complete donation %s", d.ID)
	}
}

func donorOrgOrAdmin(actor entity.Actor) guard {
	return func(d *entity.Donation) error {
		if actor.Role == entity.RoleAdmin || d.DonorID == actor.UserID || isUser(d.AcceptedBy, actor) {
			return nil
		}
		return apperror.Forbidden("only the donor, accepting organization or an admin can cancel donation %s", d.ID)
	}
}

func donorOrAcceptingOrg(actor entity.Actor) guard {
	return func(d *entity.Donation) error {
		if d.DonorID == actor.UserID || isUser(d.AcceptedBy, actor) {
			return nil
		}
		return apperror.Forbidden("only the donor or accepting organization can rate pickup of donation %s", d.ID)
	}
}
