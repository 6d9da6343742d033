package service

import (
	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/pkg/apperror"
)

type Event string

const (
	EventAccept      Event = "accept"
	EventAssign      Event = "assign"
	EventStartPickup Event = "start_pickup"
	EventComplete    Event = "complete"
	EventCancel      Event = "cancel"
	EventExpire      Event = "expire"
)

type rule struct {
	from []entity.DonationStatus
	to   entity.DonationStatus
}

var nonTerminal = []entity.DonationStatus{
	entity.DonationCreated,
	entity.DonationAccepted,
	entity.DonationAssigned,
	entity.DonationInTransit,
}

var transitions = map[Event]rule{
	EventAccept:      {from: []entity.DonationStatus{entity.DonationCreated}, to: entity.DonationAccepted},
	EventAssign:      {from: []entity.DonationStatus{entity.DonationAccepted}, to: entity.DonationAssigned},
	EventStartPickup: {from: []entity.DonationStatus{entity.DonationAssigned}, to: entity.DonationInTransit},
	EventComplete: {
		from: []entity.DonationStatus{entity.DonationAccepted, entity.DonationAssigned, entity.DonationInTransit},
		to:   entity.DonationDelivered,
	},
	EventCancel: {from: nonTerminal, to: entity.DonationCancelled},
	EventExpire: {from: nonTerminal, to: entity.DonationExpired},
}

// NextStatus returns the status event leads to from current, or an invalid
// transition error.
func NextStatus(current entity.DonationStatus, event Event) (entity.DonationStatus, error) {
	if current.IsTerminal() {
		return "", apperror.InvalidTransition("donation is %s and accepts no further changes", current)
	}

	r, ok := transitions[event]
	if !ok {
		return "", apperror.InvalidTransition("unknown event %q", event)
	}
	for _, from := range r.from {
		if from == current {
			return r.to, nil
		}
	}
	return "", apperror.InvalidTransition("cannot %s a donation in status %s", event, current)
}

// CanTransition reports whether event is legal from current.
func CanTransition(current entity.DonationStatus, event Event) bool {
	_, err := NextStatus(current, event)
	return err == nil
}
