package service

import (
	"context"

	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/internal/modules/matching/dto"
	userRepo "anoa.com/foodrescue/internal/modules/user/repository"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/geo"
	"go.uber.org/zap"
)

// DonationFinder lists donations in a given status.
type DonationFinder interface {
	FindByStatus(ctx context.Context, status entity.DonationStatus) ([]*entity.Donation, error)
}

type MatchingService interface {
	NearbyNGOs(ctx context.Context, lat, lng float64, radiusKm *float64) ([]dto.NearbyUser, error)
	NearbyVolunteers(ctx context.Context, lat, lng float64, radiusKm *float64) ([]dto.NearbyUser, error)
	// NearbyDonations searches donations in status, CREATED when empty.
	NearbyDonations(ctx context.Context, lat, lng float64, radiusKm *float64, status entity.DonationStatus) ([]dto.NearbyDonation, error)
	// Radius resolves a requested radius against the configured default.
	Radius(radiusKm *float64) (float64, error)
}

type matchingService struct {
	userRepo      userRepo.UserRepository
	donations     DonationFinder
	defaultRadius float64
	log           *zap.Logger
}

func NewMatchingService(userRepo userRepo.UserRepository, donations DonationFinder, defaultRadiusKm float64, log *zap.Logger) MatchingService {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = 10
	}
	return &matchingService{
		userRepo:      userRepo,
		donations:     donations,
		defaultRadius: defaultRadiusKm,
		log:           log,
	}
}

func (s *matchingService) Radius(radiusKm *float64) (float64, error) {
	if radiusKm == nil {
		return s.defaultRadius, nil
	}
	if *radiusKm < 0 {
		return 0, apperror.Validation("radius must not be negative")
	}
	return *radiusKm, nil
}

func (s *matchingService) NearbyNGOs(ctx context.Context, lat, lng float64, radiusKm *float64) ([]dto.NearbyUser, error) {
	return s.nearbyUsers(ctx, entity.RoleNGO, lat, lng, radiusKm)
}

func (s *matchingService) NearbyVolunteers(ctx context.Context, lat, lng float64, radiusKm *float64) ([]dto.NearbyUser, error) {
	return s.nearbyUsers(ctx, entity.RoleVolunteer, lat, lng, radiusKm)
}

func (s *matchingService) nearbyUsers(ctx context.Context, role entity.Role, lat, lng float64, radiusKm *float64) ([]dto.NearbyUser, error) {
	radius, err := s.origin(lat, lng, radiusKm)
	if err != nil {
		return nil, err
	}

	users, err := s.userRepo.FindByRoleWithLocation(ctx, role)
	if err != nil {
		return nil, apperror.Dependency("find users by role", err)
	}

	matches := geo.FindNearby(users, lat, lng, radius)
	result := make([]dto.NearbyUser, 0, len(matches))
	for _, m := range matches {
		result = append(result, dto.NearbyUser{
			ID:         m.Item.ID,
			Username:   m.Item.Username,
			Role:       m.Item.Role,
			Location:   m.Item.Location,
			DistanceKm: m.DistanceKm,
		})
	}
	return result, nil
}

func (s *matchingService) NearbyDonations(ctx context.Context, lat, lng float64, radiusKm *float64, status entity.DonationStatus) ([]dto.NearbyDonation, error) {
	radius, err := s.origin(lat, lng, radiusKm)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = entity.DonationCreated
	}

	donations, err := s.donations.FindByStatus(ctx, status)
	if err != nil {
		return nil, apperror.Dependency("find donations by status", err)
	}

	matches := geo.FindNearby(donations, lat, lng, radius)
	result := make([]dto.NearbyDonation, 0, len(matches))
	for _, m := range matches {
		result = append(result, dto.NearbyDonation{Donation: m.Item, DistanceKm: m.DistanceKm})
	}
	return result, nil
}

func (s *matchingService) origin(lat, lng float64, radiusKm *float64) (float64, error) {
	if !geo.ValidCoordinates(lat, lng) {
		return 0, apperror.Validation("invalid origin coordinates")
	}
	return s.Radius(radiusKm)
}
