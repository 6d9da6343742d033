package repository

import (
	"bytes"
	"context"
	"errors"
	"sort"

	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LeaderboardRepository interface {
	// LockRole serializes writers of one role until the surrounding
	// transaction commits or rolls back. It must run inside a transaction.
	LockRole(ctx context.Context, role entity.Role) error
	Upsert(ctx context.Context, entry *entity.LeaderboardEntry) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.LeaderboardEntry, error)
	// ListByRole returns every entry of role ordered by total points, highest first.
	ListByRole(ctx context.Context, role entity.Role) ([]entity.LeaderboardEntry, error)
	UpdateRanks(ctx context.Context, ranks map[uuid.UUID]int) error
	Top(ctx context.Context, role entity.Role, limit int) ([]entity.LeaderboardEntry, error)
}

type leaderboardRepository struct {
	db *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

// ErrNoTransaction is returned by LockRole outside a transaction, where an
// xact lock would be released as soon as the statement finished.
var ErrNoTransaction = errors.New("leaderboard role lock requires a transaction")

func (r *leaderboardRepository) LockRole(ctx context.Context, role entity.Role) error {
	if !database.InTransaction(ctx) {
		return ErrNoTransaction
	}
	return database.Conn(ctx, r.db).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", LockKey(role)).Error
}

func LockKey(role entity.Role) string {
	return "leaderboard:" + string(role)
}

func (r *leaderboardRepository) Upsert(ctx context.Context, entry *entity.LeaderboardEntry) error {
	return database.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"role",
			"total_points",
			"donations_count",
			"collections_count",
			"pickups_count",
			"achievements_count",
			"badges_count",
			"updated_at",
		}),
	}).Create(entry).Error
}

func (r *leaderboardRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.LeaderboardEntry, error) {
	var entry entity.LeaderboardEntry
	if err := database.Conn(ctx, r.db).Where("user_id = ?", userID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("leaderboard entry for %s not found", userID)
		}
		return nil, err
	}
	return &entry, nil
}

func (r *leaderboardRepository) ListByRole(ctx context.Context, role entity.Role) ([]entity.LeaderboardEntry, error) {
	var entries []entity.LeaderboardEntry
	// user_id only keeps reads stable between calls
	err := database.Conn(ctx, r.db).
		Where("role = ?", role).
		Order("total_points DESC").
		Order("user_id").
		Find(&entries).Error
	return entries, err
}

// UpdateRanks writes rows in user id order so concurrent writers lock rows in
// the same sequence.
func (r *leaderboardRepository) UpdateRanks(ctx context.Context, ranks map[uuid.UUID]int) error {
	ids := make([]uuid.UUID, 0, len(ranks))
	for id := range ranks {
		ids = append(ids, id)
	}
	sortIDs(ids)

	db := database.Conn(ctx, r.db)
	for _, id := range ids {
		if err := db.Model(&entity.LeaderboardEntry{}).
			Where("user_id = ? AND rank <> ?", id, ranks[id]).
			Update("rank", ranks[id]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *leaderboardRepository) Top(ctx context.Context, role entity.Role, limit int) ([]entity.LeaderboardEntry, error) {
	var entries []entity.LeaderboardEntry
	err := database.Conn(ctx, r.db).
		Where("role = ? AND rank > 0", role).
		Order("rank ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}
