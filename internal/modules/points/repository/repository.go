package repository

import (
	"context"
	"errors"

	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LedgerRepository interface {
	// Award inserts entry and bumps the user's total in one transaction.
	// When an entry with the same (user, source, source id) already exists it
	// is returned with created=false and nothing is written.
	Award(ctx context.Context, entry *entity.PointsLedgerEntry) (*entity.PointsLedgerEntry, bool, error)
	FindBySource(ctx context.Context, userID uuid.UUID, source entity.PointSource, sourceID uuid.UUID) (*entity.PointsLedgerEntry, error)
	CountBySource(ctx context.Context, userID uuid.UUID, source entity.PointSource) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.PointsLedgerEntry, int64, error)
}

type ledgerRepository struct {
	db *gorm.DB
	tx database.Transactor
}

func NewLedgerRepository(db *gorm.DB, tx database.Transactor) LedgerRepository {
	return &ledgerRepository{db: db, tx: tx}
}

func (r *ledgerRepository) Award(ctx context.Context, entry *entity.PointsLedgerEntry) (*entity.PointsLedgerEntry, bool, error) {
	var (
		result  = entry
		created bool
	)

	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		db := database.Conn(ctx, r.db)

		if entry.SourceID == nil {
			if err := db.Create(entry).Error; err != nil {
				return err
			}
		} else {
			res := db.Clauses(clause.OnConflict{
				Columns:     []clause.Column{{Name: "user_id"}, {Name: "source"}, {Name: "source_id"}},
				TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "source_id IS NOT NULL"}}},
				DoNothing:   true,
			}).Create(entry)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				var existing entity.PointsLedgerEntry
				if err := db.Where("user_id = ? AND source = ? AND source_id = ?", entry.UserID, entry.Source, *entry.SourceID).
					First(&existing).Error; err != nil {
					return err
				}
				result, created = &existing, false
				return nil
			}
		}

		res := db.Model(&entity.User{}).
			Where("id = ?", entry.UserID).
			Update("total_points", gorm.Expr("total_points + ?", entry.Points))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("user %s not found", entry.UserID)
		}
		result, created = entry, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func (r *ledgerRepository) FindBySource(ctx context.Context, userID uuid.UUID, source entity.PointSource, sourceID uuid.UUID) (*entity.PointsLedgerEntry, error) {
	var entry entity.PointsLedgerEntry
	err := database.Conn(ctx, r.db).
		Where("user_id = ? AND source = ? AND source_id = ?", userID, source, sourceID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("ledger entry not found")
		}
		return nil, err
	}
	return &entry, nil
}

func (r *ledgerRepository) CountBySource(ctx context.Context, userID uuid.UUID, source entity.PointSource) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.PointsLedgerEntry{}).
		Where("user_id = ? AND source = ?", userID, source).
		Count(&count).Error
	return count, err
}

func (r *ledgerRepository) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.PointsLedgerEntry, int64, error) {
	var (
		entries []entity.PointsLedgerEntry
		total   int64
	)
	db := database.Conn(ctx, r.db)
	if err := db.Model(&entity.PointsLedgerEntry{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Where("user_id = ?", userID).
		Order("earned_at desc").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error
	return entries, total, err
}
