package dto

import (
	"anoa.com/foodrescue/internal/entity"
	"github.com/google/uuid"
)

// AwardRequest describes one ledger write.
type AwardRequest struct {
	UserID      uuid.UUID
	Amount      int
	Source      entity.PointSource
	Role        entity.Role
	SourceID    *uuid.UUID
	Description string
}

// AwardResult is returned for fresh and duplicate awards alike. Duplicate
// means an entry for the same source already existed and nothing changed.
type AwardResult struct {
	Entry     *entity.PointsLedgerEntry `json:"entry"`
	Duplicate bool                      `json:"duplicate"`
}

type AdjustPointsRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Amount int    `json:"amount" binding:"required"`
	Reason string `json:"reason" binding:"required,max=500"`
}

type HistoryResponse struct {
	Data       []entity.PointsLedgerEntry `json:"data"`
	TotalItems int64                      `json:"total_items"`
	Page       int                        `json:"page"`
	Limit      int                        `json:"limit"`
}
