package gormstore

import (
	"context" // Request scoping

	"peerpay/internal/domain" // Domain models
)

// QueryByAccount returns the records sent or received by an account, oldest first
func (s *Store) QueryByAccount(ctx context.Context, accountID string, dir domain.Direction) ([]domain.TransferRecord, error) {
	column := "to_account_id"
	switch dir {
	case domain.DirectionOut:
		column = "from_account_id"
	case domain.DirectionIn:
	default:
		return nil, domain.ErrMalformedRecord
	}
	var recs []domain.TransferRecord
	err := s.db.WithContext(ctx).
		Where(column+" = ?", accountID).
		Order("timestamp asc, id asc").
		Find(&recs).Error
	if err != nil {
		return nil, domain.Unavailable("query ledger", err)
	}
	return recs, nil
}

// List pages through the ledger, newest first
func (s *Store) List(ctx context.Context, offset, limit int) ([]domain.TransferRecord, error) {
	q := s.db.WithContext(ctx).Order("timestamp desc, id desc").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []domain.TransferRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, domain.Unavailable("list ledger", err)
	}
	return recs, nil
}

// Count returns the number of ledger records
func (s *Store) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.TransferRecord{}).Count(&total).Error; err != nil {
		return 0, domain.Unavailable("count ledger", err)
	}
	return total, nil
}
