package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/tradebooks/internal/customer/domain"
	sequencedomain "github.com/smallbiznis/tradebooks/internal/sequence/domain"
	"github.com/smallbiznis/tradebooks/internal/sequence/format"
	shopdomain "github.com/smallbiznis/tradebooks/internal/shop/domain"
	"github.com/smallbiznis/tradebooks/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxAllocateRetries bounds the transparent retry on counter conflicts.
const maxAllocateRetries = 3

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Shops     shopdomain.Directory
	Customers customerdomain.Directory
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	shops     shopdomain.Directory
	customers customerdomain.Directory
}

func NewService(p Params) sequencedomain.Allocator {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("sequence.service"),
		shops:     p.Shops,
		customers: p.Customers,
	}
}

func (s *Service) Allocate(ctx context.Context, shopID, customerID snowflake.ID, f format.NumberFormat) (sequencedomain.Allocation, error) {
	var allocation sequencedomain.Allocation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		allocation, err = s.AllocateTx(ctx, tx, shopID, customerID, f)
		return err
	})
	return allocation, err
}

func (s *Service) AllocateTx(ctx context.Context, tx *gorm.DB, shopID, customerID snowflake.ID, f format.NumberFormat) (sequencedomain.Allocation, error) {
	shopCode, customerCode, err := s.resolveCodes(ctx, shopID, customerID)
	if err != nil {
		return sequencedomain.Allocation{}, err
	}

	var seq int64
	for attempt := 0; ; attempt++ {
		seq, err = s.nextSequence(ctx, tx, shopID, customerID)
		if err == nil {
			break
		}
		if attempt+1 >= maxAllocateRetries || !retryable(err) {
			return sequencedomain.Allocation{}, err
		}
		s.log.Warn("sequence counter conflict, retrying",
			zap.String("shop_id", shopID.String()),
			zap.String("customer_id", customerID.String()),
			zap.Int("attempt", attempt+1),
		)
	}

	number, err := f.Format(shopCode, customerCode, seq)
	if err != nil {
		return sequencedomain.Allocation{}, err
	}
	return sequencedomain.Allocation{Sequence: seq, Number: number}, nil
}

func (s *Service) Preview(ctx context.Context, shopID, customerID snowflake.ID, f format.NumberFormat) (sequencedomain.Allocation, error) {
	shopCode, customerCode, err := s.resolveCodes(ctx, shopID, customerID)
	if err != nil {
		return sequencedomain.Allocation{}, err
	}

	var last int64
	err = s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(last_sequence_number), 0)
		 FROM sequence_counters
		 WHERE shop_id = ? AND customer_id = ?`,
		shopID,
		customerID,
	).Scan(&last).Error
	if err != nil {
		return sequencedomain.Allocation{}, err
	}

	next := last + 1
	number, err := f.Format(shopCode, customerCode, next)
	if err != nil {
		return sequencedomain.Allocation{}, err
	}
	return sequencedomain.Allocation{Sequence: next, Number: number}, nil
}

func (s *Service) resolveCodes(ctx context.Context, shopID, customerID snowflake.ID) (string, string, error) {
	shopCode, err := s.shops.CodeOf(ctx, shopID)
	if err != nil {
		return "", "", err
	}
	customerCode, err := s.customers.CodeOf(ctx, customerID)
	if err != nil {
		return "", "", err
	}
	return shopCode, customerCode, nil
}

// nextSequence performs the atomic increment-and-read. Postgres and SQLite
// support the single-statement upsert with RETURNING; MySQL goes through an
// explicit row lock held for the read-modify-write.
func (s *Service) nextSequence(ctx context.Context, tx *gorm.DB, shopID, customerID snowflake.ID) (int64, error) {
	now := time.Now().UTC()

	switch tx.Dialector.Name() {
	case "mysql":
		return s.nextSequenceLocked(ctx, tx, shopID, customerID, now)
	default:
		var seq int64
		err := tx.WithContext(ctx).Raw(
			`INSERT INTO sequence_counters (shop_id, customer_id, last_sequence_number, updated_at)
			 VALUES (?, ?, 1, ?)
			 ON CONFLICT (shop_id, customer_id)
			 DO UPDATE SET last_sequence_number = sequence_counters.last_sequence_number + 1, updated_at = ?
			 RETURNING last_sequence_number`,
			shopID,
			customerID,
			now,
			now,
		).Scan(&seq).Error
		if err != nil {
			return 0, wrapCounterErr(err)
		}
		return seq, nil
	}
}

func (s *Service) nextSequenceLocked(ctx context.Context, tx *gorm.DB, shopID, customerID snowflake.ID, now time.Time) (int64, error) {
	var last int64
	result := tx.WithContext(ctx).Raw(
		`SELECT last_sequence_number
		 FROM sequence_counters
		 WHERE shop_id = ? AND customer_id = ?
		 FOR UPDATE`,
		shopID,
		customerID,
	).Scan(&last)
	if result.Error != nil {
		return 0, wrapCounterErr(result.Error)
	}

	if result.RowsAffected == 0 {
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO sequence_counters (shop_id, customer_id, last_sequence_number, updated_at)
			 VALUES (?, ?, 1, ?)`,
			shopID,
			customerID,
			now,
		).Error; err != nil {
			// A concurrent allocator created the row first.
			if db.IsDuplicateKeyErr(err) {
				return 0, sequencedomain.ErrConflict
			}
			return 0, wrapCounterErr(err)
		}
		return 1, nil
	}

	next := last + 1
	update := tx.WithContext(ctx).Exec(
		`UPDATE sequence_counters
		 SET last_sequence_number = ?, updated_at = ?
		 WHERE shop_id = ? AND customer_id = ? AND last_sequence_number = ?`,
		next,
		now,
		shopID,
		customerID,
		last,
	)
	if update.Error != nil {
		return 0, wrapCounterErr(update.Error)
	}
	if update.RowsAffected == 0 {
		return 0, sequencedomain.ErrConflict
	}
	return next, nil
}

func wrapCounterErr(err error) error {
	if db.IsSerializationErr(err) {
		return sequencedomain.ErrConflict
	}
	return err
}

func retryable(err error) bool {
	return errors.Is(err, sequencedomain.ErrConflict)
}
