package engagement

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shivemind/chasingCats-sub003/internal/catalog"
	"github.com/shivemind/chasingCats-sub003/internal/logger"
	"github.com/shivemind/chasingCats-sub003/internal/metrics"
	"github.com/shivemind/chasingCats-sub003/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger is the append-only XP log. A user's total is always the sum of their
// entries, read from the store on every call.
type Ledger struct {
	db      *gorm.DB
	catalog *catalog.Catalog
	log     *logger.Logger
	now     func() time.Time
}

// Standing is a user's total XP and the level it maps to.
type Standing struct {
	TotalXP int64 `json:"total_xp"`
	Level   int   `json:"level"`
}

func NewLedger(db *gorm.DB, cat *catalog.Catalog, log *logger.Logger) *Ledger {
	return &Ledger{db: db, catalog: cat, log: log.With("tracker", "ledger"), now: utcNow}
}

// Grant appends an entry of amount XP for userID.
func (l *Ledger) Grant(ctx context.Context, userID uint, amount int64, reason string) (*models.XPLedgerEntry, error) {
	if err := validateGrant(amount, reason); err != nil {
		return nil, err
	}
	entry, err := l.grant(l.db.WithContext(ctx), userID, amount, reason)
	if err != nil {
		return nil, storeError("grant xp", err)
	}
	metrics.AddXPGranted(amount)
	l.log.Info("XP granted", "user_id", userID, "amount", amount, "reason", reason)
	return entry, nil
}

func validateGrant(amount int64, reason string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(reason) == "" {
		return validationError("grant reason is required")
	}
	return nil
}

// grant inserts through tx, so a caller holding a transaction commits the
// entry together with its own writes. Metrics are left to the caller, after
// commit.
func (l *Ledger) grant(tx *gorm.DB, userID uint, amount int64, reason string) (*models.XPLedgerEntry, error) {
	if err := validateGrant(amount, reason); err != nil {
		return nil, err
	}
	entry := &models.XPLedgerEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: l.now(),
	}
	if err := tx.Omit(clause.Associations).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (l *Ledger) TotalXP(ctx context.Context, userID uint) (int64, error) {
	total, err := totalXP(l.db.WithContext(ctx), userID)
	if err != nil {
		return 0, storeError("total xp", err)
	}
	return total, nil
}

func (l *Ledger) Level(ctx context.Context, userID uint) (int, error) {
	total, err := l.TotalXP(ctx, userID)
	if err != nil {
		return 0, err
	}
	return l.catalog.Level(total), nil
}

// Standing reads the total once and derives the level from that same value.
func (l *Ledger) Standing(ctx context.Context, userID uint) (Standing, error) {
	total, err := l.TotalXP(ctx, userID)
	if err != nil {
		return Standing{}, err
	}
	return Standing{TotalXP: total, Level: l.catalog.Level(total)}, nil
}

// Entries lists the user's ledger, newest first.
func (l *Ledger) Entries(ctx context.Context, userID uint, limit int) ([]models.XPLedgerEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	var entries []models.XPLedgerEntry
	if err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, storeError("list xp entries", err)
	}
	return entries, nil
}

func totalXP(tx *gorm.DB, userID uint) (int64, error) {
	var total int64
	err := tx.Model(&models.XPLedgerEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ?", userID).
		Scan(&total).Error
	return total, err
}
