package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "creatorx/internal/errors"
	"creatorx/internal/models"
	"creatorx/internal/pagination"
)

// ledgerService owns wallet balances. Every balance change is a conditional
// UPDATE, so a balance can never go below zero or overflow even when two
// transactions race on the same wallet.
type ledgerService struct {
	db *gorm.DB
}

// NewLedgerService creates a new LedgerServicer.
func NewLedgerService(db *gorm.DB) LedgerServicer {
	return &ledgerService{db: db}
}

// ensureWallet creates the user's wallet if it does not exist yet.
func ensureWallet(tx *gorm.DB, userID string) error {
	wallet := &models.Wallet{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(wallet).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func walletBalance(tx *gorm.DB, userID string) (int64, error) {
	var wallet models.Wallet
	if err := tx.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return wallet.Balance, nil
}

// Credit adds amount to the user's wallet and appends a ledger entry.
func (s *ledgerService) Credit(tx *gorm.DB, userID string, amount int64, kind models.LedgerKind, reference string) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "credit amount must be positive")
	}
	if err := ensureWallet(tx, userID); err != nil {
		return nil, err
	}

	res := tx.Model(&models.Wallet{}).
		Where("user_id = ? AND balance <= ?", userID, math.MaxInt64-amount).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "credit would overflow the wallet balance")
	}

	return s.appendEntry(tx, userID, amount, kind, reference)
}

// Debit removes amount from the user's wallet. It fails with
// ErrInsufficientBalance, leaving the wallet untouched, when the balance is
// smaller than amount.
func (s *ledgerService) Debit(tx *gorm.DB, userID string, amount int64, kind models.LedgerKind, reference string) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "debit amount must be positive")
	}
	if err := ensureWallet(tx, userID); err != nil {
		return nil, err
	}

	res := tx.Model(&models.Wallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrInsufficientBalance
	}

	return s.appendEntry(tx, userID, -amount, kind, reference)
}

// Transfer debits From and credits To. Wallet rows are touched in ascending
// user id order so two opposing transfers cannot deadlock on row locks.
func (s *ledgerService) Transfer(tx *gorm.DB, t Transfer) error {
	if t.From == t.To {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "cannot transfer to the same wallet")
	}
	debit := func() error {
		_, err := s.Debit(tx, t.From, t.Amount, t.DebitKind, t.Reference)
		return err
	}
	credit := func() error {
		_, err := s.Credit(tx, t.To, t.Amount, t.CreditKind, t.Reference)
		return err
	}
	if t.From < t.To {
		if err := debit(); err != nil {
			return err
		}
		return credit()
	}
	if err := credit(); err != nil {
		return err
	}
	return debit()
}

func (s *ledgerService) appendEntry(tx *gorm.DB, userID string, amount int64, kind models.LedgerKind, reference string) (*models.LedgerEntry, error) {
	balance, err := walletBalance(tx, userID)
	if err != nil {
		return nil, err
	}
	entry := &models.LedgerEntry{
		UserID:       userID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: balance,
		Reference:    reference,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entry, nil
}

// Balance returns the user's balance. A user without a wallet has zero.
func (s *ledgerService) Balance(ctx context.Context, userID string) (int64, error) {
	wallet, err := s.GetWallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// GetWallet returns the user's wallet, creating it on first access.
func (s *ledgerService) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	db := s.db.WithContext(ctx)
	if err := ensureWallet(db, userID); err != nil {
		return nil, err
	}
	var wallet models.Wallet
	if err := db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &wallet, nil
}

// Deposit credits externally purchased currency to the user's wallet.
func (s *ledgerService) Deposit(ctx context.Context, userID string, amount int64, reference string) (*models.LedgerEntry, error) {
	if userID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "user id is required")
	}
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "deposit amount must be positive")
	}

	var entry *models.LedgerEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.Credit(tx, userID, amount, models.LedgerKindDeposit, reference)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// History returns the user's ledger entries, newest first.
func (s *ledgerService) History(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.LedgerEntry], error) {
	page.Defaults()
	db := s.db.WithContext(ctx)

	var totalItems int64
	if err := db.Model(&models.LedgerEntry{}).Where("user_id = ?", userID).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var entries []models.LedgerEntry
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Scopes(pagination.Paginate(page)).
		Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(entries, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// referenceFor formats a ledger reference as "<kind>:<id>".
func referenceFor(kind, id string) string {
	return fmt.Sprintf("%s:%s", kind, id)
}
