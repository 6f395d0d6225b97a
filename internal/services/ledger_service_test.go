package services

import (
	"context"
	"math"
	"testing"

	"creatorx/internal/models"
	"creatorx/internal/pagination"
	"creatorx/internal/testutil"

	"gorm.io/gorm"
)

func TestLedgerCreditDebit(t *testing.T) {
	t.Run("credit_creates_wallet", func(t *testing.T) {
		m := newTestMarket(t)
		user := testutil.CreateTestUser(t, m.db)

		var entry *models.LedgerEntry
		err := m.db.Transaction(func(tx *gorm.DB) error {
			var err error
			entry, err = m.ledger.Credit(tx, user.ID, 500, models.LedgerKindEarning, "earning:1")
			return err
		})
		testutil.AssertNoError(t, err)

		if entry.Amount != 500 || entry.BalanceAfter != 500 {
			t.Errorf("expected +500 -> 500, got %+d -> %d", entry.Amount, entry.BalanceAfter)
		}
		if got := testutil.WalletBalance(t, m.db, user.ID); got != 500 {
			t.Errorf("expected balance 500, got %d", got)
		}
	})

	t.Run("debit_records_negative_entry", func(t *testing.T) {
		m := newTestMarket(t)
		user := testutil.CreateTestUser(t, m.db)
		testutil.CreateTestWallet(t, m.db, user.ID, 1000)

		var entry *models.LedgerEntry
		err := m.db.Transaction(func(tx *gorm.DB) error {
			var err error
			entry, err = m.ledger.Debit(tx, user.ID, 400, models.LedgerKindTradeBuy, "trade:1")
			return err
		})
		testutil.AssertNoError(t, err)

		if entry.Amount != -400 || entry.BalanceAfter != 600 {
			t.Errorf("expected -400 -> 600, got %+d -> %d", entry.Amount, entry.BalanceAfter)
		}
	})

	t.Run("debit_beyond_balance", func(t *testing.T) {
		m := newTestMarket(t)
		user := testutil.CreateTestUser(t, m.db)
		testutil.CreateTestWallet(t, m.db, user.ID, 100)

		err := m.db.Transaction(func(tx *gorm.DB) error {
			_, err := m.ledger.Debit(tx, user.ID, 101, models.LedgerKindTradeBuy, "trade:1")
			return err
		})
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")

		if got := testutil.WalletBalance(t, m.db, user.ID); got != 100 {
			t.Errorf("expected balance unchanged at 100, got %d", got)
		}
	})

	t.Run("credit_overflow_rejected", func(t *testing.T) {
		m := newTestMarket(t)
		user := testutil.CreateTestUser(t, m.db)
		testutil.CreateTestWallet(t, m.db, user.ID, math.MaxInt64-10)

		err := m.db.Transaction(func(tx *gorm.DB) error {
			_, err := m.ledger.Credit(tx, user.ID, 11, models.LedgerKindDeposit, "")
			return err
		})
		if err == nil {
			t.Fatal("expected overflowing credit to fail")
		}
	})

	t.Run("non_positive_amount", func(t *testing.T) {
		m := newTestMarket(t)
		user := testutil.CreateTestUser(t, m.db)

		err := m.db.Transaction(func(tx *gorm.DB) error {
			_, err := m.ledger.Credit(tx, user.ID, 0, models.LedgerKindDeposit, "")
			return err
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestLedgerTransfer(t *testing.T) {
	t.Run("moves_funds_both_ways", func(t *testing.T) {
		m := newTestMarket(t)
		from := testutil.CreateTestUser(t, m.db)
		to := testutil.CreateTestUser(t, m.db)
		testutil.CreateTestWallet(t, m.db, from.ID, 1000)

		err := m.db.Transaction(func(tx *gorm.DB) error {
			return m.ledger.Transfer(tx, Transfer{
				From: from.ID, To: to.ID, Amount: 250,
				DebitKind: models.LedgerKindTradeBuy, CreditKind: models.LedgerKindIssuerSale,
				Reference: "trade:x",
			})
		})
		testutil.AssertNoError(t, err)

		if got := testutil.WalletBalance(t, m.db, from.ID); got != 750 {
			t.Errorf("expected sender balance 750, got %d", got)
		}
		if got := testutil.WalletBalance(t, m.db, to.ID); got != 250 {
			t.Errorf("expected receiver balance 250, got %d", got)
		}

		var entries int64
		m.db.Model(&models.LedgerEntry{}).Where("reference = ?", "trade:x").Count(&entries)
		if entries != 2 {
			t.Errorf("expected 2 ledger entries, got %d", entries)
		}
	})

	t.Run("insufficient_funds_rolls_back", func(t *testing.T) {
		m := newTestMarket(t)
		from := testutil.CreateTestUser(t, m.db)
		to := testutil.CreateTestUser(t, m.db)
		testutil.CreateTestWallet(t, m.db, from.ID, 10)
		testutil.CreateTestWallet(t, m.db, to.ID, 0)

		err := m.db.Transaction(func(tx *gorm.DB) error {
			return m.ledger.Transfer(tx, Transfer{
				From: from.ID, To: to.ID, Amount: 11,
				DebitKind: models.LedgerKindTradeBuy, CreditKind: models.LedgerKindIssuerSale,
			})
		})
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")

		if got := testutil.WalletBalance(t, m.db, to.ID); got != 0 {
			t.Errorf("expected receiver untouched, got %d", got)
		}
	})
}

func TestLedgerDepositAndHistory(t *testing.T) {
	t.Run("deposit_then_history", func(t *testing.T) {
		m := newTestMarket(t)
		user := testutil.CreateTestUser(t, m.db)
		ctx := context.Background()

		_, err := m.ledger.Deposit(ctx, user.ID, 300, "gateway:a")
		testutil.AssertNoError(t, err)
		_, err = m.ledger.Deposit(ctx, user.ID, 200, "gateway:b")
		testutil.AssertNoError(t, err)

		balance, err := m.ledger.Balance(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if balance != 500 {
			t.Errorf("expected balance 500, got %d", balance)
		}

		page, err := m.ledger.History(ctx, user.ID, pagination.PageRequest{Page: 1, PageSize: 1})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 2 || page.TotalPages != 2 {
			t.Errorf("expected 2 items over 2 pages, got %d/%d", page.TotalItems, page.TotalPages)
		}
		if len(page.Data) != 1 || page.Data[0].Reference != "gateway:b" {
			t.Errorf("expected newest entry first, got %+v", page.Data)
		}
	})

	t.Run("deposit_rejects_non_positive", func(t *testing.T) {
		m := newTestMarket(t)
		user := testutil.CreateTestUser(t, m.db)

		_, err := m.ledger.Deposit(context.Background(), user.ID, -5, "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("balance_of_new_user_is_zero", func(t *testing.T) {
		m := newTestMarket(t)
		user := testutil.CreateTestUser(t, m.db)

		balance, err := m.ledger.Balance(context.Background(), user.ID)
		testutil.AssertNoError(t, err)
		if balance != 0 {
			t.Errorf("expected 0, got %d", balance)
		}
	})
}
