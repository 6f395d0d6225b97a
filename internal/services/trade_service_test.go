package services

import (
	"context"
	"math"
	"sync"
	"testing"

	"creatorx/internal/events"
	"creatorx/internal/models"
	"creatorx/internal/testutil"

	"gorm.io/gorm"
	"pgregory.net/rapid"
)

func loadStock(t *testing.T, db *gorm.DB, id string) models.Stock {
	t.Helper()
	var stock models.Stock
	if err := db.First(&stock, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to load stock: %v", err)
	}
	return stock
}

func holdingsSum(t *testing.T, db *gorm.DB, stockID string) int64 {
	t.Helper()
	var sum int64
	if err := db.Model(&models.Holding{}).Select("COALESCE(SUM(shares), 0)").Where("stock_id = ?", stockID).Scan(&sum).Error; err != nil {
		t.Fatalf("failed to sum holdings: %v", err)
	}
	return sum
}

func TestBuyShares(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		m := newTestMarket(t)
		issuer := testutil.CreateTestUser(t, m.db)
		buyer := testutil.CreateTestUser(t, m.db)
		testutil.CreateTestWallet(t, m.db, buyer.ID, 1000)
		stock := testutil.CreateTestStock(t, m.db, issuer.ID, 10, 1000, 100)

		result, err := m.trades.BuyShares(ctx, buyer.ID, stock.ID, 30)
		testutil.AssertNoError(t, err)

		if result.Trade.TotalAmount != 300 || result.Trade.Side != models.TradeSideBuy {
			t.Errorf("expected a 300 buy, got %+v", result.Trade)
		}
		if result.Holding.Shares != 30 || result.Holding.AveragePrice != 10 {
			t.Errorf("expected 30 shares at 10, got %d at %d", result.Holding.Shares, result.Holding.AveragePrice)
		}
		if got := testutil.WalletBalance(t, m.db, buyer.ID); got != 700 {
			t.Errorf("expected buyer balance 700, got %d", got)
		}
		if got := testutil.WalletBalance(t, m.db, issuer.ID); got != 300 {
			t.Errorf("expected issuer balance 300, got %d", got)
		}

		stored := loadStock(t, m.db, stock.ID)
		if stored.IssuedShares != 30 || stored.ShareholderCount != 1 || stored.TransactionCount != 1 {
			t.Errorf("unexpected counters %+v", stored)
		}
		if got := m.events.Topic(events.TopicTradeNew); len(got) != 1 {
			t.Errorf("expected 1 trade.new event, got %d", len(got))
		}
		if keys := m.dispatcher.keys(); len(keys) != 1 || keys[0] != "reprice:"+issuer.ID {
			t.Errorf("expected a reprice task for the issuer, got %v", keys)
		}
	})

	t.Run("second_buy_averages_price", func(t *testing.T) {
		m := newTestMarket(t)
		issuer := testutil.CreateTestUser(t, m.db)
		buyer := testutil.CreateTestUser(t, m.db)
		testutil.CreateTestWallet(t, m.db, buyer.ID, 10000)
		stock := testutil.CreateTestStock(t, m.db, issuer.ID, 10, 1000, 100)

		_, err := m.trades.BuyShares(ctx, buyer.ID, stock.ID, 10)
		testutil.AssertNoError(t, err)
		m.db.Model(&models.Stock{}).Where("id = ?", stock.ID).Update("share_price", 13)

		result, err := m.trades.BuyShares(ctx, buyer.ID, stock.ID, 5)
		testutil.AssertNoError(t, err)

		// floor((10*10 + 65) / 15) = 11
		if result.Holding.Shares != 15 || result.Holding.AveragePrice != 11 {
			t.Errorf("expected 15 shares at 11, got %d at %d", result.Holding.Shares, result.Holding.AveragePrice)
		}
		if stored := loadStock(t, m.db, stock.ID); stored.ShareholderCount != 1 {
			t.Errorf("expected shareholder count to stay 1, got %d", stored.ShareholderCount)
		}
	})

	t.Run("error_order", func(t *testing.T) {
		m := newTestMarket(t)
		issuer := testutil.CreateTestUser(t, m.db)
		buyer := testutil.CreateTestUser(t, m.db)
		testutil.CreateTestWallet(t, m.db, buyer.ID, 50)
		stock := testutil.CreateTestStock(t, m.db, issuer.ID, 10, 1000, 10)

		_, err := m.trades.BuyShares(ctx, buyer.ID, "0190a000-0000-7000-8000-000000000000", 0)
		testutil.AssertAppError(t, err, "INVALID_QUANTITY")

		_, err = m.trades.BuyShares(ctx, buyer.ID, "0190a000-0000-7000-8000-000000000000", 1)
		testutil.AssertAppError(t, err, "STOCK_NOT_FOUND")

		_, err = m.trades.BuyShares(ctx, issuer.ID, stock.ID, 100)
		testutil.AssertAppError(t, err, "SELF_TRADE_NOT_ALLOWED")

		_, err = m.trades.BuyShares(ctx, buyer.ID, stock.ID, 11)
		testutil.AssertAppError(t, err, "OFFERING_EXHAUSTED")

		_, err = m.trades.BuyShares(ctx, buyer.ID, stock.ID, 6)
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")

		if stored := loadStock(t, m.db, stock.ID); stored.IssuedShares != 0 || stored.TransactionCount != 0 {
			t.Errorf("expected no effect from rejected buys, got %+v", stored)
		}
		if got := testutil.WalletBalance(t, m.db, buyer.ID); got != 50 {
			t.Errorf("expected buyer balance unchanged, got %d", got)
		}
	})

	t.Run("cost_overflow", func(t *testing.T) {
		m := newTestMarket(t)
		issuer := testutil.CreateTestUser(t, m.db)
		buyer := testutil.CreateTestUser(t, m.db)
		stock := testutil.CreateTestStock(t, m.db, issuer.ID, 1, 5000, 5000)
		m.db.Model(&models.Stock{}).Where("id = ?", stock.ID).Update("share_price", int64(math.MaxInt64/2))

		_, err := m.trades.BuyShares(ctx, buyer.ID, stock.ID, 3)
		testutil.AssertAppError(t, err, "INVALID_QUANTITY")
	})

	t.Run("self_trade_has_no_effect", func(t *testing.T) {
		m := newTestMarket(t)
		issuer := testutil.CreateTestUser(t, m.db)
		testutil.CreateTestWallet(t, m.db, issuer.ID, 1000)
		stock := testutil.CreateTestStock(t, m.db, issuer.ID, 10, 1000, 100)

		_, err := m.trades.BuyShares(ctx, issuer.ID, stock.ID, 5)
		testutil.AssertAppError(t, err, "SELF_TRADE_NOT_ALLOWED")
		_, err = m.trades.SellShares(ctx, issuer.ID, stock.ID, 5)
		testutil.AssertAppError(t, err, "SELF_TRADE_NOT_ALLOWED")

		var trades, entries, holdings int64
		m.db.Model(&models.Trade{}).Count(&trades)
		m.db.Model(&models.LedgerEntry{}).Count(&entries)
		m.db.Model(&models.Holding{}).Count(&holdings)
		if trades+entries+holdings != 0 {
			t.Errorf("expected no rows, got trades=%d entries=%d holdings=%d", trades, entries, holdings)
		}
		if got := testutil.WalletBalance(t, m.db, issuer.ID); got != 1000 {
			t.Errorf("expected balance 1000, got %d", got)
		}
		if len(m.events.Events()) != 0 || len(m.dispatcher.keys()) != 0 {
			t.Error("expected no follow-ups for a rejected trade")
		}
	})

	t.Run("concurrent_buys_never_oversell", func(t *testing.T) {
		m := newTestMarket(t)
		issuer := testutil.CreateTestUser(t, m.db)
		stock := testutil.CreateTestStock(t, m.db, issuer.ID, 1, 1000, 25)

		const buyers = 10
		ids := make([]string, buyers)
		for i := range ids {
			u := testutil.CreateTestUser(t, m.db)
			testutil.CreateTestWallet(t, m.db, u.ID, 100)
			ids[i] = u.ID
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		var filled, exhausted int
		for _, id := range ids {
			wg.Add(1)
			go func(buyerID string) {
				defer wg.Done()
				_, err := m.trades.BuyShares(ctx, buyerID, stock.ID, 5)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					filled++
				} else {
					exhausted++
				}
			}(id)
		}
		wg.Wait()

		if filled != 5 || exhausted != 5 {
			t.Errorf("expected 5 fills and 5 rejections, got %d/%d", filled, exhausted)
		}
		stored := loadStock(t, m.db, stock.ID)
		if stored.IssuedShares != 25 || holdingsSum(t, m.db, stock.ID) != 25 {
			t.Errorf("expected exactly 25 issued, got %d (holdings %d)", stored.IssuedShares, holdingsSum(t, m.db, stock.ID))
		}
	})
}

func TestSellShares(t *testing.T) {
	ctx := context.Background()

	t.Run("partial_sell", func(t *testing.T) {
		m := newTestMarket(t)
		issuer := testutil.CreateTestUser(t, m.db)
		seller := testutil.CreateTestUser(t, m.db)
		testutil.CreateTestWallet(t, m.db, seller.ID, 1000)
		stock := testutil.CreateTestStock(t, m.db, issuer.ID, 10, 1000, 100)

		_, err := m.trades.BuyShares(ctx, seller.ID, stock.ID, 20)
		testutil.AssertNoError(t, err)

		result, err := m.trades.SellShares(ctx, seller.ID, stock.ID, 5)
		testutil.AssertNoError(t, err)

		if result.RemainingShares != 15 || result.Trade.Side != models.TradeSideSell || result.Trade.TotalAmount != 50 {
			t.Errorf("unexpected sell result %+v", result)
		}
		stored := loadStock(t, m.db, stock.ID)
		if stored.IssuedShares != 15 || stored.ShareholderCount != 1 || stored.TransactionCount != 2 {
			t.Errorf("unexpected counters %+v", stored)
		}
	})

	t.Run("buy_then_sell_restores_balance", func(t *testing.T) {
		m := newTestMarket(t)
		issuer := testutil.CreateTestUser(t, m.db)
		trader := testutil.CreateTestUser(t, m.db)
		testutil.CreateTestWallet(t, m.db, trader.ID, 777)
		testutil.CreateTestWallet(t, m.db, issuer.ID, 0)
		stock := testutil.CreateTestStock(t, m.db, issuer.ID, 7, 1000, 100)

		_, err := m.trades.BuyShares(ctx, trader.ID, stock.ID, 42)
		testutil.AssertNoError(t, err)
		result, err := m.trades.SellShares(ctx, trader.ID, stock.ID, 42)
		testutil.AssertNoError(t, err)

		if result.RemainingShares != 0 {
			t.Errorf("expected no shares left, got %d", result.RemainingShares)
		}
		if got := testutil.WalletBalance(t, m.db, trader.ID); got != 777 {
			t.Errorf("expected balance restored to 777, got %d", got)
		}
		if got := testutil.WalletBalance(t, m.db, issuer.ID); got != 0 {
			t.Errorf("expected issuer back at 0, got %d", got)
		}

		var holdings int64
		m.db.Unscoped().Model(&models.Holding{}).Where("stock_id = ?", stock.ID).Count(&holdings)
		if holdings != 0 {
			t.Errorf("expected the emptied holding to be deleted, got %d rows", holdings)
		}
		if stored := loadStock(t, m.db, stock.ID); stored.ShareholderCount != 0 || stored.IssuedShares != 0 {
			t.Errorf("unexpected counters %+v", stored)
		}
	})

	t.Run("errors", func(t *testing.T) {
		m := newTestMarket(t)
		issuer := testutil.CreateTestUser(t, m.db)
		seller := testutil.CreateTestUser(t, m.db)
		stranger := testutil.CreateTestUser(t, m.db)
		stock := testutil.CreateTestStock(t, m.db, issuer.ID, 10, 1000, 100)
		testutil.CreateTestHolding(t, m.db, seller.ID, stock, 10)

		_, err := m.trades.SellShares(ctx, seller.ID, stock.ID, -1)
		testutil.AssertAppError(t, err, "INVALID_QUANTITY")

		_, err = m.trades.SellShares(ctx, seller.ID, "0190a000-0000-7000-8000-000000000000", 1)
		testutil.AssertAppError(t, err, "STOCK_NOT_FOUND")

		_, err = m.trades.SellShares(ctx, stranger.ID, stock.ID, 1)
		testutil.AssertAppError(t, err, "HOLDING_NOT_FOUND")

		_, err = m.trades.SellShares(ctx, seller.ID, stock.ID, 11)
		testutil.AssertAppError(t, err, "INSUFFICIENT_SHARES")

		// The fixture holding was never paid for, so the issuer has no funds.
		_, err = m.trades.SellShares(ctx, seller.ID, stock.ID, 1)
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")

		var h models.Holding
		m.db.First(&h, "holder_id = ? AND stock_id = ?", seller.ID, stock.ID)
		if h.Shares != 10 {
			t.Errorf("expected holding untouched at 10, got %d", h.Shares)
		}
	})
}

func TestGetHoldings(t *testing.T) {
	m := newTestMarket(t)
	ctx := context.Background()
	holder := testutil.CreateTestUser(t, m.db)

	empty, err := m.trades.GetHoldings(ctx, holder.ID)
	testutil.AssertNoError(t, err)
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected an empty non-nil slice, got %v", empty)
	}

	stock := testutil.CreateTestStock(t, m.db, testutil.CreateTestUser(t, m.db).ID, 10, 1000, 100)
	testutil.CreateTestHolding(t, m.db, holder.ID, stock, 7)

	holdings, err := m.trades.GetHoldings(ctx, holder.ID)
	testutil.AssertNoError(t, err)
	if len(holdings) != 1 || holdings[0].Stock == nil || holdings[0].Stock.ID != stock.ID {
		t.Fatalf("expected one holding with its stock, got %+v", holdings)
	}
}

// TestTradeInvariants drives random buy/sell sequences and checks the share
// and balance invariants after every step.
func TestTradeInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		m := newTestMarketOn(db)
		ctx := context.Background()

		issuer := testutil.CreateTestUser(t, db)
		offering := rapid.Int64Range(1, 200).Draw(rt, "offering")
		stock := testutil.CreateTestStock(t, db, issuer.ID, rapid.Int64Range(1, 20).Draw(rt, "price"), 1000, offering)

		traders := make([]string, 3)
		for i := range traders {
			u := testutil.CreateTestUser(t, db)
			testutil.CreateTestWallet(t, db, u.ID, 2000)
			traders[i] = u.ID
		}

		steps := rapid.IntRange(1, 25).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			trader := traders[rapid.IntRange(0, len(traders)-1).Draw(rt, "trader")]
			qty := rapid.Int64Range(1, 60).Draw(rt, "qty")
			if rapid.Bool().Draw(rt, "buy") {
				_, _ = m.trades.BuyShares(ctx, trader, stock.ID, qty)
			} else {
				_, _ = m.trades.SellShares(ctx, trader, stock.ID, qty)
			}

			stored := loadStock(t, db, stock.ID)
			if sum := holdingsSum(t, db, stock.ID); sum != stored.IssuedShares {
				rt.Fatalf("holdings sum %d != issued %d", sum, stored.IssuedShares)
			}
			if stored.IssuedShares > stored.AvailableShares || stored.AvailableShares > stored.TotalShares {
				rt.Fatalf("counter order broken: issued %d available %d total %d",
					stored.IssuedShares, stored.AvailableShares, stored.TotalShares)
			}
			var negative int64
			db.Model(&models.Wallet{}).Where("balance < 0").Count(&negative)
			if negative != 0 {
				rt.Fatalf("%d wallets below zero", negative)
			}
		}
	})
}
