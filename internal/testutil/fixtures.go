package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"creatorx/internal/market"
	"creatorx/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:       email,
		Password:    string(hash),
		DisplayName: fmt.Sprintf("Creator %d", nextID()),
		IsActive:    true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestWallet creates a wallet holding balance coins.
func CreateTestWallet(t *testing.T, db *gorm.DB, userID string, balance int64) *models.Wallet {
	t.Helper()

	wallet := &models.Wallet{UserID: userID, Balance: balance}
	if err := db.Create(wallet).Error; err != nil {
		t.Fatalf("failed to create test wallet: %v", err)
	}
	return wallet
}

// WalletBalance reads a user's balance, treating a missing wallet as zero.
func WalletBalance(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()

	var balances []int64
	if err := db.Model(&models.Wallet{}).Where("user_id = ?", userID).Pluck("balance", &balances).Error; err != nil {
		t.Fatalf("failed to read wallet balance: %v", err)
	}
	if len(balances) == 0 {
		return 0
	}
	return balances[0]
}

// CreateTestStock creates a BRONZE stock with the whole offering released
// and nothing sold yet.
func CreateTestStock(t *testing.T, db *gorm.DB, issuerID string, price, totalShares, offering int64) *models.Stock {
	t.Helper()

	stock := &models.Stock{
		IssuerID:        issuerID,
		SharePrice:      price,
		PreviousPrice:   price,
		TotalShares:     totalShares,
		AvailableShares: offering,
		Tier:            market.TierBronze,
		MarketCap:       price * totalShares,
		IssueCount:      1,
		LastIssuedAt:    time.Now().UTC(),
	}
	if err := db.Create(stock).Error; err != nil {
		t.Fatalf("failed to create test stock: %v", err)
	}
	return stock
}

// CreateTestHolding gives holderID shares of stock and keeps the stock's
// issued and shareholder counters consistent with it.
func CreateTestHolding(t *testing.T, db *gorm.DB, holderID string, stock *models.Stock, shares int64) *models.Holding {
	t.Helper()
	return CreateTestHoldingAt(t, db, holderID, stock, shares, time.Now().UTC())
}

// CreateTestHoldingAt is CreateTestHolding with an explicit creation time.
func CreateTestHoldingAt(t *testing.T, db *gorm.DB, holderID string, stock *models.Stock, shares int64, createdAt time.Time) *models.Holding {
	t.Helper()

	holding := &models.Holding{
		HolderID:     holderID,
		StockID:      stock.ID,
		Shares:       shares,
		AveragePrice: stock.SharePrice,
	}
	holding.CreatedAt = createdAt.UTC()
	if err := db.Create(holding).Error; err != nil {
		t.Fatalf("failed to create test holding: %v", err)
	}

	stock.IssuedShares += shares
	if stock.AvailableShares < stock.IssuedShares {
		stock.AvailableShares = stock.IssuedShares
	}
	stock.ShareholderCount++
	if err := db.Model(stock).Updates(map[string]any{
		"issued_shares":     stock.IssuedShares,
		"available_shares":  stock.AvailableShares,
		"shareholder_count": stock.ShareholderCount,
	}).Error; err != nil {
		t.Fatalf("failed to update test stock counters: %v", err)
	}
	return holding
}

// CreateTestPostMetric records one post's engagement for authorID.
func CreateTestPostMetric(t *testing.T, db *gorm.DB, authorID string, likes, comments, shares int64, publishedAt time.Time) *models.PostMetric {
	t.Helper()

	metric := &models.PostMetric{
		PostID:      fmt.Sprintf("post-%d", nextID()),
		AuthorID:    authorID,
		Likes:       likes,
		Comments:    comments,
		Shares:      shares,
		PublishedAt: publishedAt.UTC(),
	}
	if err := db.Create(metric).Error; err != nil {
		t.Fatalf("failed to create test post metric: %v", err)
	}
	return metric
}
