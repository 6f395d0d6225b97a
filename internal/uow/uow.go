// Package uow provides the unit of work every market mutation runs in: a set
// of in-process keyed locks taken in a fixed order, then one database
// transaction. Locks are always acquired before a connection is checked out,
// so a small pool cannot deadlock against waiting lock holders.
package uow

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UnitOfWork serializes work on shared keys and wraps it in a transaction.
// One instance must be shared by every service touching the same rows.
type UnitOfWork struct {
	db    *gorm.DB
	locks *KeyedMutex
}

// New creates a UnitOfWork over db.
func New(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db, locks: NewKeyedMutex()}
}

// DB returns the handle used outside of units of work.
func (u *UnitOfWork) DB() *gorm.DB {
	return u.db
}

// Do takes the locks for keys, runs fn in a transaction, and releases the
// locks after commit or rollback. fn must use only the tx it is given.
// Returning an error from fn rolls everything back.
func (u *UnitOfWork) Do(ctx context.Context, keys []string, fn func(tx *gorm.DB) error) error {
	unlock, err := u.locks.LockAll(ctx, keys...)
	if err != nil {
		return err
	}
	defer unlock()

	return u.db.WithContext(ctx).Transaction(fn)
}

// IssuerKey is the lock key guarding an issuer's stock row and its holdings.
func IssuerKey(issuerID string) string {
	return "issuer:" + issuerID
}

// ForUpdate adds a row lock to the next query. SQLite ignores it; the keyed
// lock already serializes in-process callers there.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
