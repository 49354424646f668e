package store

import (
	"context"

	"github.com/jinzhu/gorm"
)

// Mirror is a key/value persistence backend for serialized workspace state.
type Mirror interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, payload []byte) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Store is the SQL backed Mirror.
type Store struct {
	Db *gorm.DB `inject:""`
}

func (s *Store) Tx() *gorm.DB {
	return s.Db.Begin()
}

func (s *Store) dbOrTx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.Db
}
