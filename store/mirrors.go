package store

import (
	"context"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

type MirrorRecord struct {
	MirrorKey string `gorm:"primary_key"`
	Payload   string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (MirrorRecord) TableName() string {
	return "mirrors"
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var record MirrorRecord
	query := s.Db.Where("mirror_key = ?", key).First(&record)
	if query.RecordNotFound() {
		return nil, false, nil
	}
	if query.Error != nil {
		return nil, false, errors.Wrapf(query.Error, "failed to load %s", key)
	}
	return []byte(record.Payload), true, nil
}

func (s *Store) Save(ctx context.Context, key string, payload []byte) error {
	tx := s.Tx()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "failed to start transaction")
	}

	if err := s.upsert(tx, key, payload); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "failed to save %s", key)
	}

	return tx.Commit().Error
}

func (s *Store) upsert(tx *gorm.DB, key string, payload []byte) error {
	db := s.dbOrTx(tx)
	update := db.Model(&MirrorRecord{}).Where("mirror_key = ?", key).Updates(map[string]interface{}{
		"payload":    string(payload),
		"updated_at": time.Now().UTC(),
	})
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected > 0 {
		return nil
	}
	return db.Create(&MirrorRecord{
		MirrorKey: key,
		Payload:   string(payload),
		UpdatedAt: time.Now().UTC(),
	}).Error
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	escaped := strings.NewReplacer("%", "\\%", "_", "\\_").Replace(prefix)
	if err := s.Db.Model(&MirrorRecord{}).Where("mirror_key LIKE ? ESCAPE '\\'", escaped+"%").Order("mirror_key").Pluck("mirror_key", &keys).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to list keys with prefix %s", prefix)
	}
	return keys, nil
}
