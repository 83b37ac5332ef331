package storage

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// GormStorage is a Storage backed by any gorm dialect. The application
// opens it on SQLite.
type GormStorage struct {
	db *gorm.DB
}

// item is a single stored value.
type item struct {
	Key       string `gorm:"primaryKey;column:item_key"`
	Value     string
	UpdatedAt time.Time
}

func (item) TableName() string { return "local_storage" }

// NewGormStorage creates the table when it doesn't exist.
func NewGormStorage(db *gorm.DB) (*GormStorage, error) {
	s := &GormStorage{db: db}
	return s, db.AutoMigrate(&item{})
}

func (s *GormStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	it := &item{}
	tx := s.db.WithContext(ctx).Where("item_key = ?", key).Limit(1).Find(it)
	if tx.Error != nil || tx.RowsAffected == 0 {
		return "", false, tx.Error
	}
	return it.Value, true, nil
}

// SetItem upserts key. Assign takes a map so an empty value still
// replaces the stored one.
func (s *GormStorage) SetItem(ctx context.Context, key, value string) error {
	it := &item{}
	tx := s.db.WithContext(ctx).
		Where(item{Key: key}).
		Assign(map[string]any{"value": value, "updated_at": time.Now()}).
		FirstOrCreate(it)
	return tx.Error
}

func (s *GormStorage) RemoveItem(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&item{}, "item_key = ?", key).Error
}

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
