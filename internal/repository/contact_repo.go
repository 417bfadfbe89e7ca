package repository

import (
	"context"

	"github.com/mbeoliero/uq/internal/entity"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ContactRepo is the repository for contact operations
type ContactRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewContactRepo creates a new ContactRepo
func NewContactRepo(db *gorm.DB, rdb *redis.Client) *ContactRepo {
	return &ContactRepo{db: db, rdb: rdb}
}

// Create creates a new contact
func (r *ContactRepo) Create(ctx context.Context, contact *entity.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

// Exists checks if contactId is already in userId's list
func (r *ContactRepo) Exists(ctx context.Context, userId, contactId string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Contact{}).
		Where("user_id = ? AND contact_id = ?", userId, contactId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByUser returns every contact owned by userId
func (r *ContactRepo) ListByUser(ctx context.Context, userId string) ([]*entity.Contact, error) {
	var contacts []*entity.Contact
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("created_at ASC").
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// Delete removes contactId from userId's list and reports whether a row was removed
func (r *ContactRepo) Delete(ctx context.Context, userId, contactId string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND contact_id = ?", userId, contactId).
		Delete(&entity.Contact{})
	return res.RowsAffected > 0, res.Error
}
