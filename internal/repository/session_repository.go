package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sessionauth/internal/model"
)

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository builds a GORM-backed session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Insert(ctx context.Context, userID uint, expiresAt time.Time, payload string) (string, error) {
	sess := &model.Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		ExpiresAt:  expiresAt,
		PublicData: payload,
	}
	if err := r.db.WithContext(ctx).Create(sess).Error; err != nil {
		return "", err
	}
	return sess.ID, nil
}

func (r *sessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error; err != nil {
		return nil, notFound(err)
	}
	return &sess, nil
}

// Update locks the row so concurrent refreshes of one session are applied
// one after the other.
func (r *sessionRepository) Update(ctx context.Context, id string, expiresAt time.Time, payload string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess model.Session
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&sess).Error; err != nil {
			return notFound(err)
		}
		return tx.Model(&sess).Updates(map[string]interface{}{
			"expires_at":  expiresAt,
			"public_data": payload,
		}).Error
	})
}

func (r *sessionRepository) DeleteByID(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Session{}).Error
}
