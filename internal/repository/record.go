package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"sessionauth/internal/model"
)

// sessionRecord is the value stored by key-value backends.
type sessionRecord struct {
	UserID     uint      `json:"user_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	PublicData string    `json:"public_data"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func encodeRecord(rec sessionRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func decodeRecord(id string, data []byte) (*model.Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &model.Session{
		ID:         id,
		UserID:     rec.UserID,
		ExpiresAt:  rec.ExpiresAt,
		PublicData: rec.PublicData,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}, nil
}
