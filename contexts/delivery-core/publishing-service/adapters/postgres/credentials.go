package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"herald/contexts/delivery-core/publishing-service/domain/entities"
	domainerrors "herald/contexts/delivery-core/publishing-service/domain/errors"
	"herald/contexts/delivery-core/publishing-service/ports"

	"gorm.io/gorm"
)

// CredentialStore resolves per-user platform secrets from the shared database.
type CredentialStore struct {
	db    *gorm.DB
	clock ports.Clock
}

func NewCredentialStore(db *gorm.DB, clock ports.Clock) *CredentialStore {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CredentialStore{db: db, clock: clock}
}

func (s *CredentialStore) GetCredentials(
	ctx context.Context,
	userID string,
	platform entities.Platform,
) (ports.Credentials, error) {
	var row platformCredentialModel
	err := s.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("platform = ?", string(platform)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrCredentialsNotFound
		}
		return nil, err
	}
	if row.ExpiresAt != nil && !row.ExpiresAt.After(s.clock.Now()) {
		return nil, domainerrors.ErrCredentialsExpired
	}

	creds := ports.Credentials{}
	if len(row.Credentials) > 0 {
		if err := json.Unmarshal(row.Credentials, &creds); err != nil {
			return nil, err
		}
	}
	return creds, nil
}

type platformCredentialModel struct {
	UserID      string     `gorm:"column:user_id;primaryKey"`
	Platform    string     `gorm:"column:platform;primaryKey"`
	Credentials []byte     `gorm:"column:credentials;type:jsonb"`
	ExpiresAt   *time.Time `gorm:"column:expires_at"`
}

func (platformCredentialModel) TableName() string {
	return "platform_credentials"
}
