package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/repository"
)

type profileRepository struct {
	db repository.DBTX
}

// NewProfileRepository creates a new user profile repository
func NewProfileRepository(db repository.DBTX) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetOrCreate(ctx context.Context, family, username string) (*models.UserProfile, error) {
	insert := `
		INSERT INTO user_profiles (family, username, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (family, username) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, insert, family, username, models.FormatTimestamp(time.Now())); err != nil {
		return nil, fmt.Errorf("failed to create user profile: %w", err)
	}

	query := `
		SELECT id, family, username, COALESCE(first_name, ''), COALESCE(last_name, ''),
			COALESCE(avatar_path, ''), created_at
		FROM user_profiles
		WHERE family = ? AND username = ?`

	var (
		profile   models.UserProfile
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, query, family, username).Scan(
		&profile.ID,
		&profile.Family,
		&profile.Username,
		&profile.FirstName,
		&profile.LastName,
		&profile.AvatarPath,
		&createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	if profile.CreatedAt, err = models.ParseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("user profile %d created_at: %w", profile.ID, err)
	}

	return &profile, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *models.UserProfile) error {
	query := `
		UPDATE user_profiles
		SET first_name = ?, last_name = ?, avatar_path = ?
		WHERE family = ? AND username = ?`

	result, err := r.db.ExecContext(ctx, query,
		nullString(profile.FirstName),
		nullString(profile.LastName),
		nullString(profile.AvatarPath),
		profile.Family,
		profile.Username,
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}

	return expectAffected(result, "user profile", profile.ID)
}
