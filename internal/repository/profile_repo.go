package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sbel2/citale-api/internal/models"
)

// ProfileRepository resolves user profiles.
type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (models.Profile, error)
	// FindByIDs returns the profiles that exist for the given ids, keyed by
	// id. Ids without a profile row are simply absent from the map.
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Profile, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository constructs a profile repository backed by GORM.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) FindByID(ctx context.Context, id string) (models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

func (r *profileRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	result := make(map[string]models.Profile, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var profiles []models.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}

	for _, profile := range profiles {
		result[profile.ID] = profile
	}

	return result, nil
}
