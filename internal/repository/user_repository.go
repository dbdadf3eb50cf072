package repository

import (
	"context"

	"carlet-notify/internal/domain/entity"
)

type UserRepository interface {
	// Get returns the profile with the given ID, or (nil, nil) if it does not exist.
	Get(ctx context.Context, id string) (*entity.UserProfile, error)
	// List reads the whole user collection in one consistent snapshot.
	List(ctx context.Context) ([]*entity.UserProfile, error)
	// Upsert creates or replaces a profile.
	Upsert(ctx context.Context, user *entity.UserProfile) error
}
