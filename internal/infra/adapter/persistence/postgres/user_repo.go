package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"carlet-notify/internal/domain/entity"
	"carlet-notify/internal/repository"
)

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) repository.UserRepository {
	return &UserRepo{db: db}
}

// scanUser reads one row of (id, device_token, car_plate, last_lat, last_lng).
func scanUser(scan func(dest ...any) error) (*entity.UserProfile, error) {
	var (
		user             entity.UserProfile
		token, plate     sql.NullString
		lastLat, lastLng sql.NullFloat64
	)
	if err := scan(&user.ID, &token, &plate, &lastLat, &lastLng); err != nil {
		return nil, err
	}

	user.DeviceToken = token.String
	user.CarPlate = plate.String
	// Coordinates are only meaningful as a pair.
	if lastLat.Valid && lastLng.Valid {
		user.LastLat = &lastLat.Float64
		user.LastLng = &lastLng.Float64
	}
	return &user, nil
}

func (repo *UserRepo) Get(ctx context.Context, id string) (*entity.UserProfile, error) {
	const query = `
SELECT id, device_token, car_plate, last_lat, last_lng
FROM users
WHERE id = $1
LIMIT 1`
	user, err := scanUser(repo.db.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return user, nil
}

func (repo *UserRepo) List(ctx context.Context) ([]*entity.UserProfile, error) {
	const query = `
SELECT id, device_token, car_plate, last_lat, last_lng
FROM users
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := make([]*entity.UserProfile, 0, 256)
	for rows.Next() {
		user, err := scanUser(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (repo *UserRepo) Upsert(ctx context.Context, user *entity.UserProfile) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	const query = `
INSERT INTO users (id, device_token, car_plate, last_lat, last_lng)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
       device_token = EXCLUDED.device_token,
       car_plate    = EXCLUDED.car_plate,
       last_lat     = EXCLUDED.last_lat,
       last_lng     = EXCLUDED.last_lng`

	var lastLat, lastLng sql.NullFloat64
	if loc := user.LastLocation(); loc != nil {
		lastLat = sql.NullFloat64{Float64: loc.Lat, Valid: true}
		lastLng = sql.NullFloat64{Float64: loc.Lng, Valid: true}
	}

	_, err := repo.db.ExecContext(ctx, query,
		user.ID, nullString(user.DeviceToken), nullString(user.CarPlate), lastLat, lastLng,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}
