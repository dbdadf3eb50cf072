package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"carlet-notify/internal/domain/entity"
	pg "carlet-notify/internal/infra/adapter/persistence/postgres"
	"carlet-notify/internal/pkg/config"
	"carlet-notify/internal/usecase/retention"
)

// isoMillis matches the timestamps written by the mobile clients.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one retention sweep now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd, func(ctx context.Context, logger *slog.Logger, database *sql.DB) error {
				res := retention.NewSweeper(pg.NewReportRepo(database), nil, logger).Sweep(ctx)
				if res.Err != nil {
					return res.Err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d of %d expired reports\n", res.Deleted, res.Found)
				return nil
			})
		},
	}
}

func injectReportCmd() *cobra.Command {
	var (
		reporterID   string
		lat, lng     float64
		licensePlate string
		message      string
		photoURL     string
		anonymous    bool
	)
	cmd := &cobra.Command{
		Use:   "inject-report",
		Short: "Insert an open test report (fires the report-created event)",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := &entity.Report{
				ID:           uuid.NewString(),
				ReporterID:   reporterID,
				LicensePlate: entity.NormalizePlate(licensePlate),
				Location:     &entity.Location{Lat: lat, Lng: lng},
				Message:      message,
				PhotoURL:     photoURL,
				Status:       entity.ReportStatusOpen,
				Timestamp:    time.Now().UTC().Format(isoMillis),
				Anonymous:    anonymous,
			}
			return withDatabase(cmd, func(ctx context.Context, logger *slog.Logger, database *sql.DB) error {
				logger.Info("Writing report", slog.Any("report", report))
				if err := pg.NewReportRepo(database).Create(ctx, report); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created report: %s\n", report.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reporterID, "reporter-id", "test-user", "Reporting user ID")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude")
	cmd.Flags().StringVar(&licensePlate, "license-plate", "", "License plate (normalized before writing)")
	cmd.Flags().StringVar(&message, "message", "", "Message for the car owner")
	cmd.Flags().StringVar(&photoURL, "photo-url", "", "Photo URL")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "Hide the reporter from the owner")
	return cmd
}

func resolveReportCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "resolve-report",
		Short: "Mark a report resolved (fires the resolution event)",
		RunE: func(cmd *cobra.Command, args []string) error {
			result := config.LoadEnvDuration("RETENTION_PERIOD", 24*time.Hour, func(d time.Duration) error {
				return config.ValidateDuration(d, time.Minute, 720*time.Hour)
			})
			retentionPeriod := result.Value.(time.Duration)

			return withDatabase(cmd, func(ctx context.Context, logger *slog.Logger, database *sql.DB) error {
				for _, w := range result.Warnings {
					logger.Warn("Configuration fallback applied", slog.String("warning", w))
				}
				now := time.Now()
				if err := pg.NewReportRepo(database).MarkResolved(ctx, id, now, retentionPeriod); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Resolved report %s, expires at %s\n", id, now.Add(retentionPeriod).UTC().Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Report ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func seedUserCmd() *cobra.Command {
	var (
		id, token, carPlate string
		lat, lng            float64
	)
	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create or replace a user profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			user := &entity.UserProfile{ID: id, DeviceToken: token, CarPlate: carPlate}
			latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
			if latSet != lngSet {
				return errors.New("--lat and --lng must be given together")
			}
			if latSet {
				user.LastLat, user.LastLng = &lat, &lng
			}

			return withDatabase(cmd, func(ctx context.Context, logger *slog.Logger, database *sql.DB) error {
				if err := pg.NewUserRepo(database).Upsert(ctx, user); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved user: %s\n", user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "User ID")
	cmd.Flags().StringVar(&token, "token", "", "Device token")
	cmd.Flags().StringVar(&carPlate, "car-plate", "", "Plate the user wants alerts for")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Last known latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Last known longitude")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
