package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"ambulance/models"
	"ambulance/services/auth"
	"ambulance/utils"

	"go.uber.org/zap"
)

// ExportFileName is the download name of an export taken on the given date.
func ExportFileName(exportDate string) string {
	if len(exportDate) >= len("2006-01-02") {
		exportDate = exportDate[:len("2006-01-02")]
	}
	return fmt.Sprintf("ambulance-data-%s.json", exportDate)
}

// Export dumps every booking and user.
func (s *DefaultMaintenanceService) Export(ctx context.Context, actor models.Actor) (*models.DataExport, string, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, "", err
	}
	export, err := s.collect(ctx)
	if err != nil {
		return nil, "", err
	}
	utils.GetLogger().Info("data exported",
		zap.String("by", actor.ID), zap.Int("bookings", len(export.Bookings)), zap.Int("users", len(export.Users)))
	return export, ExportFileName(export.ExportDate), nil
}

// Backup writes the export document to the bucket under backups/.
func (s *DefaultMaintenanceService) Backup(ctx context.Context, actor models.Actor) (*BackupResult, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if s.Objects == nil {
		return nil, fmt.Errorf("backup: %w", models.ErrStoreUnavailable)
	}
	export, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("backup: encode export: %w", err)
	}

	objectPath := path.Join(backupFolder, ExportFileName(export.ExportDate))
	if err := s.Objects.Put(ctx, objectPath, data, "application/json"); err != nil {
		return nil, models.Unavailable("backup", err)
	}
	utils.GetLogger().Info("backup stored", zap.String("path", objectPath), zap.String("by", actor.ID))
	return &BackupResult{
		Path:     objectPath,
		URL:      s.Objects.DownloadURL(objectPath),
		Bookings: len(export.Bookings),
		Users:    len(export.Users),
	}, nil
}

func (s *DefaultMaintenanceService) collect(ctx context.Context) (*models.DataExport, error) {
	bookings, err := s.Bookings.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.Users.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	if users == nil {
		users = []models.User{}
	}
	return &models.DataExport{
		Bookings:   bookings,
		Users:      users,
		ExportDate: s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}, nil
}
