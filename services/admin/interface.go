package admin

import (
	"context"
	"time"

	bookingRepo "ambulance/database/repository/booking"
	userRepo "ambulance/database/repository/user"
	"ambulance/models"
	"ambulance/services/storage"
)

const backupFolder = "backups"

type MaintenanceService interface {
	Export(ctx context.Context, actor models.Actor) (*models.DataExport, string, error)
	Backup(ctx context.Context, actor models.Actor) (*BackupResult, error)
}

// BackupResult describes a stored backup.
type BackupResult struct {
	Path     string `json:"path"`
	URL      string `json:"url"`
	Bookings int    `json:"bookings"`
	Users    int    `json:"users"`
}

// DefaultMaintenanceService is the production implementation.
type DefaultMaintenanceService struct {
	Bookings bookingRepo.BookingRepository
	Users    userRepo.UserRepository
	Objects  storage.ObjectStore

	now func() time.Time
}

// NewMaintenanceService wires a DefaultMaintenanceService. objects may be nil,
// in which case Backup is unavailable.
func NewMaintenanceService(bookings bookingRepo.BookingRepository, users userRepo.UserRepository, objects storage.ObjectStore) *DefaultMaintenanceService {
	return &DefaultMaintenanceService{
		Bookings: bookings,
		Users:    users,
		Objects:  objects,
		now:      func() time.Time { return time.Now().UTC() },
	}
}
