package main

import (
	"context"
	"fmt"

	"ambulance/config"
	"ambulance/database"
	bookingRepo "ambulance/database/repository/booking"
	memoryRepo "ambulance/database/repository/memory"
	notificationRepo "ambulance/database/repository/notification"
	userRepo "ambulance/database/repository/user"
	"ambulance/utils"

	firebase "firebase.google.com/go/v4"
)

// stores is the persistence selected by STORE_BACKEND.
type stores struct {
	bookings bookingRepo.BookingRepository
	users    userRepo.UserRepository
	inbox    notificationRepo.NotificationRepository
	health   map[string]utils.Pinger
	close    func(context.Context)
}

func openStores(ctx context.Context, app *firebase.App) (*stores, error) {
	switch backend := config.AppConfig.StoreBackend; backend {
	case "mongo":
		db, err := database.InitDB(ctx)
		if err != nil {
			return nil, err
		}
		bookings := bookingRepo.NewMongoBookingRepo(db)
		return &stores{
			bookings: bookings,
			users:    userRepo.NewMongoUserRepo(db, bookings),
			inbox:    notificationRepo.NewMongoNotificationRepo(db),
			health:   map[string]utils.Pinger{"mongo": database.Ping},
			close: func(ctx context.Context) {
				_ = database.MongoClient.Disconnect(ctx)
			},
		}, nil

	case "firestore":
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore: %w", err)
		}
		bookings := bookingRepo.NewFirestoreBookingRepo(client)
		return &stores{
			bookings: bookings,
			users:    userRepo.NewFirestoreUserRepo(client, bookings),
			inbox:    notificationRepo.NewFirestoreNotificationRepo(client),
			health:   map[string]utils.Pinger{},
			close:    func(context.Context) { _ = client.Close() },
		}, nil

	case "memory":
		store := memoryRepo.NewStore()
		return &stores{
			bookings: store.Bookings(),
			users:    store.Users(),
			inbox:    store.Notifications(),
			health:   map[string]utils.Pinger{},
			close:    func(context.Context) {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", backend)
	}
}
