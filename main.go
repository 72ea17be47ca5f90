package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ambulance/config"
	"ambulance/cron"
	"ambulance/handlers"
	"ambulance/routes"
	"ambulance/services/admin"
	"ambulance/services/auth"
	"ambulance/services/booking"
	"ambulance/services/feed"
	"ambulance/services/notification"
	"ambulance/services/storage"
	"ambulance/services/user"
	"ambulance/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger := utils.GetLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := utils.FirebaseInit(ctx)
	if err != nil {
		logger.Fatal("main: firebase init failed", zap.Error(err))
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		logger.Fatal("main: firebase auth init failed", zap.Error(err))
	}
	identity := auth.NewFirebaseIdentity(authClient)

	st, err := openStores(ctx, app)
	if err != nil {
		logger.Fatal("main: failed to open stores", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		st.close(closeCtx)
	}()

	// Sessions.
	var sessionStore auth.SessionStore
	if cfg.SessionStore == "redis" {
		if err := utils.InitSessionCache(); err != nil {
			logger.Fatal("main: session cache unavailable", zap.Error(err))
		}
		redisClient := utils.GetSessionCacheClient()
		sessionStore = auth.NewRedisSessionStore(redisClient)
		st.health["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		sessionStore = auth.NewMemorySessionStore(nil)
	}
	secret := cfg.SessionSecret
	if secret == "" {
		if config.IsProduction() {
			logger.Fatal("main: SESSION_SECRET is required in production")
		}
		secret = uuid.NewString()
		logger.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	}
	feeds := feed.NewRegistry()
	sessions := auth.NewSessionManager(identity, st.users, sessionStore, feeds, []byte(secret), cfg.SessionTTL())

	// Notifications.
	var pusher notification.Pusher
	if msgClient, err := app.Messaging(ctx); err != nil {
		logger.Warn("push messaging disabled", zap.Error(err))
	} else {
		pusher = notification.NewFCMPusher(msgClient)
	}
	var mailer notification.Mailer
	if cfg.SMTPHost != "" {
		mailer = notification.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.FromEmail)
	}
	messages := booking.Messages{
		ServiceName:      cfg.ServiceName,
		EmergencyContact: cfg.EmergencyContact,
		Location:         cfg.Location(),
	}
	dispatcher, err := notification.NewDispatcher(st.inbox, pusher, mailer, cfg.AdminTopic, cfg.AdminEmail, messages)
	if err != nil {
		logger.Fatal("main: notification setup failed", zap.Error(err))
	}

	var notifier booking.Notifier = dispatcher
	if cfg.NotifyMode == "queue" {
		queue := asynq.NewClient(cron.RedisOpt())
		defer queue.Close()
		notifier = notification.NewQueueNotifier(queue)

		worker := cron.NewNotificationWorker(dispatcher)
		worker.Start()
		defer worker.Shutdown()
	}

	// Backups.
	var objects storage.ObjectStore
	if cfg.StoreBackend == "memory" {
		objects = storage.NewMemoryObjectStore()
	} else if storageClient, err := app.Storage(ctx); err != nil {
		logger.Warn("backup bucket disabled", zap.Error(err))
	} else if bucket, err := storageClient.DefaultBucket(); err != nil {
		logger.Warn("backup bucket disabled", zap.Error(err))
	} else {
		objects = storage.NewFirebaseStorageService(bucket, cfg.FirebaseBucket)
	}

	// Services.
	mode, err := booking.ParseTransitionMode(cfg.TransitionMode)
	if err != nil {
		logger.Fatal("main: invalid TRANSITION_MODE", zap.Error(err))
	}
	lifecycle := booking.NewLifecycle(mode, nil)
	logger.Info("booking lifecycle ready", zap.String("transitions", string(lifecycle.Mode())))
	bookingService := booking.NewBookingService(st.bookings, st.users, lifecycle, notifier, booking.Settings{
		ServiceName:      cfg.ServiceName,
		WhatsAppNumber:   cfg.WhatsAppNumber,
		EmergencyContact: cfg.EmergencyContact,
		TrackingBaseURL:  cfg.TrackingBaseURL,
		Location:         cfg.Location(),
	})
	userService := user.NewUserService(st.users, st.bookings, identity, sessions, mailer)
	maintenanceService := admin.NewMaintenanceService(st.bookings, st.users, objects)

	monitor := utils.NewHealthMonitor(st.health)
	monitor.Start(ctx, 30*time.Second)

	sessionHandler := handlers.NewSessionHandler(sessions)
	userHandler := handlers.NewUserHandler(userService)
	bookingHandler := handlers.NewBookingHandler(bookingService, feeds)
	adminHandler := handlers.NewAdminHandler(userService, maintenanceService)
	notificationHandler := handlers.NewNotificationHandler(dispatcher)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		Sessions:          sessions,
		MaxRequestsPerMin: cfg.MaxRequestsPerMin,

		HealthHandler: handlers.HealthHandler(monitor),

		// Session endpoints.
		SignInHandler:  sessionHandler.SignInHandler,
		SignOutHandler: sessionHandler.SignOutHandler,

		// User endpoints.
		RegisterUserHandler:  userHandler.RegisterUserHandler,
		PasswordResetHandler: userHandler.PasswordResetHandler,
		GetProfileHandler:    userHandler.GetProfileHandler,
		DeleteAccountHandler: userHandler.DeleteAccountHandler,

		// Booking endpoints.
		CreateBookingHandler:    bookingHandler.CreateBookingHandler,
		MyBookingsHandler:       bookingHandler.MyBookingsHandler,
		MyBookingsLiveHandler:   bookingHandler.MyBookingsLiveHandler,
		TrackBookingHandler:     bookingHandler.TrackBookingHandler,
		TrackingQRHandler:       bookingHandler.TrackingQRHandler,
		BookingSlipHandler:      bookingHandler.BookingSlipHandler,
		AdminBookingsHandler:    bookingHandler.AdminBookingsHandler,
		AdminBookingsLive:       bookingHandler.AdminBookingsLive,
		UpdateStatusHandler:     bookingHandler.UpdateStatusHandler,
		DashboardStatsHandler:   bookingHandler.DashboardStatsHandler,
		BookingAnalyticsHandler: bookingHandler.BookingAnalyticsHandler,

		// Admin endpoints.
		ListUsersHandler:   adminHandler.ListUsersHandler,
		ListAdminsHandler:  adminHandler.ListAdminsHandler,
		DeleteUserHandler:  adminHandler.DeleteUserHandler,
		PromoteUserHandler: adminHandler.PromoteUserHandler,
		ExportDataHandler:  adminHandler.ExportDataHandler,
		BackupDataHandler:  adminHandler.BackupDataHandler,

		// Notification endpoints.
		ListNotificationsHandler: notificationHandler.ListNotificationsHandler,
		MarkNotificationRead:     notificationHandler.MarkNotificationRead,
		RegisterDeviceHandler:    notificationHandler.RegisterDeviceHandler,
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(utils.ErrorHandler())
	router.Use(utils.RequestLogger())
	routes.RegisterRoutes(router, handlerBundle)

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Info("starting server",
		zap.String("addr", srv.Addr),
		zap.String("store", cfg.StoreBackend),
		zap.String("transitions", string(mode)),
		zap.String("notify", cfg.NotifyMode))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("main: server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	logger.Info("main: server stopped gracefully")
}
