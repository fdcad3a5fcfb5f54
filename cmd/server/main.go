package main // Entry point package

import (
    "context"
    "os"
    "os/signal"
    "syscall"

    "github.com/joho/godotenv"    // loads .env files into the environment
    "github.com/labstack/echo/v4" // Echo web framework
    "github.com/sirupsen/logrus"  // structured logging

    "github.com/jolie-croquette/ludov-reservation/internal/booking"
    "github.com/jolie-croquette/ludov-reservation/internal/config"
    "github.com/jolie-croquette/ludov-reservation/internal/database"
    "github.com/jolie-croquette/ludov-reservation/internal/handler"
    "github.com/jolie-croquette/ludov-reservation/internal/notify"
    "github.com/jolie-croquette/ludov-reservation/internal/queue"
    "github.com/jolie-croquette/ludov-reservation/internal/repository"
    "github.com/jolie-croquette/ludov-reservation/internal/router"
    "github.com/jolie-croquette/ludov-reservation/internal/worker"
)

func main() {
    _ = godotenv.Load() // .env is optional; real env vars win

    log := logrus.New()
    log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

    cfg := config.Load() // Load environment config

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.WithError(err).Fatal("database connection failed")
    }
    defer db.Close()

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    if err := database.Migrate(ctx, db, log); err != nil {
        log.WithError(err).Fatal("schema migration failed")
    }

    // Repositories over the shared pool.
    holdRepo := repository.NewHoldRepo(db)
    reservationRepo := repository.NewReservationRepo(db)
    catalogRepo := repository.NewCatalogRepo(db)
    emailLogRepo := repository.NewEmailLogRepo(db)
    claims := &repository.ClaimReader{Holds: holdRepo, Reservations: reservationRepo}

    // Booking engine.
    clk := booking.SystemClock()
    notifier := notify.NewAMQPNotifier(os.Getenv("RABBITMQ_URL"))
    avail := booking.NewAvailabilityIndex(claims, catalogRepo, cfg.SlotLength)
    holdSvc := booking.NewHoldService(holdRepo, catalogRepo, avail, clk, cfg.HoldTTL, cfg.SlotLength)
    reservationSvc := booking.NewReservationService(holdRepo, reservationRepo, catalogRepo, avail, clk, cfg.SlotLength, notifier)
    scheduler := booking.NewReminderScheduler(reservationRepo, catalogRepo, emailLogRepo, notifier, clk, log)

    // Background loops: expiry sweep, reminder scan and the broker
    // consumer that writes the notification logs.
    go worker.NewSweeper(holdSvc, cfg.SweepInterval, log).Run(ctx)
    go worker.NewReminderWorker(scheduler, cfg.ReminderInterval, log).Run(ctx)
    go func() {
        if err := queue.StartReservationConsumer(); err != nil {
            log.WithError(err).Error("reservation consumer stopped")
        }
    }()

    // HTTP surface.  The Redis client may be nil; rate limiting and
    // caching then degrade to pass-through.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Warn("redis unavailable; rate limiting and caching disabled")
    }

    e := echo.New()
    e.HideBanner = true
    router.RegisterRoutes(e)
    router.RegisterBooking(e,
        handler.NewHoldHandler(holdSvc),
        handler.NewReservationHandler(reservationSvc),
        handler.NewAvailabilityHandler(avail, reservationSvc, clk),
        rdb,
    )

    addr := ":" + cfg.Port
    log.WithField("env", cfg.Env).Infof("listening on %s", addr)

    go func() {
        <-ctx.Done()
        _ = e.Shutdown(context.Background())
    }()
    if err := e.Start(addr); err != nil {
        log.WithError(err).Info("server stopped")
    }
}
