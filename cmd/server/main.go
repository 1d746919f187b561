package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"

	"github.com/veertikothari/campustrack/internal/bootstrap"
	"github.com/veertikothari/campustrack/internal/config"
	attendanceService "github.com/veertikothari/campustrack/internal/modules/attendance/service"
	enrollRepo "github.com/veertikothari/campustrack/internal/modules/enrollment/repository"
	eventRepo "github.com/veertikothari/campustrack/internal/modules/event/repository"
	eventService "github.com/veertikothari/campustrack/internal/modules/event/service"
	notifRepo "github.com/veertikothari/campustrack/internal/modules/notification/repository"
	notifService "github.com/veertikothari/campustrack/internal/modules/notification/service"
	"github.com/veertikothari/campustrack/internal/scheduler"
	"github.com/veertikothari/campustrack/internal/server"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/cooldown"
	"github.com/veertikothari/campustrack/pkg/database"
	"github.com/veertikothari/campustrack/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.Connect()
	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedAdminUser(db); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	rdb := connectRedis(ctx, cfg.RedisURL)

	var (
		broker      notifService.Broker
		revocations session.RevocationStore
		drafts      attendanceService.DraftStore
		guard       cooldown.Guard
	)
	if rdb != nil {
		broker = notifService.NewRedisBroker(rdb)
		revocations = session.NewRedisRevocationStore(rdb)
		drafts = attendanceService.NewRedisDraftStore(rdb, cfg.AttendanceDraftTTL)
		guard = cooldown.NewRedisGuard(rdb)
	} else {
		broker = notifService.NewMemoryBroker()
		revocations = session.NewMemoryRevocationStore()
		drafts = attendanceService.NewMemoryDraftStore()
		guard = cooldown.NewMemoryGuard()
	}

	sessions := session.NewManager(cfg.JWTSecret, cfg.JWTTTL, revocations)

	pusher := notifService.NewFCMPusher(ctx, cfg.FCMCredentialsPath)
	notifications := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), broker, pusher)

	var (
		notifier      notifService.Notifier
		closeNotifier = func() error { return nil }
	)
	switch cfg.NotifyMode {
	case config.NotifyDirect:
		notifier = notifService.NewDirectNotifier(notifications)
	case config.NotifyKafka:
		notifier, closeNotifier = notifService.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaNotificationTopic)
		go notifService.StartKafkaConsumer(ctx, cfg.KafkaBrokers, cfg.KafkaNotificationTopic, cfg.KafkaGroupID, notifications)
	default:
		async := notifService.NewAsyncNotifier(notifications, 10*time.Second)
		notifier = async
		closeNotifier = func() error {
			async.Wait()
			return nil
		}
	}
	log.Printf("📣 Notification delivery mode: %s", cfg.NotifyMode)

	proofs, err := storage.NewCloudinaryStorage(cfg.CloudinaryUploadFolder)
	if err != nil {
		log.Printf("⚠️  Cloudinary unavailable, proof uploads disabled: %v", err)
		proofs = nil
	}

	jobs := scheduler.NewScheduler(5 * time.Minute)
	reminders := scheduler.NewReminderJob(
		cfg.ReminderCron,
		eventRepo.NewEventRepository(db),
		enrollRepo.NewEnrollmentRepository(db),
		notifier,
		guard,
	)
	if err := jobs.Register(reminders); err != nil {
		log.Fatalf("failed to register reminder job: %v", err)
	}

	srv := server.NewServer(cfg, server.Dependencies{
		DB:            db,
		Redis:         rdb,
		Sessions:      sessions,
		Notifications: notifications,
		Notifier:      notifier,
		Index:         newEventIndex(cfg),
		Proofs:        proofs,
		Guard:         guard,
		Drafts:        drafts,
		Jobs:          jobs,
	})

	jobs.Start()

	// Expired sessions still hold their live feeds until swept.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sessions.Sweep(); n > 0 {
					log.Printf("🧹 Closed %d expired session(s)", n)
				}
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server exited with error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}
	jobs.Stop()
	stop()

	if err := closeNotifier(); err != nil {
		log.Printf("Failed to close notifier: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	log.Println("Server exited")
}

// connectRedis returns nil when Redis is not configured or unreachable; the
// server then runs single-instance with in-memory stores.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		log.Println("⚠️  REDIS_URL not set, using in-memory stores")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("❌ Invalid REDIS_URL: %v", err)
		return nil
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("❌ Redis unreachable, using in-memory stores: %v", err)
		_ = rdb.Close()
		return nil
	}

	log.Println("✅ Connected to Redis")
	return rdb
}

func newEventIndex(cfg *config.Config) eventService.EventIndex {
	host := cfg.MeiliSearchHost
	if host == "" {
		return nil
	}
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host + ":7700"
	}

	client := meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	return eventService.NewMeiliEventIndex(client)
}
