package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wooahyo/internal/config"
	"github.com/wooahyo/internal/handler"
	"github.com/wooahyo/internal/logger"
	"github.com/wooahyo/internal/middleware"
	"github.com/wooahyo/internal/repository"
	"github.com/wooahyo/internal/service"
	"github.com/wooahyo/internal/startup"
	"github.com/wooahyo/internal/ws"
	"github.com/wooahyo/migrations"
)

func main() {
	logger.SetPrefix("api")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL (no external DB required)")
	flag.Parse()

	logger.Info("starting API service")
	cfg := config.Load()

	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		var err error
		embeddedDB, err = startEmbeddedPostgres(cfg)
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			os.Exit(1)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	poolCfg.MinConns = 4

	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second, "")
	defer pool.Close()

	runMigrations(pool)
	if *migrate && !*dev {
		return
	}
	logger.Info("database connected, migrations applied")

	postRepo := repository.NewPostRepository(pool)
	roomRepo := repository.NewChatRoomRepository(pool)
	msgRepo := repository.NewMessageRepository(pool)
	reviewRepo := repository.NewReviewRepository(pool)
	bookmarkRepo := repository.NewBookmarkRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	openChatRepo := repository.NewOpenChatRepository(pool)

	messagesSvc := service.NewMessages(msgRepo, roomRepo)
	roomsSvc := service.NewRooms(roomRepo, postRepo, openChatRepo, profileRepo, messagesSvc)
	transactionsSvc := service.NewTransactions(postRepo)
	reviewsSvc := service.NewReviews(reviewRepo, postRepo)
	openChatsSvc := service.NewOpenChats(openChatRepo, roomRepo, messagesSvc)
	postsSvc := service.NewPosts(postRepo, bookmarkRepo)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := ws.NewHub(roomsSvc, messagesSvc, cfg.MaxWSConnections)

	var relayWg sync.WaitGroup
	if cfg.Redis.URL != "" {
		rdb := startup.ConnectRedisWithRetry(cfg.Redis.URL, 30*time.Second, "")
		defer rdb.Close()
		relay := ws.NewRelay(rdb, hub.Deliver)
		hub.SetRelay(relay)
		relayWg.Add(1)
		go func() {
			defer relayWg.Done()
			relay.Run(hubCtx)
		}()
		logger.Info("redis relay connected")
	} else {
		logger.Info("REDIS_URL empty, running without cross-instance relay")
	}

	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	postH := handler.NewPostHandler(postsSvc, transactionsSvc, roomsSvc, messagesSvc, hub)
	chatH := handler.NewChatHandler(roomsSvc)
	msgH := handler.NewMessageHandler(messagesSvc, roomsSvc, hub)
	reviewH := handler.NewReviewHandler(reviewsSvc)
	openChatH := handler.NewOpenChatHandler(openChatsSvc, roomsSvc, hub)
	wsH := handler.NewWSHandler(hub, cfg.CORSAllowedOrigins)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(middleware.RecoverJSON)
	// Never compress WebSocket upgrades: the wrapped ResponseWriter would not
	// implement http.Hijacker and the upgrade fails with a 500.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			chimw.Compress(5)(next).ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session-Id", "X-Timestamp", "X-Signature"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthServiceValidate(cfg.AuthServiceURL, nil))

		r.Get("/api/posts", postH.List)
		r.Post("/api/posts", postH.Create)
		r.Get("/api/posts/{id}", postH.Get)
		r.Put("/api/posts/{id}", postH.Update)
		r.Delete("/api/posts/{id}", postH.Hide)
		r.Put("/api/posts/{id}/status", postH.ChangeStatus)
		r.Post("/api/posts/{id}/bookmark", postH.ToggleBookmark)
		r.Post("/api/posts/{id}/reviews", reviewH.Create)

		r.Get("/api/users/{id}/reviews", reviewH.ListForUser)

		r.Get("/api/chats", chatH.List)
		r.Post("/api/chats/post", chatH.CreateForPost)
		r.Post("/api/chats/open-chat", chatH.CreateForOpenChat)
		r.Get("/api/chats/{id}", chatH.Get)
		r.Post("/api/chats/{id}/read", chatH.MarkRead)
		r.Post("/api/chats/{id}/approve", openChatH.Approve)
		r.Get("/api/chats/{id}/messages", msgH.List)
		r.Post("/api/chats/{id}/messages", msgH.Send)

		r.Get("/api/open-chats", openChatH.List)
		r.Post("/api/open-chats", openChatH.Create)
		r.Get("/api/open-chats/{id}", openChatH.Get)
		r.Delete("/api/open-chats/{id}", openChatH.Deactivate)

		r.Get("/ws", wsH.ServeWS)
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	relayWg.Wait()
	logger.Info("hub stopped")
	srvWg.Wait()
	logger.Info("server goroutine exited")
}

func runMigrations(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		logger.Errorf("read migrations: %v", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := migrations.Files.ReadFile(name)
		if err != nil {
			logger.Errorf("read migration %s: %v", name, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			logger.Errorf("run migration %s: %v", name, err)
			os.Exit(1)
		}
	}
	logger.Info("migrations applied")
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "wooahyo"
		password = "wooahyo_secret"
		database = "wooahyo"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
