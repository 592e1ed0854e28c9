package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"panol-backend/internal/inventory/loans"
	"panol-backend/internal/inventory/reservations"
	"panol-backend/internal/inventory/suggestions"
	"panol-backend/internal/inventory/tools"
	"panol-backend/internal/inventory/writeoffs"
	"panol-backend/internal/platform/auth"
	"panol-backend/internal/platform/db"
	"panol-backend/internal/registry"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if cfg.Mode != "dev" && cfg.Mode != "release" {
		log.Fatal().Str("mode", cfg.Mode).Msg("mode must be dev or release")
	}
	log.Info().Str("mode", cfg.Mode).Str("version", cfg.Version).Msg("starting")

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}
	defer conn.Close()
	log.Info().Str("db", cfg.DB.DBName).Msg("connected to database")

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		// CORS only matters while the frontend runs on its own dev server
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Location"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	registrySvc := registry.NewService(conn)
	dataDir := os.Getenv("PANOL_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	authSvc := auth.NewService(conn)
	api := r.Group("/api/v1")
	auth.RegisterRoutes(api, authSvc)

	protected := r.Group("/api/v1")
	protected.Use(auth.RequireAuth(auth.JWTSecret()))

	admin := protected.Group("")
	admin.Use(auth.RequireRole("head"))
	auth.RegisterAdminRoutes(admin, authSvc)

	tools.RegisterRoutes(protected, tools.NewService(conn))
	reservations.RegisterRoutes(protected, reservations.NewService(conn, registrySvc))
	loans.RegisterRoutes(protected, loans.NewService(conn, registrySvc))
	writeoffs.RegisterRoutes(protected, writeoffs.NewService(conn, registrySvc))
	suggestions.RegisterRoutes(protected, suggestions.NewService(conn, dataDir))
	registry.RegisterRoutes(protected, registrySvc)

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("bye")
}
