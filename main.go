package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/optionstaxhub/backend/src/config"
	"github.com/username/optionstaxhub/backend/src/database"
	"github.com/username/optionstaxhub/backend/src/handlers"
	"github.com/username/optionstaxhub/backend/src/logger"
	"github.com/username/optionstaxhub/backend/src/security"
	"github.com/username/optionstaxhub/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == config.Cfg.AllowedOrigin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("OptionsTaxHub backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing caches...")
	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
	priceCache := cache.New(config.Cfg.PriceCacheTTL, 2*config.Cfg.PriceCacheTTL)

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	priceService := services.NewPriceService(priceCache)
	advisorService := services.NewAdvisorService(context.Background())
	historyService := services.NewHistoryService()
	notificationService := services.NewNotificationService()
	analysisService := services.NewAnalysisService(priceService, advisorService, historyService, reportCache)

	userHandler := handlers.NewUserHandler(authService)
	analyzeHandler := handlers.NewAnalyzeHandler(analysisService, notificationService)
	historyHandler := handlers.NewHistoryHandler(historyService)
	taxProfileHandler := handlers.NewTaxProfileHandler()

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("GET /api/auth/csrf", handlers.GetCSRFToken)
	apiRouter.HandleFunc("POST /api/auth/register", userHandler.RegisterUserHandler)
	apiRouter.HandleFunc("POST /api/auth/login", userHandler.LoginUserHandler)
	apiRouter.HandleFunc("POST /api/auth/refresh", userHandler.RefreshTokenHandler)
	apiRouter.Handle("POST /api/auth/logout", userHandler.AuthMiddleware(http.HandlerFunc(userHandler.LogoutHandler)))

	csrfProtection := handlers.CSRFMiddleware()
	applyCsrfAndAuth := func(handler http.HandlerFunc) http.Handler {
		return csrfProtection(userHandler.AuthMiddleware(handler))
	}

	apiRouter.Handle("POST /api/portfolio/analyze", applyCsrfAndAuth(analyzeHandler.HandleAnalyze))
	apiRouter.Handle("GET /api/portfolio/latest", applyCsrfAndAuth(analyzeHandler.HandleGetLatest))
	apiRouter.Handle("GET /api/portfolio/history", applyCsrfAndAuth(historyHandler.HandleListAnalyses))
	apiRouter.Handle("GET /api/portfolio/history/{id}", applyCsrfAndAuth(historyHandler.HandleGetAnalysis))
	apiRouter.Handle("DELETE /api/portfolio/history/{id}", applyCsrfAndAuth(historyHandler.HandleDeleteAnalysis))
	apiRouter.Handle("GET /api/tax-profile", applyCsrfAndAuth(taxProfileHandler.HandleGetProfile))
	apiRouter.Handle("PUT /api/tax-profile", applyCsrfAndAuth(taxProfileHandler.HandleUpdateProfile))
	apiRouter.Handle("GET /api/tax-brackets", applyCsrfAndAuth(taxProfileHandler.HandleGetBrackets))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "OptionsTaxHub backend is running"})
		} else if !strings.HasPrefix(r.URL.Path, "/api/") {
			logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
