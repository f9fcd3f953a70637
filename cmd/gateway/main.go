package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	api "github.com/brightpath/academy/internal/api/http"
	auth "github.com/brightpath/academy/internal/auth/middleware"
	"github.com/brightpath/academy/internal/config"
	"github.com/brightpath/academy/internal/db"
	"github.com/brightpath/academy/internal/exam"
	"github.com/brightpath/academy/internal/rbac"
	storage "github.com/brightpath/academy/internal/storage"
	syncx "github.com/brightpath/academy/internal/sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		slog.Error("db open failed", "err", err)
		os.Exit(1)
	}
	store := exam.NewSQLStore(dbh, cfg.DBDriver, cfg.BatchMaxWrites)
	events := syncx.NewEventRepo(dbh, "")
	svc := exam.NewService(store, events, nil, nil)

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, cfg.AdminUser, cfg.AdminPassHash)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc))
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		slog.Error("blob store", "err", err)
		os.Exit(1)
	}

	// Protected API (JWT → subject/role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.Route("/assets", func(ar chi.Router) {
			api.MountAssets(ar, bs)
		})

		// Admin/teacher: exam building
		pr.With(rbac.Require("exam:create")).
			Post("/exams/upload", api.UploadExamHandler(svc))
		pr.With(rbac.Require("exam:create")).
			Post("/exams/create-from-bank", api.CreateFromBankHandler(svc))

		// Student/teacher: exam delivery
		pr.With(rbac.Require("exam:view")).
			Get("/exams/{examID}/questions", api.GetExamQuestionsHandler(svc))

		// Student flow
		pr.With(rbac.Require("attempt:create")).
			Post("/exams/{examID}/start", api.StartExamHandler(svc))
		pr.With(rbac.Require("attempt:submit")).
			Post("/exams/{examID}/submit", api.SubmitExamHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/latest", api.LatestAttemptHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(svc))

		// Question bank
		pr.With(rbac.Require("bank:import")).
			Post("/question-bank/upload", api.UploadBankHandler(svc))
		pr.With(rbac.Require("bank:view")).
			Get("/question-bank/topics", api.ListTopicsHandler(svc))
		pr.With(rbac.Require("bank:view")).
			Get("/question-bank/questions", api.ListBankQuestionsHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	slog.Info("listening", "addr", cfg.HTTPAddr, "mode", string(cfg.Mode), "db", cfg.DBDriver)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
