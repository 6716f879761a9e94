package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/college-erp/internal/api/http"
	"github.com/mind-engage/college-erp/internal/auth"
	"github.com/mind-engage/college-erp/internal/rbac"
)

func (a *app) routes() http.Handler {
	log := a.log

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(a.authSvc, a.users, a.cfg.AllowClaimRole, log))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(a.authSvc))
		pr.Use(auth.AttachRoleFromDB(a.users, a.cfg.AllowClaimRole, log))

		pr.Route("/quizzes", func(qr chi.Router) {
			qr.With(rbac.Require(rbac.PermQuizCreate)).Post("/", api.CreateQuizHandler(a.catalog, log))
			qr.With(rbac.Require(rbac.PermQuizView)).Get("/", api.ListQuizzesHandler(a.catalog, log))

			qr.Route("/{quizID}", func(q chi.Router) {
				q.With(rbac.Require(rbac.PermQuizView)).Get("/", api.GetQuizHandler(a.catalog, log))
				q.With(rbac.Require(rbac.PermQuizUpdate)).Patch("/", api.UpdateQuizHandler(a.catalog, log))
				q.With(rbac.Require(rbac.PermQuizDelete)).Delete("/", api.DeleteQuizHandler(a.catalog, log))
				q.With(rbac.Require(rbac.PermQuizDelete)).Post("/deactivate", api.DeactivateQuizHandler(a.catalog, log))

				q.With(rbac.Require(rbac.PermAttemptStart)).Post("/attempts", api.StartAttemptHandler(a.tracker, log))
				q.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
					Get("/attempts", api.ListQuizAttemptsHandler(a.tracker, log))
			})
		})

		pr.With(rbac.Require(rbac.PermAttemptSubmit)).
			Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(a.tracker, log))
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(a.tracker, log))

		pr.With(rbac.Require(rbac.PermCourseCreate)).Post("/courses", api.CreateCourseHandler(a.roster, log))
		pr.With(rbac.Require(rbac.PermCourseEnroll)).
			Post("/courses/{courseID}/students", api.EnrollStudentsHandler(a.roster, log))
		pr.With(rbac.Require(rbac.PermCourseEnroll)).
			Delete("/courses/{courseID}/students/{studentID}", api.UnenrollStudentHandler(a.roster, log))

		pr.With(rbac.Require(rbac.PermNotificationViewOwn)).
			Get("/notifications", api.ListNotificationsHandler(a.inbox, log))
		pr.With(rbac.Require(rbac.PermNotificationViewOwn)).
			Post("/notifications/{id}/read", api.MarkNotificationReadHandler(a.inbox, log))

		pr.With(rbac.Require(rbac.PermUserCreate)).Post("/users", api.CreateUserHandler(a.users, log))
		pr.With(rbac.Require(rbac.PermEventsView)).Get("/events", api.ListEventsHandler(a.events, log))
	})

	r.Get("/healthz", api.HealthzHandler())
	r.Get("/readyz", api.ReadyzHandler(a.ready))
	return r
}
