package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	sm := s.sessionManager
	d := s.deps

	statsHandler := handlers.NewStatsHandler(d.Employees, d.Attendance)
	authHandler := handlers.NewAuthHandler(d.Users, sm)
	employeesHandler := handlers.NewEmployeesHandler(d.Employees, d.Corpus)
	attendanceHandler := handlers.NewAttendanceHandler(d.Attendance, d.Employees, statsHandler.InvalidateCache)
	reportsHandler := handlers.NewReportsHandler(d.Attendance)
	usersHandler := handlers.NewUsersHandler(d.Users, sm)
	corpusHandler := handlers.NewCorpusHandler(d.Corpus, d.Matcher)
	configHandler := handlers.NewConfigHandler(s.config, d.Schedule)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	if d.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sm))

			r.Post("/auth/password", authHandler.ChangePassword)

			r.Get("/stats", statsHandler.Get)
			r.Get("/config", configHandler.Get)

			// Employees
			r.Get("/employees", employeesHandler.List)
			r.Get("/employees/export", employeesHandler.Export)
			r.Get("/employees/{id}", employeesHandler.Get)
			r.Get("/employees/{id}/photo", employeesHandler.Photo)

			// Attendance
			r.Get("/attendance", attendanceHandler.List)
			r.Get("/attendance/today", attendanceHandler.Today)
			r.Get("/attendance/export", attendanceHandler.Export)

			// Reports
			r.Get("/reports", reportsHandler.Kinds)
			r.Get("/reports/{kind}", reportsHandler.Get)

			// Corpus
			r.Get("/corpus", corpusHandler.Summary)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(database.RoleAdmin, database.RoleManager))

				r.Post("/employees", employeesHandler.Create)
				r.Put("/employees/{id}", employeesHandler.Update)
				r.Put("/employees/{id}/photo", employeesHandler.UploadPhoto)
				r.Delete("/employees/{id}", employeesHandler.Delete)

				r.Post("/attendance", attendanceHandler.Create)
				r.Put("/attendance/{id}/{date}", attendanceHandler.Mark)
				r.Delete("/attendance/{id}/{date}", attendanceHandler.Delete)

				r.Get("/corpus/audit", corpusHandler.Audit)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(database.RoleAdmin))

				r.Get("/users", usersHandler.List)
				r.Post("/users", usersHandler.Create)
				r.Put("/users/{username}/password", usersHandler.ResetPassword)
				r.Delete("/users/{username}", usersHandler.Delete)
			})
		})
	})
}
