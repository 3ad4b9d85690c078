package handlers

import (
	"net/http"

	"taskDesk/internal/auth"
	"taskDesk/internal/config"
	"taskDesk/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires every endpoint. Task routes require a bearer token.
func NewRouter(cfg config.ServerConfig, authCfg config.AuthConfig, tasks *TaskHandler, issuer *auth.Issuer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.RateLimit > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimit))
	}

	r.Get("/health", tasks.HealthCheck)

	if authCfg.DevTokens {
		r.Post("/api/auth/dev-token", NewAuthHandler(issuer).DevToken)
	}

	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(middleware.Auth(issuer))

		r.Get("/", tasks.ListTasks)                            // GET /api/tasks?view=
		r.Post("/", tasks.CreateTasks)                         // POST /api/tasks
		r.Get("/dashboard", tasks.Dashboard)                   // GET /api/tasks/dashboard
		r.Get("/check-date", tasks.CheckDate)                  // GET /api/tasks/check-date?date=
		r.Get("/affected-by-holiday", tasks.AffectedByHoliday) // GET /api/tasks/affected-by-holiday?view=
		r.Post("/update-status", tasks.UpdateStatus)           // POST /api/tasks/update-status
		r.Post("/extend", tasks.Extend)                        // POST /api/tasks/extend

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", tasks.GetTask)        // GET /api/tasks/{id}
			r.Patch("/", tasks.EditTask)     // PATCH /api/tasks/{id}
			r.Get("/history", tasks.History) // GET /api/tasks/{id}/history
		})
	})

	return r
}
