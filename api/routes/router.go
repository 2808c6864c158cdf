package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/recruitment-backend/api/controllers"
	allotmentcontrollers "github.com/angelmondragon/recruitment-backend/api/controllers/allotments"
	applicationcontrollers "github.com/angelmondragon/recruitment-backend/api/controllers/applications"
	meritcontrollers "github.com/angelmondragon/recruitment-backend/api/controllers/merit"
	"github.com/angelmondragon/recruitment-backend/api/middleware"
	"github.com/angelmondragon/recruitment-backend/internal/allotments"
	"github.com/angelmondragon/recruitment-backend/internal/applications"
	"github.com/angelmondragon/recruitment-backend/internal/merit"
	"github.com/angelmondragon/recruitment-backend/pkg/config"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
	"github.com/angelmondragon/recruitment-backend/pkg/metrics"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	readiness map[string]controllers.Pinger,
	applicationService applications.Service,
	meritService merit.Service,
	allotmentService allotments.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Metrics(httpMetrics))
		r.Use(middleware.AdminAuth(cfg.Auth, logg))

		r.Route("/applications/{applicationId}", func(r chi.Router) {
			r.Get("/", applicationcontrollers.Get(applicationService, logg))
			r.Get("/history", applicationcontrollers.History(applicationService, logg))
			r.Post("/status", applicationcontrollers.ChangeStatus(applicationService, logg))
			r.Post("/submit", applicationcontrollers.Submit(applicationService, logg))
			r.Post("/decision", applicationcontrollers.Decide(applicationService, logg))
		})
		r.Post("/selection", applicationcontrollers.BulkDecide(applicationService, logg))

		r.Route("/posts/{postId}", func(r chi.Router) {
			r.Get("/merit", meritcontrollers.Rank(meritService, logg))
			r.Post("/merit/snapshot", meritcontrollers.Snapshot(meritService, logg))
			r.Post("/allotment-schedules", allotmentcontrollers.Create(allotmentService, logg))
			r.Get("/allotment-schedules", allotmentcontrollers.ListByPost(allotmentService, logg))
		})

		r.Route("/allotment-schedules/{scheduleId}", func(r chi.Router) {
			r.Get("/", allotmentcontrollers.Get(allotmentService, logg))
			r.Get("/tracking", allotmentcontrollers.ListTracking(allotmentService, logg))
			r.Post("/cancel", allotmentcontrollers.Cancel(allotmentService, logg))
			r.Post("/retry", allotmentcontrollers.Retry(allotmentService, logg))
		})
	})

	r.Route("/api/applicant/v1/applications/{applicationId}", func(r chi.Router) {
		r.Use(middleware.Metrics(httpMetrics))
		r.Use(middleware.ApplicantAuth(cfg.Auth, logg))

		r.Get("/editable", applicationcontrollers.Editable(applicationService, logg))
		r.Post("/withdraw", applicationcontrollers.Withdraw(applicationService, logg))
	})

	return r
}
