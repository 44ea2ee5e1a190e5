package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/virtucloud/virtucloud-backend/api/controllers"
	"github.com/virtucloud/virtucloud-backend/api/middleware"
	"github.com/virtucloud/virtucloud-backend/internal/auth"
	"github.com/virtucloud/virtucloud-backend/internal/payments"
	"github.com/virtucloud/virtucloud-backend/internal/plans"
	"github.com/virtucloud/virtucloud-backend/internal/subscriptions"
	"github.com/virtucloud/virtucloud-backend/internal/users"
	"github.com/virtucloud/virtucloud-backend/internal/vms"
	"github.com/virtucloud/virtucloud-backend/pkg/config"
	"github.com/virtucloud/virtucloud-backend/pkg/enums"
	"github.com/virtucloud/virtucloud-backend/pkg/logger"
)

// RouterParams carry everything the HTTP surface needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	AuthService   auth.Service
	Plans         *plans.Service
	Payments      *payments.Service
	Subscriptions *subscriptions.Service
	VMs           *vms.Service
	Users         *users.Service
}

// NewRouter assembles the API route tree.
func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(params.AuthService, logg))
		r.Post("/login", controllers.AuthLogin(params.AuthService, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/mpesa", controllers.MpesaCallback(params.Payments, logg))
	})

	r.Get("/api/v1/plans", controllers.RatePlansList(params.Plans, logg))
	r.Get("/api/v1/plans/{planID}", controllers.RatePlansGet(params.Plans, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Post("/subscribe", controllers.PaymentSubscribe(params.Payments, logg))
			r.Get("/history", controllers.PaymentHistory(params.Payments, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/current", controllers.SubscriptionCurrent(params.Subscriptions, logg))
			r.Post("/cancel", controllers.SubscriptionCancel(params.Subscriptions, logg))
		})

		r.Route("/vms", func(r chi.Router) {
			r.Post("/", controllers.VMCreate(params.VMs, logg))
			r.Get("/", controllers.VMList(params.VMs, logg))
			r.Route("/{vmID}", func(r chi.Router) {
				r.Get("/", controllers.VMGet(params.VMs, logg))
				r.Patch("/", controllers.VMUpdate(params.VMs, logg))
				r.Delete("/", controllers.VMDelete(params.VMs, logg))
				r.Post("/start", controllers.VMStart(params.VMs, logg))
				r.Post("/stop", controllers.VMStop(params.VMs, logg))
				r.Post("/backup", controllers.VMBackup(params.VMs, logg))
				r.Post("/move", controllers.VMMove(params.VMs, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

			r.Route("/plans", func(r chi.Router) {
				r.Post("/", controllers.RatePlansCreate(params.Plans, logg))
				r.Patch("/{planID}", controllers.RatePlansUpdate(params.Plans, logg))
				r.Delete("/{planID}", controllers.RatePlansDelete(params.Plans, logg))
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.AdminUsersList(params.Users, logg))
				r.Post("/{userID}/deactivate", controllers.AdminUserDeactivate(params.Users, logg))
			})

			r.Get("/payments", controllers.AdminPaymentsList(params.Payments, logg))
		})
	})

	return r
}
