package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tradeledger/api/controllers"
	cartcontrollers "github.com/angelmondragon/tradeledger/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/tradeledger/api/controllers/orders"
	"github.com/angelmondragon/tradeledger/api/middleware"
	"github.com/angelmondragon/tradeledger/internal/cart"
	"github.com/angelmondragon/tradeledger/internal/ledger"
	"github.com/angelmondragon/tradeledger/internal/orders"
	"github.com/angelmondragon/tradeledger/internal/payments"
	"github.com/angelmondragon/tradeledger/internal/refunds"
	"github.com/angelmondragon/tradeledger/pkg/config"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	"github.com/angelmondragon/tradeledger/pkg/logger"
	pkgredis "github.com/angelmondragon/tradeledger/pkg/redis"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Cart     cart.Service
	Orders   orders.Service
	Payments payments.Service
	Refunds  refunds.Service
	Ledger   ledger.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *pkgredis.Client,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	deps := map[string]controllers.Pinger{"db": dbP}
	if redisClient != nil {
		deps["redis"] = redisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/v1", func(r chi.Router) {
			r.Post("/cart/summary", cartcontrollers.Summary(svc.Cart, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordercontrollers.Create(svc.Orders, logg))
				r.Get("/", ordercontrollers.List(svc.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(svc.Orders, logg))
				r.Post("/{orderId}/place", ordercontrollers.Place(svc.Orders, logg))
				r.Post("/{orderId}/cancel", ordercontrollers.Cancel(svc.Orders, logg))
				r.Post("/{orderId}/tracking", ordercontrollers.Tracking(svc.Orders, logg))
				r.Post("/{orderId}/deliver", ordercontrollers.Deliver(svc.Orders, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/", controllers.SubmitPayment(svc.Payments, logg))
				r.Get("/{paymentId}", controllers.PaymentDetail(svc.Payments, logg))
			})

			r.Route("/credit/me", func(r chi.Router) {
				r.Use(middleware.RequireAccount(logg))
				r.Get("/", controllers.MyCredit(svc.Ledger, logg))
				r.Get("/movements", controllers.MyMovements(svc.Ledger, logg))
			})
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", controllers.AdminListPayments(svc.Payments, logg))
				r.Get("/stats", controllers.AdminPaymentStats(svc.Payments, logg))
				r.Post("/{paymentId}/resolve", controllers.AdminResolvePayment(svc.Payments, logg))
			})

			r.Route("/orders/{orderId}", func(r chi.Router) {
				r.Post("/mark-paid", ordercontrollers.AdminMarkPaid(svc.Orders, logg))
				r.Post("/refund/approve", ordercontrollers.AdminApproveRefund(svc.Refunds, logg))
				r.Post("/refund/complete", ordercontrollers.AdminCompleteRefund(svc.Refunds, logg))
				r.Post("/refund/reject", ordercontrollers.AdminRejectRefund(svc.Refunds, logg))
			})

			r.Route("/credit/{sellerId}", func(r chi.Router) {
				r.Put("/", controllers.AdminUpsertCredit(svc.Ledger, logg))
				r.Get("/", controllers.AdminGetCredit(svc.Ledger, logg))
				r.Post("/movements", controllers.AdminApplyMovement(svc.Ledger, logg))
				r.Get("/movements", controllers.AdminListMovements(svc.Ledger, logg))
				r.Get("/reconcile", controllers.AdminReconcile(svc.Ledger, logg))
			})
		})
	})

	return r
}
