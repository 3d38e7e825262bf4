package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campus-events/internal/pkg/db"
)

// Handlers bundles the per-domain handlers mounted by NewRouter.
type Handlers struct {
	Account       *AccountHandler
	Event         *EventHandler
	Participation *ParticipationHandler
	Wallet        *WalletHandler
	Marketplace   *MarketplaceHandler
	Discipline    *DisciplineHandler
	Verification  *VerificationHandler
}

// NewRouter assembles the HTTP API. Registration and the payment callback
// are public; everything else requires the gateway's caller header.
func NewRouter(h Handlers, pool *db.Pool, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.HealthCheck(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		h.Account.RegisterPublic(r)
		h.Wallet.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(CallerID)

			h.Account.Register(r)
			h.Event.Register(r)
			h.Participation.Register(r)
			h.Wallet.Register(r)
			h.Marketplace.Register(r)
			h.Discipline.Register(r)
			h.Discipline.RegisterAdmin(r)
			h.Verification.Register(r)
		})
	})

	return r
}
