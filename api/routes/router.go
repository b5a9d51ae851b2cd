package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/rentalkit-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/rentalkit-backend/api/controllers/cart"
	kitcontrollers "github.com/angelmondragon/rentalkit-backend/api/controllers/kits"
	"github.com/angelmondragon/rentalkit-backend/api/middleware"
	"github.com/angelmondragon/rentalkit-backend/internal/cart"
	"github.com/angelmondragon/rentalkit-backend/internal/catalog"
	"github.com/angelmondragon/rentalkit-backend/internal/kits"
	"github.com/angelmondragon/rentalkit-backend/pkg/config"
	"github.com/angelmondragon/rentalkit-backend/pkg/db"
	"github.com/angelmondragon/rentalkit-backend/pkg/logger"
	"github.com/angelmondragon/rentalkit-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	catalogAccessor catalog.Accessor,
	kitService kits.Service,
	cartService cart.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	cartPolicy := middleware.NewRateLimitPolicy(
		"cart",
		cfg.RateLimit.CartWindow,
		cfg.RateLimit.CartLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.Dependency{Name: "db", Pinger: dbP},
			controllers.Dependency{Name: "redis", Pinger: redisClient},
		))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/slug/{slug}", controllers.ProductGetBySlug(catalogAccessor, logg))
			r.Route("/{productId}", func(r chi.Router) {
				r.Get("/", controllers.ProductGet(catalogAccessor, logg))
				r.Get("/kit", kitcontrollers.KitResolve(kitService, logg))
				r.Route("/kit/selection", func(r chi.Router) {
					r.Use(middleware.RequireSession(logg))
					r.Get("/", kitcontrollers.KitSelectionOpen(kitService, logg))
					r.Delete("/", kitcontrollers.KitSelectionDiscard(kitService, logg))
					r.Put("/slots/{slot}", kitcontrollers.KitSelectionApply(kitService, logg))
					r.Post("/slots/{slot}/swap", kitcontrollers.KitSelectionSwap(kitService, logg))
					r.Delete("/slots/{slot}/items/{itemProductId}", kitcontrollers.KitSelectionRemove(kitService, logg))
				})
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RateLimit(cartPolicy, redisClient, logg))
			r.Get("/", cartcontrollers.CartFetch(cartService, logg))
			r.Put("/", cartcontrollers.CartReplace(cartService, logg))
			r.Delete("/", cartcontrollers.CartClear(cartService, logg))
			r.Post("/merge", cartcontrollers.CartMerge(cartService, logg))
			r.Route("/items", func(r chi.Router) {
				r.Post("/", cartcontrollers.CartAddItem(cartService, logg))
				r.Patch("/{itemId}", cartcontrollers.CartUpdateItem(cartService, logg))
				r.Delete("/{itemId}", cartcontrollers.CartRemoveItem(cartService, logg))
				r.Post("/{itemId}/kit", cartcontrollers.CartReopenKit(cartService, logg))
				r.Put("/{itemId}/kit", cartcontrollers.CartUpdateKit(cartService, logg))
			})
		})
	})

	return r
}
