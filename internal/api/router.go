package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/erazemk/inventar/internal/blob"
	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/metrics"
	"github.com/erazemk/inventar/internal/notify"
)

// Config holds what the API serves from.
type Config struct {
	DB            *sql.DB
	Inventory     *inventory.Service
	Notify        *notify.Service
	Blobs         blob.Store
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	Log           zerolog.Logger
	SessionSecret string
	RateLimit     float64
	RateBurst     int
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config) http.Handler {
	mux := http.NewServeMux()

	sessionHandler := &SessionHandler{DB: cfg.DB, SessionSecret: cfg.SessionSecret, Now: cfg.Inventory.Now}
	usersHandler := &UsersHandler{DB: cfg.DB}
	itemsHandler := &ItemsHandler{DB: cfg.DB, Inventory: cfg.Inventory}
	locationsHandler := &LocationsHandler{DB: cfg.DB, Inventory: cfg.Inventory}
	categoriesHandler := &CategoriesHandler{DB: cfg.DB}
	movementsHandler := &MovementsHandler{DB: cfg.DB, Inventory: cfg.Inventory}
	loansHandler := &LoansHandler{DB: cfg.DB, Inventory: cfg.Inventory}
	notificationsHandler := &NotificationsHandler{Notify: cfg.Notify}
	reportsHandler := &ReportsHandler{DB: cfg.DB, Inventory: cfg.Inventory}
	filesHandler := &FilesHandler{Blobs: cfg.Blobs}

	sessionMW := SessionMiddleware(cfg.SessionSecret, cfg.DB)
	authed := func(h http.HandlerFunc) http.Handler { return sessionMW(h) }
	admin := func(h http.HandlerFunc) http.Handler { return sessionMW(RequireAdmin(h)) }

	// Public.
	mux.HandleFunc("POST /api/session", sessionHandler.Start)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.DB.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Session.
	mux.Handle("GET /api/session", authed(sessionHandler.Get))
	mux.Handle("DELETE /api/session", authed(sessionHandler.Revoke))
	mux.Handle("PUT /api/session/password", authed(sessionHandler.ChangePassword))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PATCH /api/users/{id}", admin(usersHandler.Update))

	// Items.
	mux.Handle("GET /api/items", authed(itemsHandler.List))
	mux.Handle("POST /api/items", authed(itemsHandler.Create))
	mux.Handle("GET /api/items/{id}", authed(itemsHandler.Get))
	mux.Handle("PATCH /api/items/{id}", authed(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", authed(itemsHandler.Delete))
	mux.Handle("PUT /api/items/{id}/image", authed(itemsHandler.UploadImage))
	mux.Handle("GET /api/items/{id}/movements", authed(itemsHandler.Movements))
	mux.Handle("GET /api/items/{id}/loans", authed(itemsHandler.Loans))
	mux.Handle("POST /api/items/{id}/documents", authed(itemsHandler.AddDocument))
	mux.Handle("DELETE /api/items/{id}/documents/{docId}", authed(itemsHandler.RemoveDocument))

	// Locations.
	mux.Handle("GET /api/locations", authed(locationsHandler.List))
	mux.Handle("POST /api/locations", authed(locationsHandler.Create))
	mux.Handle("GET /api/locations/{id}", authed(locationsHandler.Get))
	mux.Handle("PATCH /api/locations/{id}", authed(locationsHandler.Update))
	mux.Handle("DELETE /api/locations/{id}", authed(locationsHandler.Delete))
	mux.Handle("GET /api/locations/{id}/items", authed(locationsHandler.Items))

	// Categories.
	mux.Handle("GET /api/categories", authed(categoriesHandler.List))
	mux.Handle("POST /api/categories", authed(categoriesHandler.Create))
	mux.Handle("DELETE /api/categories/{id}", authed(categoriesHandler.Delete))

	// Ledger and loans.
	mux.Handle("GET /api/movements", authed(movementsHandler.List))
	mux.Handle("POST /api/movements", authed(movementsHandler.Create))
	mux.Handle("GET /api/loans", authed(loansHandler.List))
	mux.Handle("POST /api/loans", authed(loansHandler.Create))
	mux.Handle("GET /api/loans/{id}", authed(loansHandler.Get))
	mux.Handle("POST /api/loans/{id}/return", authed(loansHandler.Return))

	// Notifications.
	mux.Handle("GET /api/notifications", authed(notificationsHandler.List))
	mux.Handle("GET /api/notifications/unread", authed(notificationsHandler.Unread))
	mux.Handle("POST /api/notifications/read", authed(notificationsHandler.MarkAllRead))
	mux.Handle("POST /api/notifications/{id}/read", authed(notificationsHandler.MarkRead))

	// Reports.
	mux.Handle("GET /api/reports/summary", authed(reportsHandler.Summary))
	mux.Handle("GET /api/reports/inventory.pdf", authed(reportsHandler.InventoryPDF))
	mux.Handle("GET /api/reports/export.xlsx", authed(reportsHandler.ExportXLSX))

	// Stored files.
	mux.Handle("GET "+blob.FilesPath+"{key...}", authed(filesHandler.Get))

	return chain(mux,
		middleware.RequestID,
		LoggingMiddleware(cfg.Log, cfg.Metrics),
		middleware.Recoverer,
		RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst),
	)
}
