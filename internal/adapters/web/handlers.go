package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"inventory-transfer/internal/app"
	"inventory-transfer/internal/core"
)

// Options configures the HTTP adapter.
type Options struct {
	AllowedOrigins []string
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         *zap.Logger
	// Instrument wraps every request, typically with Prometheus collectors.
	Instrument func(http.Handler) http.Handler
	// Metrics is served at /metrics when set.
	Metrics http.Handler
}

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
	logger    *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{svc: svc, jwtSecret: opts.JWTSecret, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestID)
	if opts.Instrument != nil {
		r.Use(opts.Instrument)
	}
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(opts.AllowedOrigins))
	if opts.RateLimitRPS > 0 {
		r.Use(NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, logger).Handler)
	}

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}
	r.Get("/api/schemas", h.listSchemas)
	r.Get("/api/schemas/{name}", h.getSchema)
	r.With(RequestBodyLimit(1<<16)).Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20))

		r.Get("/api/auth/me", h.me)

		r.Get("/api/warehouses", h.listWarehouses)
		r.Post("/api/warehouses", h.createWarehouse)
		r.Get("/api/warehouses/{id}", h.getWarehouse)
		r.Put("/api/warehouses/{id}", h.updateWarehouse)
		r.Patch("/api/warehouses/{id}", h.updateWarehouse)
		r.Delete("/api/warehouses/{id}", h.deleteWarehouse)
		r.Get("/api/warehouses/{id}/inventory", h.warehouseInventory)

		r.Get("/api/inventory", h.listItems)
		r.Post("/api/inventory", h.createItem)
		r.Get("/api/inventory/{id}", h.getItem)
		r.Put("/api/inventory/{id}", h.updateItem)
		r.Patch("/api/inventory/{id}", h.updateItem)
		r.Delete("/api/inventory/{id}", h.deleteItem)
		r.Get("/api/low-stock-items", h.lowStockItems)

		r.Get("/api/stock", h.getStock)
		r.Post("/api/stock/receive", h.stockMovement(app.ApplicationService.ReceiveStock, "Stock received successfully"))
		r.Post("/api/stock/issue", h.stockMovement(app.ApplicationService.IssueStock, "Stock issued successfully"))
		r.Post("/api/stock/reserve", h.stockMovement(app.ApplicationService.ReserveStock, "Stock reserved successfully"))
		r.Post("/api/stock/release", h.stockMovement(app.ApplicationService.ReleaseStock, "Stock released successfully"))

		r.Get("/api/stock-transfers", h.listTransfers)
		r.Post("/api/stock-transfers", h.createTransfer)
		r.Get("/api/stock-transfers-statistics", h.transferStatistics)
		r.Get("/api/stock-transfers/{id}", h.getTransfer)
		r.Patch("/api/stock-transfers/{id}", h.updateTransfer)
		r.Delete("/api/stock-transfers/{id}", h.deleteTransfer)
		r.Post("/api/stock-transfers/{id}/execute", h.executeTransfer)
		r.Post("/api/stock-transfers/{id}/cancel", h.cancelTransfer)
	})

	h.router = r
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "")
}

func (h *Handler) listSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.RequestSchemaNames(), "")
}

// getSchema serves the JSON schema of a request body, e.g. /api/schemas/create-transfer.
func (h *Handler) getSchema(w http.ResponseWriter, r *http.Request) {
	schema, ok := app.RequestSchema(chi.URLParam(r, "name"))
	if !ok {
		writeError(w, r, "unknown schema", "NOT_FOUND", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	_ = json.NewEncoder(w).Encode(schema)
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses the {id} URL parameter, writing 404 when it is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, "resource not found", "NOT_FOUND", http.StatusNotFound)
		return 0, false
	}
	return id, true
}

// queryInts parses optional integer query parameters into dst, reporting every malformed one.
func queryInts(r *http.Request, dst map[string]any) error {
	v := &core.ValidationError{}
	q := r.URL.Query()
	for name, ptr := range dst {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			v.Add(name, "The "+name+" must be a non-negative integer.")
			continue
		}
		switch p := ptr.(type) {
		case *int64:
			*p = n
		case *int:
			*p = int(n)
		}
	}
	return v.OrNil()
}
