// internal/www/router.go
package www

import (
	"context"
	"net/http"

	"github.com/domipancho/courier-tracker/internal/reporter"
	"github.com/domipancho/courier-tracker/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Tracker is the lifecycle surface the API drives. *service.Service satisfies it.
type Tracker interface {
	Start(ctx context.Context, orderID int64) error
	Stop(ctx context.Context) error
	Status() service.Status
}

// Fixes accepts pushed location fixes. *source.Hub satisfies it.
type Fixes interface {
	Ingest(payload []byte) error
	SetProviderEnabled(p reporter.Provider, on bool)
	ProviderEnabled(p reporter.Provider) bool
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	tracker Tracker
	fixes   Fixes
}

// NewRouter creates the chi router for the local control API.
func NewRouter(tracker Tracker, fixes Fixes) http.Handler {
	h := &Handlers{tracker: tracker, fixes: fixes}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api/location-service", func(r chi.Router) {
		r.Post("/start", h.apiStart)
		r.Post("/stop", h.apiStop)
		r.Get("/status", h.apiStatus)
		r.Post("/location", h.apiPushLocation)
		r.Get("/providers", h.apiProviders)
		r.Put("/providers/{provider}", h.apiSetProvider)
	})

	return r
}
