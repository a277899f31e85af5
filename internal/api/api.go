package api

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/canonical/maas-sub008/internal/repository"
	"github.com/canonical/maas-sub008/internal/zonegen"
)

// API holds repository dependencies for clean data access
type API struct {
	domainRepo repository.DomainRepository
	subnetRepo repository.SubnetRepository
	provider   zonegen.MappingProvider
	resolver   zonegen.AddressResolver
	// controllerHost is the name published as the zones' name server;
	// empty disables self-address injection.
	controllerHost string
	defaultTTL     uint32
}

// NewAPI creates a new API instance backed by the given database.
func NewAPI(db *sql.DB, controllerHost string, defaultTTL uint32) *API {
	return &API{
		domainRepo:     repository.NewDomainRepository(db),
		subnetRepo:     repository.NewSubnetRepository(db),
		provider:       repository.NewMappingRepository(db),
		resolver:       zonegen.NetResolver{},
		controllerHost: controllerHost,
		defaultTTL:     defaultTTL,
	}
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RegisterRoutes registers all API endpoints to the given chi router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v0", func(r chi.Router) {
		r.Get("/domains", a.listDomainsHandler)
		r.Get("/subnets", a.listSubnetsHandler)
		r.Get("/zones", a.previewZonesHandler)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
