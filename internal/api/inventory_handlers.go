package api

import (
	"log"
	"net/http"

	"github.com/canonical/maas-sub008/internal/domain"
)

// DomainResponse is the JSON shape of one domain.
type DomainResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	TTL           uint32 `json:"ttl,omitempty"`
	Authoritative bool   `json:"authoritative"`
}

// IPRangeResponse is the JSON shape of one dynamic range.
type IPRangeResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SubnetResponse is the JSON shape of one subnet.
type SubnetResponse struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	CIDR          string            `json:"cidr"`
	AllowDNS      bool              `json:"allow_dns"`
	RDNSMode      int               `json:"rdns_mode"`
	DynamicRanges []IPRangeResponse `json:"dynamic_ranges,omitempty"`
}

// listDomainsHandler handles GET /api/v0/domains.
func (a *API) listDomainsHandler(w http.ResponseWriter, r *http.Request) {
	domains, err := a.domainRepo.FindAll(r.Context())
	if err != nil {
		log.Printf("failed to list domains: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list domains")
		return
	}

	response := make([]DomainResponse, 0, len(domains))
	for _, d := range domains {
		response = append(response, DomainResponse{
			ID:            d.ID,
			Name:          d.Name,
			TTL:           d.TTL,
			Authoritative: d.Authoritative,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// listSubnetsHandler handles GET /api/v0/subnets.
func (a *API) listSubnetsHandler(w http.ResponseWriter, r *http.Request) {
	subnets, err := a.subnetRepo.FindAll(r.Context())
	if err != nil {
		log.Printf("failed to list subnets: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list subnets")
		return
	}

	response := make([]SubnetResponse, 0, len(subnets))
	for _, s := range subnets {
		response = append(response, subnetResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

func subnetResponse(s domain.Subnet) SubnetResponse {
	resp := SubnetResponse{
		ID:       s.ID,
		Name:     s.Name,
		CIDR:     s.CIDR,
		AllowDNS: s.AllowDNS,
		RDNSMode: int(s.RDNSMode),
	}
	for _, r := range s.DynamicRanges {
		resp.DynamicRanges = append(resp.DynamicRanges, IPRangeResponse{
			Start: r.Start.String(),
			End:   r.End.String(),
		})
	}
	return resp
}
