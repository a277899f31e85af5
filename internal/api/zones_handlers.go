package api

import (
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"

	"github.com/canonical/maas-sub008/internal/zonegen"
)

// RecordResponse is one resource record inside a zone preview.
type RecordResponse struct {
	Name string `json:"name"`
	TTL  uint32 `json:"ttl"`
	Type string `json:"type"`
	Data string `json:"data"`
}

// ZoneResponse is the JSON shape of one generated zone.
type ZoneResponse struct {
	DomainName string           `json:"domain"`
	ZoneName   string           `json:"zone"`
	Serial     uint32           `json:"serial"`
	DefaultTTL uint32           `json:"default_ttl"`
	Records    []RecordResponse `json:"records"`
}

// previewZonesHandler handles GET /api/v0/zones.
//
// Runs a full generation over the stored inventory and returns the
// resulting zone set without writing anything to disk. The SOA serial
// is caller-owned and passed as ?serial=N (default 1).
func (a *API) previewZonesHandler(w http.ResponseWriter, r *http.Request) {
	serial := uint64(1)
	if raw := r.URL.Query().Get("serial"); raw != "" {
		var err error
		serial, err = strconv.ParseUint(raw, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid serial")
			return
		}
	}

	domains, err := a.provider.Domains(r.Context())
	if err != nil {
		log.Printf("failed to list domains: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list domains")
		return
	}
	subnets, err := a.subnetRepo.FindAll(r.Context())
	if err != nil {
		log.Printf("failed to list subnets: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list subnets")
		return
	}

	generator := zonegen.New(a.provider, a.resolver, zonegen.Params{
		Domains:        domains,
		Subnets:        subnets,
		Serial:         uint32(serial),
		DefaultTTL:     a.defaultTTL,
		ControllerHost: a.controllerHost,
	})
	zones, err := generator.GenerateZones(r.Context())
	if err != nil {
		if errors.Is(err, zonegen.ErrUnresolvableHost) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		log.Printf("failed to generate zones: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate zones")
		return
	}

	response := make([]ZoneResponse, 0, len(zones))
	for _, zone := range zones {
		response = append(response, ZoneResponse{
			DomainName: zone.DomainName(),
			ZoneName:   zone.ZoneName(),
			Serial:     zone.Serial(),
			DefaultTTL: zone.DefaultTTL(),
			Records:    zoneRecords(zone),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// zoneRecords flattens a zone's mappings into wire-order records,
// sorted by owner name for stable output.
func zoneRecords(zone zonegen.ZoneConfig) []RecordResponse {
	var records []RecordResponse
	switch z := zone.(type) {
	case *zonegen.ForwardZoneConfig:
		for name, entry := range z.Mapping() {
			for _, ip := range entry.IPs {
				rrtype := "A"
				if !ip.Is4() {
					rrtype = "AAAA"
				}
				records = append(records, RecordResponse{
					Name: name, TTL: entry.TTL, Type: rrtype, Data: ip.String(),
				})
			}
		}
		for name, entry := range z.OtherMapping() {
			for _, rr := range entry.RRset {
				records = append(records, RecordResponse{
					Name: name, TTL: rr.TTL, Type: rr.RRType, Data: rr.RRData,
				})
			}
		}
	case *zonegen.ReverseZoneConfig:
		for fqdn, entry := range z.Mapping() {
			for _, ip := range entry.IPs {
				if !z.Network().Contains(ip) {
					continue
				}
				records = append(records, RecordResponse{
					Name: ip.String(), TTL: entry.TTL, Type: "PTR", Data: fqdn,
				})
			}
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Name != records[j].Name {
			return records[i].Name < records[j].Name
		}
		if records[i].Type != records[j].Type {
			return records[i].Type < records[j].Type
		}
		return records[i].Data < records[j].Data
	})
	return records
}
