package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gatehouse/internal/cache"
)

// UnknownLocation is returned whenever a lookup cannot be completed. Geo
// resolution is display-only; it never fails a login request.
const UnknownLocation = "unknown"

const defaultEndpoint = "http://ip-api.com/json"

// Resolver turns an origin address into a coarse display location, caching
// results so repeated attempts from one origin cost a single upstream call.
type Resolver struct {
	client   *http.Client
	endpoint string
	cache    cache.Cache
	ttl      time.Duration
	logger   *slog.Logger
}

// NewResolver creates a Resolver backed by the given cache.
func NewResolver(c cache.Cache, ttl time.Duration, logger *slog.Logger) *Resolver {
	return &Resolver{
		client:   &http.Client{Timeout: 2 * time.Second},
		endpoint: defaultEndpoint,
		cache:    c,
		ttl:      ttl,
		logger:   logger,
	}
}

type lookupResponse struct {
	Status  string `json:"status"`
	City    string `json:"city"`
	Region  string `json:"regionName"`
	Country string `json:"country"`
}

// Lookup resolves an address to "City, Region, Country" best-effort. Any
// failure (timeout, malformed response, cache error) degrades to
// UnknownLocation.
func (r *Resolver) Lookup(ctx context.Context, address string) string {
	if address == "" {
		return UnknownLocation
	}

	cacheKey := "geo:" + address
	if cached, ok, err := r.cache.Get(ctx, cacheKey); err == nil && ok {
		return cached
	}

	location := r.fetch(ctx, address)

	if location != UnknownLocation {
		if err := r.cache.Set(ctx, cacheKey, location, r.ttl); err != nil {
			r.logger.Warn("failed to cache geo lookup", slog.Any("error", err))
		}
	}

	return location
}

func (r *Resolver) fetch(ctx context.Context, address string) string {
	url := fmt.Sprintf("%s/%s?fields=status,city,regionName,country", r.endpoint, address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return UnknownLocation
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("geo lookup request failed", slog.Any("error", err))
		return UnknownLocation
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return UnknownLocation
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return UnknownLocation
	}
	if body.Status != "success" {
		return UnknownLocation
	}

	location := body.City
	if body.Region != "" && body.Region != body.City {
		if location != "" {
			location += ", "
		}
		location += body.Region
	}
	if body.Country != "" {
		if location != "" {
			location += ", "
		}
		location += body.Country
	}

	if location == "" {
		return UnknownLocation
	}
	return location
}
