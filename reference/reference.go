package reference

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"listinglens/logging"
)

// AcquisitionError means reference imagery for a coordinate could not be
// obtained. It is terminal for the whole authenticity check.
type AcquisitionError struct {
	Latitude  float64
	Longitude float64
	Reason    string
	Err       error
}

func (e *AcquisitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reference imagery unavailable for %.6f,%.6f: %s: %v", e.Latitude, e.Longitude, e.Reason, e.Err)
	}
	return fmt.Sprintf("reference imagery unavailable for %.6f,%.6f: %s", e.Latitude, e.Longitude, e.Reason)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// Acquirer resolves a coordinate to one representative image of that location
type Acquirer interface {
	FetchReferenceImage(ctx context.Context, lat, lng float64) ([]byte, error)
}

// StreetViewAcquirer fetches a single street-level crop from a static
// imagery endpoint over HTTP
type StreetViewAcquirer struct {
	endpoint string
	apiKey   string
	size     string
	client   *http.Client
}

// NewStreetViewAcquirer creates an acquirer for the given endpoint.
// The timeout bounds the whole request including the body read.
func NewStreetViewAcquirer(endpoint, apiKey, size string, timeout time.Duration) *StreetViewAcquirer {
	return &StreetViewAcquirer{
		endpoint: endpoint,
		apiKey:   apiKey,
		size:     size,
		client:   &http.Client{Timeout: timeout},
	}
}

// FetchReferenceImage fetches the reference image for a coordinate.
// Any transport error, timeout, non-2xx status or empty body yields an
// AcquisitionError.
func (a *StreetViewAcquirer) FetchReferenceImage(ctx context.Context, lat, lng float64) ([]byte, error) {
	query := url.Values{}
	query.Set("size", a.size)
	query.Set("location", fmt.Sprintf("%.6f,%.6f", lat, lng))
	if a.apiKey != "" {
		query.Set("key", a.apiKey)
	}

	requestURL := a.endpoint + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &AcquisitionError{Latitude: lat, Longitude: lng, Reason: "invalid request", Err: err}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &AcquisitionError{Latitude: lat, Longitude: lng, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AcquisitionError{
			Latitude:  lat,
			Longitude: lng,
			Reason:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AcquisitionError{Latitude: lat, Longitude: lng, Reason: "reading response body", Err: err}
	}

	if len(data) == 0 {
		return nil, &AcquisitionError{Latitude: lat, Longitude: lng, Reason: "empty response body"}
	}

	return data, nil
}

// Cache is a read-through byte store of reference imagery keyed by coordinate
type Cache interface {
	Get(lat, lng float64) ([]byte, bool, error)
	Put(lat, lng float64, image []byte) error
}

// CachingAcquirer wraps an Acquirer with a read-through cache. Cache failures
// degrade to a plain fetch; they never fail a verification.
type CachingAcquirer struct {
	Source Acquirer
	Cache  Cache
}

// FetchReferenceImage returns the cached image for a coordinate when present,
// otherwise fetches from the source and stores the result
func (a *CachingAcquirer) FetchReferenceImage(ctx context.Context, lat, lng float64) ([]byte, error) {
	data, found, err := a.Cache.Get(lat, lng)
	if err != nil {
		logging.LogWarning("reference cache read failed for %.6f,%.6f: %v", lat, lng, err)
	} else if found {
		logging.DebugLog("reference cache hit for %.6f,%.6f (%d bytes)", lat, lng, len(data))
		return data, nil
	}

	data, err = a.Source.FetchReferenceImage(ctx, lat, lng)
	if err != nil {
		return nil, err
	}

	if err := a.Cache.Put(lat, lng, data); err != nil {
		logging.LogWarning("reference cache write failed for %.6f,%.6f: %v", lat, lng, err)
	}

	return data, nil
}
