package labels

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"listinglens/types"
)

// Client returns classification labels for raw image bytes
type Client interface {
	Classify(ctx context.Context, imageBytes []byte) ([]types.Label, error)
}

// HTTPClient posts base64 image content to an annotate endpoint and parses
// the returned label annotations
type HTTPClient struct {
	endpoint   string
	apiKey     string
	maxResults int
	client     *http.Client
}

// NewHTTPClient creates a label service client
func NewHTTPClient(endpoint, apiKey string, maxResults int, timeout time.Duration) *HTTPClient {
	if maxResults < 1 {
		maxResults = 10
	}
	return &HTTPClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		maxResults: maxResults,
		client:     &http.Client{Timeout: timeout},
	}
}

type annotateImage struct {
	Content string `json:"content"`
}

type annotateFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type annotateEntry struct {
	Image    annotateImage     `json:"image"`
	Features []annotateFeature `json:"features"`
}

type annotateRequest struct {
	Requests []annotateEntry `json:"requests"`
}

type annotateResponse struct {
	Responses []struct {
		LabelAnnotations []struct {
			Description string  `json:"description"`
			Score       float64 `json:"score"`
		} `json:"labelAnnotations"`
	} `json:"responses"`
}

// Classify sends the image to the label service and returns its tags in the
// order the service ranked them
func (c *HTTPClient) Classify(ctx context.Context, imageBytes []byte) ([]types.Label, error) {
	reqBody := annotateRequest{
		Requests: []annotateEntry{{
			Image:    annotateImage{Content: base64.StdEncoding.EncodeToString(imageBytes)},
			Features: []annotateFeature{{Type: "LABEL_DETECTION", MaxResults: c.maxResults}},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("cannot encode annotate request: %v", err)
	}

	requestURL := c.endpoint
	if c.apiKey != "" {
		requestURL += "?key=" + c.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("label service request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read label service response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("label service returned status %d", resp.StatusCode)
	}

	var parsed annotateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("cannot parse label service response: %v", err)
	}

	if len(parsed.Responses) == 0 {
		return nil, nil
	}

	result := make([]types.Label, 0, len(parsed.Responses[0].LabelAnnotations))
	for _, annotation := range parsed.Responses[0].LabelAnnotations {
		result = append(result, types.Label{
			Description: annotation.Description,
			Score:       annotation.Score,
		})
	}

	return result, nil
}
