package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client is the HTTP implementation of Provider, speaking the mfapi-style
// scheme directory API.
type Client struct {
	baseURL    string
	historyURL string
	client     *http.Client
	log        zerolog.Logger
}

// NewClient creates a new provider client.
// historyURL may equal baseURL; it is separate because some deployments front
// the (large) historical endpoint with a different cache host.
func NewClient(baseURL, historyURL string, log zerolog.Logger) *Client {
	if historyURL == "" {
		historyURL = baseURL
	}
	return &Client{
		baseURL:    baseURL,
		historyURL: historyURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("client", "provider").Logger(),
	}
}

// directoryEntry is one row of the scheme directory response.
type directoryEntry struct {
	SchemeCode json.Number `json:"schemeCode"`
	SchemeName string      `json:"schemeName"`
}

// ListCodes fetches the full scheme directory.
func (c *Client) ListCodes() (map[string]string, error) {
	url := c.baseURL + "/mf"
	c.log.Debug().Str("url", url).Msg("Fetching scheme directory")

	body, err := c.get(url)
	if err != nil {
		return nil, fmt.Errorf("scheme directory request failed: %w", err)
	}

	var entries []directoryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse scheme directory: %w", err)
	}

	codes := make(map[string]string, len(entries))
	for _, e := range entries {
		code := e.SchemeCode.String()
		if code == "" || e.SchemeName == "" {
			continue
		}
		codes[code] = e.SchemeName
	}

	c.log.Info().Int("schemes", len(codes)).Msg("Fetched scheme directory")
	return codes, nil
}

// GetDetails fetches the detail payload (meta block) for a scheme.
func (c *Client) GetDetails(code string) (map[string]any, error) {
	body, err := c.get(fmt.Sprintf("%s/mf/%s/latest", c.baseURL, code))
	if err != nil {
		return nil, fmt.Errorf("details request failed for %s: %w", code, err)
	}

	var payload struct {
		Meta map[string]any `json:"meta"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse details for %s: %w", code, err)
	}
	if payload.Meta == nil {
		return map[string]any{}, nil
	}
	return payload.Meta, nil
}

// GetQuote fetches the latest NAV quote for a scheme. The quote payload
// carries at least nav and last_updated when the provider has data.
func (c *Client) GetQuote(code string) (map[string]any, error) {
	body, err := c.get(fmt.Sprintf("%s/mf/%s/latest", c.baseURL, code))
	if err != nil {
		return nil, fmt.Errorf("quote request failed for %s: %w", code, err)
	}

	var payload struct {
		Meta map[string]any `json:"meta"`
		Data []struct {
			Date string `json:"date"`
			Nav  string `json:"nav"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse quote for %s: %w", code, err)
	}

	quote := map[string]any{}
	if payload.Meta != nil {
		if name, ok := payload.Meta["scheme_name"]; ok {
			quote["scheme_name"] = name
		}
		// Fund size, when present, rides along on the meta block
		for _, k := range []string{"aum", "scheme_aum", "fund_size"} {
			if v, ok := payload.Meta[k]; ok {
				quote[k] = v
			}
		}
	}
	if len(payload.Data) > 0 {
		quote["nav"] = payload.Data[0].Nav
		quote["last_updated"] = payload.Data[0].Date
	}

	return quote, nil
}

// GetHistoricalNav fetches the raw historical NAV payload for a scheme.
// The body is returned untouched; both known response shapes are handled
// downstream.
func (c *Client) GetHistoricalNav(code string) (json.RawMessage, error) {
	body, err := c.get(fmt.Sprintf("%s/mf/%s", c.historyURL, code))
	if err != nil {
		return nil, fmt.Errorf("historical NAV request failed for %s: %w", code, err)
	}
	return json.RawMessage(body), nil
}

// get performs a GET request and returns the response body.
func (c *Client) get(url string) ([]byte, error) {
	resp, err := c.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}
