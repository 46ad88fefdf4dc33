package citation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/impactguard/impactguard/pkg/config"
)

var doiPattern = regexp.MustCompile(`(?i)^10\.\d{4,9}/[-._;()/:a-z0-9]+$`)

// IsValidDOIFormat checks whether a string is syntactically a DOI.
func IsValidDOIFormat(doi string) bool {
	return doiPattern.MatchString(doi)
}

// Client talks to the CrossRef works API and resolves DOIs/URLs. Searches are
// rate limited; resolvability checks retry with exponential backoff and treat
// persistent failure as "not found" rather than an error.
type Client struct {
	baseURL     string
	resolverURL string
	http        *http.Client
	checkHTTP   *http.Client
	limiter     *rate.Limiter
	retries     int
	backoff     time.Duration
	logger      *logrus.Logger
}

// NewClient creates a citation client from the application configuration.
func NewClient(cfg config.Config, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	retries := cfg.CitationRetries
	if retries <= 0 {
		retries = 3
	}
	ratePerSec := cfg.CitationRate
	if ratePerSec <= 0 {
		ratePerSec = 2
	}
	return &Client{
		baseURL:     cfg.CrossRefBaseURL,
		resolverURL: "https://doi.org",
		http:        &http.Client{Timeout: cfg.CitationTimeout},
		checkHTTP:   &http.Client{Timeout: 5 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), 1),
		retries:     retries,
		backoff:     time.Second,
		logger:      logger,
	}
}

type worksResponse struct {
	Message struct {
		Items []Article `json:"items"`
	} `json:"message"`
}

// Search queries CrossRef for articles matching the free-text query.
func (c *Client) Search(ctx context.Context, query string) ([]Article, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/works?query=%s&rows=10", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crossref request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crossref returned status %d", resp.StatusCode)
	}

	var decoded worksResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode crossref response: %w", err)
	}
	return decoded.Message.Items, nil
}

// ValidateDOI reports whether a DOI is well-formed and resolves at doi.org.
func (c *Client) ValidateDOI(ctx context.Context, doi string) bool {
	if !IsValidDOIFormat(doi) {
		return false
	}
	return c.resolves(ctx, fmt.Sprintf("%s/%s", c.resolverURL, doi))
}

// ValidateURL reports whether a URL resolves.
func (c *Client) ValidateURL(ctx context.Context, rawURL string) bool {
	return c.resolves(ctx, rawURL)
}

// resolves issues bounded-retry HEAD requests with exponential backoff.
func (c *Client) resolves(ctx context.Context, target string) bool {
	backoff := c.backoff
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
		if err != nil {
			return false
		}

		resp, err := c.checkHTTP.Do(req)
		if err != nil {
			c.logger.Warnf("Network error on attempt %d: %v", attempt+1, err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return true
		}
	}
	return false
}
