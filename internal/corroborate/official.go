package corroborate

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ballotwatch/ballotwatch/internal/cache"
	"github.com/ballotwatch/ballotwatch/internal/model"
	"github.com/ballotwatch/ballotwatch/internal/util"
)

// Waiter gates outbound requests, typically a per-domain rate limiter.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// RobotsPolicy answers whether a URL may be fetched at all.
type RobotsPolicy interface {
	IsAllowed(ctx context.Context, rawURL string) bool
}

// OfficialClient is the Layer-3 corroboration client. It looks the claim
// up on the configured official site for the claim's jurisdiction and
// classifies the page content. Official sites publish HTML, not an API,
// so classification is the same phrase heuristic the AI layer uses.
type OfficialClient struct {
	httpClient *http.Client
	cfg        model.OfficialConfig
	userAgent  string
	maxBytes   int64
	limiter    Waiter
	robots     RobotsPolicy
	store      cache.Cache
	now        func() time.Time
}

// fetchedPage is the cached representation of an official-site fetch.
type fetchedPage struct {
	Body         string `json:"body"`
	LastModified string `json:"last_modified,omitempty"`
}

// NewOfficialClient creates the official-source client. The limiter,
// robots policy, and cache may each be nil to disable that concern.
func NewOfficialClient(cfg model.OfficialConfig, httpCfg model.HTTPConfig, limiter Waiter, robots RobotsPolicy, store cache.Cache) *OfficialClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	transport := &http.Transport{
		Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
	}
	if httpCfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	maxBytes := httpCfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	return &OfficialClient{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		cfg:       cfg,
		userAgent: httpCfg.UserAgent,
		maxBytes:  maxBytes,
		limiter:   limiter,
		robots:    robots,
		store:     store,
		now:       time.Now,
	}
}

// Layer identifies this client as Layer 3.
func (c *OfficialClient) Layer() model.Layer { return model.LayerOfficial }

// SourceID names the source for provenance records.
func (c *OfficialClient) SourceID() string { return "official_sources" }

// Corroborate fetches the official page for the claim's jurisdiction and
// checks whether it carries the claimed value. Any failure to reach or
// read the source is returned as an error: the layer did not execute.
func (c *OfficialClient) Corroborate(ctx context.Context, claim model.Claim) (model.LayerVerdict, error) {
	endpoint, ok := c.cfg.Endpoints[strings.ToUpper(claim.Jurisdiction)]
	if !ok {
		return model.LayerVerdict{}, fmt.Errorf("no official source configured for jurisdiction %q", claim.Jurisdiction)
	}

	if !c.hostAllowed(endpoint) {
		return model.LayerVerdict{}, fmt.Errorf("official source %s is not on the verified-source allowlist", endpoint)
	}

	if c.robots != nil && !c.robots.IsAllowed(ctx, endpoint) {
		return model.LayerVerdict{}, fmt.Errorf("robots.txt disallows fetching %s", endpoint)
	}

	page, err := c.fetch(ctx, endpoint)
	if err != nil {
		return model.LayerVerdict{}, err
	}

	return c.verdictFromPage(claim, endpoint, page), nil
}

// fetch retrieves the official page, consulting the cache first so
// repeated claims against the same jurisdiction stay polite.
func (c *OfficialClient) fetch(ctx context.Context, endpoint string) (*fetchedPage, error) {
	key := cache.Key(endpoint)
	if c.store != nil {
		if data, found := c.store.Get(key); found {
			var page fetchedPage
			if err := json.Unmarshal(data, &page); err == nil {
				return &page, nil
			}
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, endpoint); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch official source: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("official source returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read official source: %w", err)
	}

	page := &fetchedPage{
		Body:         string(body),
		LastModified: resp.Header.Get("Last-Modified"),
	}

	if c.store != nil {
		if data, err := json.Marshal(page); err == nil {
			_ = c.store.Set(key, data, 0)
		}
	}

	return page, nil
}

// verdictFromPage classifies the page content against the claimed value.
func (c *OfficialClient) verdictFromPage(claim model.Claim, endpoint string, page *fetchedPage) model.LayerVerdict {
	text := strings.ToLower(htmlToText(page.Body))

	verdict := model.LayerVerdict{
		Layer:          model.LayerOfficial,
		SourcesChecked: []string{endpoint},
	}

	prior := c.cfg.Prior
	if prior == 0 {
		prior = 85
	}

	switch c.classifyPage(claim, text) {
	case OutcomeConfirmed:
		verdict.IsValid = true
		verdict.Confidence = prior
	case OutcomeContradicted:
		verdict.IsValid = false
		verdict.Confidence = prior
		verdict.Errors = append(verdict.Errors,
			fmt.Sprintf("official source %s contradicts claimed %s %q", endpoint, claim.Field, claim.Value))
	default:
		verdict.IsValid = true
		verdict.Confidence = ambiguousScore
		verdict.Warnings = append(verdict.Warnings,
			fmt.Sprintf("official source %s does not mention claimed %s; response could not be classified", endpoint, claim.Field))
	}

	if observedAt, ok := parseLastModified(page.LastModified); ok {
		if decay := stalenessDecay(observedAt, c.now()); decay > 0 {
			verdict.Confidence = clampConfidence(verdict.Confidence - decay)
			verdict.Warnings = append(verdict.Warnings,
				fmt.Sprintf("official source last modified %s; confidence reduced by %d", observedAt.Format("2006-01-02"), decay))
		}
	}

	return verdict
}

// classifyPage confirms when any rendering of the claimed value appears
// in the page text, otherwise falls back to contradiction phrases.
func (c *OfficialClient) classifyPage(claim model.Claim, lowerText string) Outcome {
	for _, form := range valueForms(claim) {
		if strings.Contains(lowerText, strings.ToLower(form)) {
			return OutcomeConfirmed
		}
	}

	if classification := ClassifyText(lowerText); classification.Contradicting {
		return OutcomeContradicted
	}

	return OutcomeAmbiguous
}

// valueForms renders the claimed value in the formats official sites
// commonly print it in. Non-date values match verbatim only.
func valueForms(claim model.Claim) []string {
	if !claim.IsDateField() {
		return []string{claim.Value}
	}

	date, ok := parseDateValue(claim.Value)
	if !ok {
		return []string{claim.Value}
	}

	return []string{
		date.Format("2006-01-02"),
		date.Format("January 2, 2006"),
		date.Format("Jan 2, 2006"),
		date.Format("01/02/2006"),
		date.Format("1/2/2006"),
	}
}

func parseDateValue(value string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "01/02/2006", "January 2, 2006", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseLastModified(header string) (time.Time, bool) {
	if header == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC1123, header)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// hostAllowed checks the endpoint host against the verified-source
// allowlist, matching exact hosts and subdomains.
func (c *OfficialClient) hostAllowed(endpoint string) bool {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return false
	}

	host := parsed.Hostname()
	for _, domain := range c.cfg.AllowedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// htmlToText flattens an HTML document to its visible text.
func htmlToText(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return strings.TrimSpace(sb.String())
}
