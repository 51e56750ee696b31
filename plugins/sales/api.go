package sales

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ledgewood/folio/bundle"
	"github.com/ledgewood/folio/errors"
	"github.com/ledgewood/folio/plugin"
)

// pageResponse is one page of the row-data API's JSON body.
type pageResponse struct {
	Rows       []map[string]any `json:"rows"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
}

// IngestFromAPI fetches all pages of row data matching the query, throttled
// by the configured rate limit. Rate-limit headers from the final response
// land in the bundle's provenance; pagination and throttling details are
// returned as API metadata.
func (p *Plugin) IngestFromAPI(ctx context.Context, query map[string]any) (*plugin.APIResult, error) {
	if p.endpoint == "" {
		return nil, errors.NewCapabilityMismatchError("no sales API endpoint configured")
	}

	start := time.Now()
	var (
		records       []map[string]any
		throttleWaits int
		rateLimit     *bundle.RateLimitInfo
	)

	page := 1
	for ; page <= maxPages; page++ {
		if p.limiter != nil {
			reservation := p.limiter.Reserve()
			if delay := reservation.Delay(); delay > 0 {
				throttleWaits++
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					reservation.Cancel()
					return nil, ctx.Err()
				case <-timer.C:
				}
			}
		}

		resp, err := p.fetchPage(ctx, query, page)
		if err != nil {
			return nil, errors.Wrapf(err, "page %d", page)
		}
		records = append(records, resp.rows...)
		if resp.rateLimit != nil {
			rateLimit = resp.rateLimit
		}
		if resp.totalPages == 0 || page >= resp.totalPages {
			break
		}
	}
	if page > maxPages {
		return nil, errors.Newf("pagination exceeded %d pages, refusing to continue", maxPages)
	}
	if len(records) == 0 {
		return nil, errors.New("sales API returned no rows for query")
	}

	b := p.buildBundle(p.endpoint, records)
	b.Metadata.Method = bundle.MethodAPI
	b.Metadata.API = &bundle.APIIngestion{
		Endpoint:     p.endpoint,
		Query:        query,
		RequestCount: page,
		DurationMs:   time.Since(start).Milliseconds(),
		RateLimit:    rateLimit,
	}

	return &plugin.APIResult{
		Bundle: b,
		APIMetadata: map[string]any{
			"pages":          page,
			"throttle_waits": throttleWaits,
		},
	}, nil
}

type fetchedPage struct {
	rows       []map[string]any
	totalPages int
	rateLimit  *bundle.RateLimitInfo
}

func (p *Plugin) fetchPage(ctx context.Context, query map[string]any, page int) (*fetchedPage, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "invalid endpoint")
	}
	q := u.Query()
	for key, value := range query {
		q.Set(key, fmt.Sprintf("%v", value))
	}
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("sales API returned %s", resp.Status)
	}

	var body pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decoding response body")
	}

	return &fetchedPage{
		rows:       normalizeRows(body.Rows),
		totalPages: body.TotalPages,
		rateLimit:  parseRateLimit(resp.Header),
	}, nil
}

// normalizeRows aligns JSON-decoded rows with the CSV record shape: units
// as int, revenue as float64.
func normalizeRows(rows []map[string]any) []map[string]any {
	for _, row := range rows {
		if f, ok := row["units"].(float64); ok {
			row["units"] = int(f)
		}
	}
	return rows
}

func parseRateLimit(h http.Header) *bundle.RateLimitInfo {
	limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit"))
	if err != nil {
		return nil
	}
	info := &bundle.RateLimitInfo{Limit: limit}
	if remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining")); err == nil {
		info.Remaining = remaining
	}
	if reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		info.ResetAt = time.Unix(reset, 0).UTC()
	}
	return info
}
