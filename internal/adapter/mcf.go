package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/amishk599/mcfradar/internal/model"
)

const (
	// DefaultBaseURL is the public MyCareersFuture API.
	DefaultBaseURL = "https://api.mycareersfuture.gov.sg"

	// MaxPageSize is the largest page the search endpoint honours.
	MaxPageSize = 100
)

var _ model.JobSource = (*MCFAdapter)(nil)

// mcfSearchRequest is the POST body of /v2/search.
type mcfSearchRequest struct {
	SessionID      string   `json:"sessionId"`
	PostingCompany []string `json:"postingCompany"`
	Search         string   `json:"search,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	SortBy         []string `json:"sortBy,omitempty"`
}

// mcfSearchResponse keeps only what listing needs; the full job objects are
// ignored because details are fetched separately for new ids.
type mcfSearchResponse struct {
	Results []struct {
		UUID string `json:"uuid"`
	} `json:"results"`
	Total               int `json:"total"`
	CountWithoutFilters int `json:"countWithoutFilters"`
}

// MCFAdapter talks to the MyCareersFuture search and job detail endpoints.
type MCFAdapter struct {
	baseURL string
	client  *http.Client
}

// NewMCFAdapter creates an adapter against baseURL (DefaultBaseURL when empty).
func NewMCFAdapter(baseURL string, client *http.Client) *MCFAdapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &MCFAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Search fetches one page of job identifiers.
func (a *MCFAdapter) Search(ctx context.Context, sr model.SearchRequest) (model.SearchResult, error) {
	pageSize := sr.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	body := mcfSearchRequest{
		PostingCompany: []string{},
		Search:         sr.Keywords,
		Categories:     sr.Categories,
	}
	if sr.SortByDate {
		body.SortBy = []string{"new_posting_date"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("mcf search: %w", err)
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(sr.Page))
	endpoint := a.baseURL + "/v2/search?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("mcf search: %w", err)
	}
	setDefaultHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	var resp mcfSearchResponse
	if err := a.do(req, &resp); err != nil {
		return model.SearchResult{}, fmt.Errorf("mcf search page %d: %w", sr.Page, err)
	}

	ids := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.UUID != "" {
			ids = append(ids, r.UUID)
		}
	}
	return model.SearchResult{
		IDs:                 ids,
		Total:               resp.Total,
		CountWithoutFilters: resp.CountWithoutFilters,
	}, nil
}

// GetDetail fetches the full job record as an untyped JSON object.
func (a *MCFAdapter) GetDetail(ctx context.Context, jobUUID string) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/v2/jobs/%s", a.baseURL, url.PathEscape(jobUUID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("mcf detail for %s: %w", jobUUID, err)
	}
	setDefaultHeaders(req)

	var raw map[string]any
	if err := a.do(req, &raw); err != nil {
		return nil, fmt.Errorf("mcf detail for %s: %w", jobUUID, err)
	}
	return raw, nil
}

func (a *MCFAdapter) do(req *http.Request, out any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// The API rejects requests that do not look like they came from the
// jobseeker web client.
func setDefaultHeaders(req *http.Request) {
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	req.Header.Set("Mcf-Client", "jobseeker")
	req.Header.Set("Origin", "https://www.mycareersfuture.gov.sg")
	req.Header.Set("Referer", "https://www.mycareersfuture.gov.sg/")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36")
}
