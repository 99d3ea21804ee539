package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/platformnet/bounty-ledger/internal/model"
)

// HTTPSource fetches a scope's full item set from a collector endpoint
// serving JSON at {base}/{owner}/{name}.  The collector owns pagination
// and upstream rate limits; this client only sees the assembled result
// set.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchItems implements Source.
func (s *HTTPSource) FetchItems(ctx context.Context, scope model.Scope) ([]model.RawItem, error) {
	url := fmt.Sprintf("%s/%s/%s", s.BaseURL, scope.Owner, scope.Name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d for %s", resp.StatusCode, scope)
	}
	var items []model.RawItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode feed response: %w", err)
	}
	return items, nil
}
