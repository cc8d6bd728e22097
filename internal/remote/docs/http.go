package docs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/modicscan/syncengine/internal/common"
)

const defaultTimeout = 12 * time.Second

// HTTPStore talks JSON to the document service:
//
//	PUT   /owners/{owner}/profile
//	PUT   /owners/{owner}/records/{record}
//	PATCH /owners/{owner}/records/{record}
//	POST  /records:reown
type HTTPStore struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPStore(baseURL, token string) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

func (s *HTTPStore) UpsertProfile(ctx context.Context, ownerID string, fields map[string]any) error {
	_, err := s.call(ctx, http.MethodPut,
		fmt.Sprintf("/owners/%s/profile", ownerID), fields)
	return err
}

func (s *HTTPStore) UpsertRecord(ctx context.Context, ownerID, recordID string, fields map[string]any) error {
	_, err := s.call(ctx, http.MethodPut,
		fmt.Sprintf("/owners/%s/records/%s", ownerID, recordID), fields)
	return err
}

func (s *HTTPStore) PatchRecordAssets(ctx context.Context, ownerID, recordID string, urls []string) error {
	_, err := s.call(ctx, http.MethodPatch,
		fmt.Sprintf("/owners/%s/records/%s", ownerID, recordID),
		map[string]any{"asset_urls": urls})
	return err
}

func (s *HTTPStore) ReownRecords(ctx context.Context, oldOwnerID, newOwnerID string) (int, error) {
	body, err := s.call(ctx, http.MethodPost, "/records:reown", map[string]any{
		"from": oldOwnerID,
		"to":   newOwnerID,
	})
	if err != nil {
		return 0, err
	}

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%w: malformed reown response: %v", common.ErrNetwork, err)
	}
	return resp.Count, nil
}

func (s *HTTPStore) call(ctx context.Context, method, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: document store returned %s", common.ErrNetwork, resp.Status)
	default:
		return nil, fmt.Errorf("document store rejected %s %s: %s", method, path, resp.Status)
	}
}
