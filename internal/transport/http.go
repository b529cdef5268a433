package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSender posts outbound units as JSON to the messenger bridge.
type HTTPSender struct {
	client *http.Client
	url    string
}

func NewHTTPSender(url string) *HTTPSender {
	return &HTTPSender{
		client: &http.Client{Timeout: 30 * time.Second},
		url:    url,
	}
}

func (s *HTTPSender) Send(ctx context.Context, out Outbound) error {
	body, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal outbound: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver outbound: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("deliver outbound: bridge returned %s", resp.Status)
	}
	return nil
}

// HTTPRetriever downloads uploaded documents, refusing payloads beyond
// maxSize even when the declared size lied.
type HTTPRetriever struct {
	client  *http.Client
	maxSize int64
}

func NewHTTPRetriever(maxSize int64) *HTTPRetriever {
	return &HTTPRetriever{
		client:  &http.Client{Timeout: 60 * time.Second},
		maxSize: maxSize,
	}
}

func (r *HTTPRetriever) Retrieve(ctx context.Context, ref DocumentRef) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", ref.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: unexpected status %s", ref.Name, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", ref.Name, err)
	}
	if int64(len(data)) > r.maxSize {
		return nil, fmt.Errorf("download %s: payload exceeds %d bytes", ref.Name, r.maxSize)
	}
	return data, nil
}
