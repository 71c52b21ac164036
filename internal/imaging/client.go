package imaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client triggers the external compositing service that overlays
// workout stats on a photo. The service works by photo id; fetching the
// original and writing the processed result back is its concern.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL string, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type processRequest struct {
	PhotoID     string `json:"photo_id"`
	OriginalURL string `json:"original_url"`
	TotalReps   int    `json:"total_reps"`
}

type processResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Process submits a photo for compositing. A nil error means the job
// was accepted, not that processing finished.
func (c *Client) Process(ctx context.Context, photoID uuid.UUID, originalURL string, totalReps int) error {
	reqBody, err := json.Marshal(processRequest{
		PhotoID:     photoID.String(),
		OriginalURL: originalURL,
		TotalReps:   totalReps,
	})
	if err != nil {
		return fmt.Errorf("marshal process request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process", bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("imaging request: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read imaging response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("imaging non-2xx (%d): %s", resp.StatusCode, string(b))
	}

	var out processResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("decode imaging response: %w", err)
	}
	if out.Error != "" {
		return fmt.Errorf("imaging error: %s", out.Error)
	}
	return nil
}
