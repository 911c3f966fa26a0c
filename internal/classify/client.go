package classify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// InferenceClient classifies a single image against a named model.
type InferenceClient interface {
	Classify(ctx context.Context, modelRef, imagePath string) (classIndex int, score float64, err error)
}

type inferenceRequest struct {
	Model string `json:"model"`
	Image string `json:"image"` // base64-encoded JPEG
}

type inferenceResponse struct {
	ClassIndex int     `json:"class_index"`
	Score      float64 `json:"score"` // probability in [0, 1]
}

// HTTPInferenceClient posts images to an external inference service.
type HTTPInferenceClient struct {
	endpoint string
	client   *http.Client
}

func NewHTTPInferenceClient(endpoint string, timeout time.Duration) *HTTPInferenceClient {
	return &HTTPInferenceClient{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPInferenceClient) Classify(ctx context.Context, modelRef, imagePath string) (int, float64, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return 0, 0, fmt.Errorf("error reading image: %w", err)
	}

	body, err := json.Marshal(inferenceRequest{
		Model: modelRef,
		Image: base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return 0, 0, fmt.Errorf("error marshaling inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return 0, 0, fmt.Errorf("error creating inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	var out inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, 0, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	return out.ClassIndex, out.Score, nil
}
