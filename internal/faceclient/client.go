package faceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// ErrNoFaceDetected is returned by enforcing-mode extraction when the image
// contains no detectable face.
var ErrNoFaceDetected = errors.New("no face detected in image")

// Region is the bounding box of a detected face within the source image.
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// DetectedFace pairs a face embedding with where it was found. It lives only
// for the duration of one request and is never persisted.
type DetectedFace struct {
	Embedding []float32 `json:"embedding"`
	Region    Region    `json:"facial_area"`
}

// Client calls the face recognition microservice.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with a generous timeout; face processing can take time.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ExtractFaces sends image bytes to the face service and returns an embedding
// per detected face.
//
// With enforce true, a faceless image is an error (ErrNoFaceDetected). With
// enforce false the service returns however many faces it found, possibly
// zero, and the caller decides what an empty result means.
func (c *Client) ExtractFaces(ctx context.Context, image []byte, enforce bool) ([]DetectedFace, error) {
	if c.Skip {
		return []DetectedFace{
			{
				Embedding: mockEmbedding(),
				Region:    Region{X: 10, Y: 10, W: 120, H: 120},
			},
		}, nil
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("image bytes required")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	enforceVal := "false"
	if enforce {
		enforceVal = "true"
	}
	_ = w.WriteField("enforce_detection", enforceVal)
	part, err := w.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, bytes.NewReader(image)); err != nil {
		return nil, err
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/represent", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, ErrNoFaceDetected
	}
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Faces []DetectedFace `json:"faces"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if enforce && len(out.Faces) == 0 {
		return nil, ErrNoFaceDetected
	}
	return out.Faces, nil
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}
	return nil
}

// mockEmbedding returns a deterministic 128-dim vector for skip mode.
func mockEmbedding() []float32 {
	emb := make([]float32, 128)
	for i := range emb {
		emb[i] = float32(i%10) / 10
	}
	return emb
}
