package faceclient

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "http://faceservice.local"

func newTestClient() *Client {
	c := New(baseURL, false)
	httpmock.ActivateNonDefault(c.HTTP)
	return c
}

func TestExtractFaces_ParsesFaces(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, baseURL+"/represent",
		httpmock.NewStringResponder(200, `{
			"faces": [
				{"embedding": [0.1, 0.2, 0.3], "facial_area": {"x": 5, "y": 6, "w": 100, "h": 110}},
				{"embedding": [0.4, 0.5, 0.6], "facial_area": {"x": 200, "y": 10, "w": 90, "h": 95}}
			]
		}`))

	faces, err := c.ExtractFaces(context.Background(), []byte("jpegbytes"), false)
	require.NoError(t, err)
	require.Len(t, faces, 2)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, faces[0].Embedding)
	assert.Equal(t, Region{X: 5, Y: 6, W: 100, H: 110}, faces[0].Region)
	assert.Equal(t, Region{X: 200, Y: 10, W: 90, H: 95}, faces[1].Region)
}

func TestExtractFaces_SendsEnforceFlag(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	var gotEnforce string
	httpmock.RegisterResponder(http.MethodPost, baseURL+"/represent",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseMultipartForm(1<<20))
			gotEnforce = req.FormValue("enforce_detection")
			return httpmock.NewStringResponse(200, `{"faces": [{"embedding": [1]}]}`), nil
		})

	_, err := c.ExtractFaces(context.Background(), []byte("jpegbytes"), true)
	require.NoError(t, err)
	assert.Equal(t, "true", gotEnforce)
}

func TestExtractFaces_EmptyResultNonEnforcing(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, baseURL+"/represent",
		httpmock.NewStringResponder(200, `{"faces": []}`))

	faces, err := c.ExtractFaces(context.Background(), []byte("jpegbytes"), false)
	require.NoError(t, err)
	assert.Empty(t, faces)
}

func TestExtractFaces_NoFaceEnforcing(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, baseURL+"/represent",
		httpmock.NewStringResponder(422, `{"error": "no face detected"}`))

	_, err := c.ExtractFaces(context.Background(), []byte("jpegbytes"), true)
	require.ErrorIs(t, err, ErrNoFaceDetected)
}

func TestExtractFaces_ServiceError(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, baseURL+"/represent",
		httpmock.NewStringResponder(500, `{"error": "model not loaded"}`))

	_, err := c.ExtractFaces(context.Background(), []byte("jpegbytes"), false)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "face service error"))
}

func TestExtractFaces_SkipMode(t *testing.T) {
	c := New(baseURL, true)

	faces, err := c.ExtractFaces(context.Background(), []byte("anything"), true)
	require.NoError(t, err)
	require.Len(t, faces, 1)
	assert.Len(t, faces[0].Embedding, 128)
}

func TestHealth(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, baseURL+"/health",
		httpmock.NewStringResponder(200, `{"status": "ok"}`))

	require.NoError(t, c.Health(context.Background()))
}
