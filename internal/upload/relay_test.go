package upload

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
)

const relayURL = "https://admin.test" + RelayPath

func setupRelayMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

func TestRelayClientUpload(t *testing.T) {
	setupRelayMock(t)

	httpmock.RegisterResponder(http.MethodPost, relayURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer user-token", req.Header.Get("Authorization"))
		require.NoError(t, req.ParseMultipartForm(1<<20))
		assert.Equal(t, "day-media", req.FormValue("bucket"))
		assert.Equal(t, "attractions", req.FormValue("folder"))

		file, header, err := req.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "tower.png", header.Filename)
		assert.Equal(t, "png-bytes", string(data))

		return httpmock.NewJsonResponse(http.StatusOK, RelayResponse{
			Success: true,
			Count:   1,
			Results: []RelayItem{{
				URL:    "http://minio.test/day-media/attractions/x-tower.png",
				Type:   domain.MediaTypeImage,
				Bucket: "day-media",
				Path:   "attractions/x-tower.png",
			}},
		})
	})

	client := NewRelayClient("https://admin.test/", nil)
	ctx := WithBearerToken(context.Background(), "user-token")
	res, err := client.Upload(ctx, Request{
		File:   domain.BytesFile("tower.png", "image/png", []byte("png-bytes")),
		Bucket: "day-media",
		Folder: "attractions",
		Tag:    "day0-attraction-1-media-0",
	})
	require.NoError(t, err)
	assert.Equal(t, "day0-attraction-1-media-0", res.Tag)
	assert.Equal(t, "attractions/x-tower.png", res.Path)
	assert.Equal(t, "day-media", res.Bucket)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestRelayClientItemError(t *testing.T) {
	setupRelayMock(t)
	httpmock.RegisterResponder(http.MethodPost, relayURL, httpmock.NewJsonResponderOrPanic(http.StatusOK, RelayResponse{
		Results: []RelayItem{{Error: "object already exists"}},
	}))

	_, err := NewRelayClient("https://admin.test", nil).Upload(context.Background(), Request{
		File:   domain.BytesFile("a.jpg", "image/jpeg", []byte("a")),
		Bucket: "day-media",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object already exists")
}

func TestRelayClientHTTPError(t *testing.T) {
	setupRelayMock(t)
	httpmock.RegisterResponder(http.MethodPost, relayURL, httpmock.NewStringResponder(http.StatusUnauthorized, `{"error":"authentication required"}`))

	_, err := NewRelayClient("https://admin.test", nil).Upload(context.Background(), Request{
		File:   domain.BytesFile("a.jpg", "image/jpeg", []byte("a")),
		Bucket: "day-media",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestRelayClientEmptyResults(t *testing.T) {
	setupRelayMock(t)
	httpmock.RegisterResponder(http.MethodPost, relayURL, httpmock.NewJsonResponderOrPanic(http.StatusOK, RelayResponse{Success: true}))

	_, err := NewRelayClient("https://admin.test", nil).Upload(context.Background(), Request{
		File:   domain.BytesFile("a.jpg", "image/jpeg", []byte("a")),
		Bucket: "day-media",
	})
	assert.ErrorIs(t, err, ErrRelayEmpty)
}

func TestRelayClientAsFallback(t *testing.T) {
	setupRelayMock(t)
	httpmock.RegisterResponder(http.MethodPost, relayURL, httpmock.NewJsonResponderOrPanic(http.StatusOK, RelayResponse{
		Success: true,
		Count:   1,
		Results: []RelayItem{{URL: "http://minio.test/trip-covers/c.jpg", Type: domain.MediaTypeImage, Bucket: "trip-covers", Path: "c.jpg"}},
	}))

	direct := newMemoryStorage()
	direct.uploadErr = errDenied
	uploader := NewUploader(direct, UploaderConfig{Fallback: NewRelayClient("https://admin.test", nil)})

	res, err := uploader.Upload(context.Background(), Request{
		File:   domain.BytesFile("c.jpg", "image/jpeg", []byte("c")),
		Bucket: "trip-covers",
		Tag:    "cover",
	})
	require.NoError(t, err)
	assert.Equal(t, "cover", res.Tag)
	assert.Equal(t, "c.jpg", res.Path)
}
