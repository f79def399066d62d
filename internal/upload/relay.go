package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
)

// RelayPath is the server-mediated bulk upload endpoint.
const RelayPath = "/api/v1/uploads/bulk"

// RelayItem is one entry of a relay response, aligned with the submitted files.
type RelayItem struct {
	URL    string           `json:"url,omitempty"`
	Type   domain.MediaType `json:"type,omitempty"`
	Bucket string           `json:"bucket,omitempty"`
	Path   string           `json:"path,omitempty"`
	Error  string           `json:"error,omitempty"`
}

type RelayResponse struct {
	Success bool        `json:"success"`
	Results []RelayItem `json:"results"`
	Count   int         `json:"count"`
}

var ErrRelayEmpty = errors.New("relay returned no result")

// RelayClient uploads through the server-mediated endpoint with the caller's
// bearer token, taken from the request context.
type RelayClient struct {
	baseURL string
	client  *http.Client
}

func NewRelayClient(baseURL string, client *http.Client) *RelayClient {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &RelayClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (r *RelayClient) Upload(ctx context.Context, req Request) (Result, error) {
	if req.File.Open == nil {
		return Result{}, ErrNoContent
	}
	body, contentType, err := relayForm(req)
	if err != nil {
		return Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+RelayPath, body)
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", contentType)
	if token := BearerToken(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("relay upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Result{}, fmt.Errorf("relay upload: status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}

	var decoded RelayResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("relay upload: decode response: %w", err)
	}
	if len(decoded.Results) == 0 {
		return Result{}, ErrRelayEmpty
	}
	item := decoded.Results[0]
	if item.Error != "" {
		return Result{}, fmt.Errorf("relay upload: %s", item.Error)
	}
	if item.URL == "" {
		return Result{}, ErrRelayEmpty
	}
	return Result{
		Tag:    req.Tag,
		URL:    item.URL,
		Type:   item.Type,
		Bucket: item.Bucket,
		Path:   item.Path,
	}, nil
}

func relayForm(req Request) (*bytes.Buffer, string, error) {
	rc, err := req.File.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open %q: %w", req.File.Name, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("bucket", req.Bucket); err != nil {
		return nil, "", err
	}
	if req.Folder != "" {
		if err := w.WriteField("folder", req.Folder); err != nil {
			return nil, "", err
		}
	}
	part, err := createFilePart(w, "file", req.File)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, rc); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func createFilePart(w *multipart.Writer, field string, file domain.LocalFile) (io.Writer, error) {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, file.Name))
	header.Set("Content-Type", contentType)
	return w.CreatePart(header)
}
