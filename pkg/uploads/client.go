package uploads

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/davidebenetti/artpay-checkout/pkg/config"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
)

// File is the caller-supplied payload for a receipt upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Result is the upload service's durable handle for a stored file. The UUID
// is the identifier notification payloads reference.
type Result struct {
	UUID     string `json:"uuid"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// Uploader stores a file and returns its server-assigned identifier.
type Uploader interface {
	Upload(ctx context.Context, file File) (*Result, error)
}

// Client talks to the upload service over HTTP.
type Client struct {
	http          *resty.Client
	publicKey     string
	maxSizeBytes  int64
	acceptedTypes map[string]struct{}
}

// NewClient builds an upload client. Accepted types and the size cap come
// from configuration, never from code.
func NewClient(cfg config.UploadsConfig) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("uploads base url is required")
	}

	accepted := make(map[string]struct{}, len(cfg.AcceptedTypes))
	for _, t := range cfg.AcceptedTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			accepted[t] = struct{}{}
		}
	}

	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout)

	return &Client{
		http:          http,
		publicKey:     strings.TrimSpace(cfg.PublicKey),
		maxSizeBytes:  cfg.MaxSizeBytes,
		acceptedTypes: accepted,
	}, nil
}

// Upload validates the file locally, then stores it remotely. The caller must
// not proceed to dependent steps (notification email) until this resolves.
func (c *Client) Upload(ctx context.Context, file File) (*Result, error) {
	if len(file.Data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if c.maxSizeBytes > 0 && int64(len(file.Data)) > c.maxSizeBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file exceeds maximum size").
			WithDetails(map[string]any{"max_size_bytes": c.maxSizeBytes})
	}
	contentType := strings.ToLower(strings.TrimSpace(file.ContentType))
	if len(c.acceptedTypes) > 0 {
		if _, ok := c.acceptedTypes[contentType]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "file type not accepted").
				WithDetails(map[string]any{"content_type": contentType})
		}
	}

	var result Result
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", file.Name, bytes.NewReader(file.Data)).
		SetFormData(map[string]string{"UPLOADCARE_PUB_KEY": c.publicKey}).
		SetResult(&result).
		Post("/base/")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, &pkgerrors.RemoteError{
			Service:  "uploads",
			Endpoint: "/base/",
			Err:      err,
		}, "upload file")
	}
	if resp.IsError() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, &pkgerrors.RemoteError{
			Service:    "uploads",
			Endpoint:   "/base/",
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}, "upload file")
	}
	if strings.TrimSpace(result.UUID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "upload service returned no file id")
	}
	if result.Filename == "" {
		result.Filename = file.Name
	}
	return &result, nil
}
