// Package cloudinary uploads rendered attendance codes to Cloudinary.
package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// Client talks to the Cloudinary image upload REST API.
type Client struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	BaseURL   string
	HTTP      *http.Client
	NowFunc   func() time.Time
}

// New returns nil when any credential is missing.
func New(cloudName, apiKey, apiSecret, folder string) *Client {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil
	}
	return &Client{
		CloudName: cloudName,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Folder:    folder,
		BaseURL:   defaultBaseURL,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		NowFunc:   time.Now,
	}
}

// UploadResult is the subset of the upload response we use.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int    `json:"bytes"`
}

// Upload sends image bytes under publicID, overwriting a previous upload of
// the same id.
func (c *Client) Upload(ctx context.Context, data []byte, publicID string) (*UploadResult, error) {
	params := map[string]string{
		"timestamp": strconv.FormatInt(c.NowFunc().Unix(), 10),
		"api_key":   c.APIKey,
		"public_id": publicID,
		"overwrite": "true",
	}
	if c.Folder != "" {
		params["folder"] = c.Folder
	}
	params["signature"] = c.sign(params)

	body, contentType, err := encodeForm(params, publicID+".png", data)
	if err != nil {
		return nil, err
	}
	raw, err := c.post(ctx, fmt.Sprintf("%s/%s/image/upload", c.BaseURL, c.CloudName), contentType, body)
	if err != nil {
		return nil, err
	}
	var result UploadResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.Wrap(err, "cloudinary: decode upload response")
	}
	return &result, nil
}

func encodeForm(fields map[string]string, filename string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", errors.Wrapf(err, "cloudinary: write field %s", k)
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", errors.Wrap(err, "cloudinary: create form file")
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", errors.Wrap(err, "cloudinary: write file")
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "cloudinary: close form")
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Client) post(ctx context.Context, url, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, errors.Wrap(err, "cloudinary: build request")
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "cloudinary: upload request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "cloudinary: read response")
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Errorf("cloudinary: upload failed (%d): %s", resp.StatusCode, raw)
	}
	return raw, nil
}

var unsigned = map[string]bool{"api_key": true, "file": true, "resource_type": true, "signature": true}

// sign is the hex SHA-1 of the sorted k=v pairs joined by & followed by the secret.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" && !unsigned[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k + "=" + params[k])
	}
	b.WriteString(c.APISecret)
	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
