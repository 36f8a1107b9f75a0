package services

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
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopmate/backend/internal/config"
	"github.com/shopmate/backend/internal/models"
)

// ImageStore hosts uploaded images externally. Upload returns the public
// URL plus the asset id needed for a later Destroy.
type ImageStore interface {
	Upload(ctx context.Context, filename string, r io.Reader) (models.Image, error)
	Destroy(ctx context.Context, assetID string) error
}

// CloudinaryImages implements ImageStore against the Cloudinary upload API
// using signed requests.
type CloudinaryImages struct {
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
	client    *http.Client
}

func NewCloudinaryImages(cfg config.CloudinaryConfig) *CloudinaryImages {
	return &CloudinaryImages{
		cloudName: cfg.CloudName,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		folder:    cfg.Folder,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *CloudinaryImages) endpoint(action string) string {
	return fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/%s", c.cloudName, action)
}

// sign produces the Cloudinary request signature: sha1 over the sorted
// key=value pairs joined with & plus the API secret.
func (c *CloudinaryImages) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}

func (c *CloudinaryImages) Upload(ctx context.Context, filename string, r io.Reader) (models.Image, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	params := map[string]string{
		"folder":    c.folder,
		"timestamp": timestamp,
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for k, v := range params {
		if err := writer.WriteField(k, v); err != nil {
			return models.Image{}, fmt.Errorf("write upload field: %w", err)
		}
	}
	if err := writer.WriteField("api_key", c.apiKey); err != nil {
		return models.Image{}, fmt.Errorf("write upload field: %w", err)
	}
	if err := writer.WriteField("signature", c.sign(params)); err != nil {
		return models.Image{}, fmt.Errorf("write upload field: %w", err)
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return models.Image{}, fmt.Errorf("create upload part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return models.Image{}, fmt.Errorf("copy upload body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return models.Image{}, fmt.Errorf("close upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("upload"), &buf)
	if err != nil {
		return models.Image{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Image{}, fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.Image{}, fmt.Errorf("image host returned %d: %s", resp.StatusCode, body)
	}

	var result struct {
		SecureURL string `json:"secure_url"`
		PublicID  string `json:"public_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.Image{}, fmt.Errorf("decode upload response: %w", err)
	}

	return models.Image{URL: result.SecureURL, AssetID: result.PublicID}, nil
}

func (c *CloudinaryImages) Destroy(ctx context.Context, assetID string) error {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	params := map[string]string{
		"public_id": assetID,
		"timestamp": timestamp,
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("api_key", c.apiKey)
	form.Set("signature", c.sign(params))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint("destroy"), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build destroy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("destroy image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image host returned %d on destroy", resp.StatusCode)
	}

	return nil
}

var _ ImageStore = (*CloudinaryImages)(nil)
