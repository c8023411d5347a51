// Package upload hosts receipt and wallet images on Cloudinary.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"ledgerly/internal/core"
	"ledgerly/internal/ledger"
	"ledgerly/internal/log"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

type Config struct {
	CloudName    string
	UploadPreset string
	// BaseURL overrides the API root, mainly for tests.
	BaseURL string
	Timeout time.Duration
}

// Cloudinary uploads local files with an unsigned upload preset. Images that
// already carry a URL are returned unchanged.
type Cloudinary struct {
	endpoint string
	preset   string
	client   *http.Client
	logger   *log.Logger
}

var _ ledger.Uploader = (*Cloudinary)(nil)

func NewCloudinary(cfg Config, logger *log.Logger) (*Cloudinary, error) {
	if cfg.CloudName == "" || cfg.UploadPreset == "" {
		return nil, errors.New("cloudinary cloud name and upload preset are required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Cloudinary{
		endpoint: fmt.Sprintf("%s/%s/image/upload", base, cfg.CloudName),
		preset:   cfg.UploadPreset,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.WithComponent(log.ComponentUpload),
	}, nil
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Cloudinary) Upload(ctx context.Context, img core.Image, folder string) (string, error) {
	if url := strings.TrimSpace(img.URL); url != "" {
		return url, nil
	}
	if img.Open == nil {
		return "", errors.New("image has neither url nor file")
	}

	f, err := img.Open()
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	name := filepath.Base(strings.TrimSpace(img.Name))
	if name == "." || name == "/" {
		name = "image"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, f, name, c.preset, folder))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, pr)
	if err != nil {
		pr.Close()
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		pr.Close()
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	var body uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode upload response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode/100 != 2 {
		msg := http.StatusText(resp.StatusCode)
		if body.Error != nil && body.Error.Message != "" {
			msg = body.Error.Message
		}
		return "", fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, msg)
	}
	if body.SecureURL == "" {
		return "", errors.New("upload response carried no secure_url")
	}

	c.logger.InfoContext(ctx, "Image uploaded",
		log.FieldOperation, log.OpUpload,
		"folder", folder,
		log.FieldDuration, time.Since(start).Milliseconds())
	return body.SecureURL, nil
}

func writeForm(mw *multipart.Writer, file io.Reader, name, preset, folder string) error {
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	if err := mw.WriteField("upload_preset", preset); err != nil {
		return err
	}
	if err := mw.WriteField("folder", folder); err != nil {
		return err
	}
	return mw.Close()
}
