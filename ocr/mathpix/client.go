// Package mathpix implements the remote accurate-tier OCR engine
// backed by the Mathpix document API. Images are uploaded, processed
// asynchronously on the remote side, and polled until the document
// reaches a terminal status; only completed documents are downloaded.
package mathpix

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

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL      = "https://api.mathpix.com"
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 60 * time.Second
)

// ErrRemoteTimeout is returned when a document does not reach a
// terminal status within the poll timeout.
var ErrRemoteTimeout = errors.New("mathpix: polling timed out")

// APIError is a failure reported by the remote service, either an HTTP
// error response or a document that finished in the error status.
type APIError struct {
	DocID      string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("mathpix: http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("mathpix: document %s: %s", e.DocID, e.Message)
}

// Config carries the credentials and tunables for a Client.
type Config struct {
	AppID  string
	AppKey string

	// BaseURL overrides the production endpoint, mainly for tests.
	BaseURL string

	PollInterval time.Duration
	PollTimeout  time.Duration

	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// Client talks to the document API. Safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	log  *logrus.Entry
}

// NewClient returns a client with defaults applied for every zero
// Config field except the credentials.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		cfg:  cfg,
		http: hc,
		log:  logger.WithField("component", "mathpix"),
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.AppID != "" && c.cfg.AppKey != ""
}

type uploadResponse struct {
	PDFID string `json:"pdf_id"`
	Error string `json:"error"`
}

type statusResponse struct {
	Status Status `json:"status"`
	Error  string `json:"error"`
}

// Upload submits a PNG-encoded image for processing and returns the
// remote document id.
func (c *Client) Upload(ctx context.Context, pngData []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "page.png")
	if err != nil {
		return "", fmt.Errorf("mathpix: build upload: %w", err)
	}
	if _, err := part.Write(pngData); err != nil {
		return "", fmt.Errorf("mathpix: build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("mathpix: build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v3/pdf", &body)
	if err != nil {
		return "", fmt.Errorf("mathpix: build upload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.auth(req)

	var out uploadResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", &APIError{Message: out.Error}
	}
	if out.PDFID == "" {
		return "", &APIError{Message: "upload response missing document id"}
	}
	c.log.WithField("doc_id", out.PDFID).Debug("Uploaded document")
	return out.PDFID, nil
}

// Poll queries the document status until it reaches a terminal state
// or the poll timeout elapses. Completed documents return nil; error
// documents return an *APIError and timeouts return ErrRemoteTimeout.
func (c *Client) Poll(ctx context.Context, docID string) error {
	deadline := time.NewTimer(c.cfg.PollTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	last := StatusReceived
	for {
		st, msg, err := c.status(ctx, docID)
		if err != nil {
			return err
		}
		observeTransition(c.log, docID, last, st)
		last = st

		switch st {
		case StatusCompleted:
			return nil
		case StatusError:
			if msg == "" {
				msg = "processing failed"
			}
			return &APIError{DocID: docID, Message: msg}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("document %s after %s: %w", docID, c.cfg.PollTimeout, ErrRemoteTimeout)
		case <-ticker.C:
		}
	}
}

func (c *Client) status(ctx context.Context, docID string) (Status, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v3/pdf/"+docID, nil)
	if err != nil {
		return "", "", fmt.Errorf("mathpix: build status request: %w", err)
	}
	c.auth(req)

	var out statusResponse
	if err := c.do(req, &out); err != nil {
		return "", "", err
	}
	return out.Status, out.Error, nil
}

// Lines is the downloaded recognition result for one document.
type Lines struct {
	Pages []LinesPage `json:"pages"`
}

// LinesPage holds the recognized lines of a single page.
type LinesPage struct {
	Lines []Line `json:"lines"`
}

// Line is one recognized text line with its bounding contour in image
// pixel coordinates.
type Line struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Region     [][2]int `json:"cnt"`
}

// Download fetches the line-level result of a completed document.
// Calling it on a non-completed document returns whatever the service
// reports, usually an HTTP error; callers should Poll first.
func (c *Client) Download(ctx context.Context, docID string) (*Lines, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v3/pdf/"+docID+".lines.json", nil)
	if err != nil {
		return nil, fmt.Errorf("mathpix: build download request: %w", err)
	}
	c.auth(req)

	var out Lines
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) auth(req *http.Request) {
	req.Header.Set("app_id", c.cfg.AppID)
	req.Header.Set("app_key", c.cfg.AppKey)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mathpix: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("mathpix: decode response: %w", err)
	}
	return nil
}
