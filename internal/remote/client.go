package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kpauljoseph/ankix/pkg/logger"
	"github.com/kpauljoseph/ankix/pkg/models"
)

const (
	DefaultBaseURL     = "https://ankix.pythonanywhere.com"
	DefaultProcessPath = "/upload"
	DefaultImportPath  = "/generate_anki_file"

	DefaultImportFileName = "flashcards.apkg"
	maxErrorBodyBytes     = 512
)

// File is one uploaded document or image as forwarded to the service.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type ProcessRequest struct {
	PDF          *File
	Images       []File
	CardType     models.CardType
	SystemPrompt string
	UserPrompt   string
}

// ImportFile is the opaque artifact returned by the import endpoint.
type ImportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("flashcard service returned status %d", e.Code)
	}
	return fmt.Sprintf("flashcard service returned status %d: %s", e.Code, e.Body)
}

// Client talks to the external flashcard service. It does not retry.
type Client struct {
	baseURL     string
	processPath string
	importPath  string
	client      *http.Client
	logger      *logger.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithTimeout sets an overall request timeout. Zero means none.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.client = &http.Client{Timeout: timeout}
	}
}

func WithPaths(processPath, importPath string) Option {
	return func(c *Client) {
		if processPath != "" {
			c.processPath = processPath
		}
		if importPath != "" {
			c.importPath = importPath
		}
	}
}

func NewClient(baseURL string, log *logger.Logger, options ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		processPath: DefaultProcessPath,
		importPath:  DefaultImportPath,
		client:      &http.Client{},
		logger:      log,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Process uploads a PDF or a set of images and returns the generated pages.
func (c *Client) Process(ctx context.Context, req ProcessRequest) ([]models.FlashcardPage, error) {
	if req.PDF == nil && len(req.Images) == 0 {
		return nil, fmt.Errorf("nothing to process")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if req.PDF != nil {
		if err := writeFilePart(writer, "pdf", *req.PDF); err != nil {
			return nil, err
		}
	} else {
		for _, img := range req.Images {
			if err := writeFilePart(writer, "images", img); err != nil {
				return nil, err
			}
		}
	}

	fields := []struct{ name, value string }{
		{"cardType", string(req.CardType)},
		{"systemPrompt", req.SystemPrompt},
		{"userPrompt", req.UserPrompt},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := writer.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", f.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	c.logger.Debug("Sending %d bytes to %s (cardType=%s, images=%d, pdf=%t)",
		body.Len(), c.processPath, req.CardType, len(req.Images), req.PDF != nil)

	resp, err := c.post(ctx, c.processPath, writer.FormDataContentType(), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var pages []models.FlashcardPage
	if err := json.NewDecoder(resp.Body).Decode(&pages); err != nil {
		return nil, fmt.Errorf("failed to decode flashcards: %w", err)
	}

	c.logger.Debug("Received %d pages with %d flashcards", len(pages), models.CountFlashcards(pages))
	return pages, nil
}

// GenerateImportFile sends the edited pages back and returns the artifact
// bytes untouched.
func (c *Client) GenerateImportFile(ctx context.Context, pages []models.FlashcardPage, cardType models.CardType) (*ImportFile, error) {
	if pages == nil {
		pages = []models.FlashcardPage{}
	}
	payload, err := json.Marshal(map[string]interface{}{
		"flashcardPages": pages,
		"cardType":       cardType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.post(ctx, c.importPath, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}

	file := &ImportFile{
		Name:        DefaultImportFileName,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}
	if file.ContentType == "" {
		file.ContentType = "application/octet-stream"
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		file.Name = params["filename"]
	}

	c.logger.Debug("Received import file %s (%d bytes)", file.Name, len(file.Data))
	return file, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach flashcard service: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	return resp, nil
}

func writeFilePart(writer *multipart.Writer, field string, file File) error {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		field, escapeQuotes(file.Name)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return fmt.Errorf("failed to write %s part: %w", field, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
