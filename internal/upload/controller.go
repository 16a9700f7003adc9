package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/kpauljoseph/ankix/internal/collection"
	"github.com/kpauljoseph/ankix/internal/pdf"
	"github.com/kpauljoseph/ankix/internal/remote"
	"github.com/kpauljoseph/ankix/pkg/logger"
	"github.com/kpauljoseph/ankix/pkg/models"
)

const (
	InvalidPDFMessage       = "Please select a valid PDF file"
	InvalidImagesMessage    = "Please select valid JPEG images"
	NoSelectionMessage      = "Please select a file first"
	GenerationFailedMessage = "An error occurred while processing your file. Please try again."

	PDFContentType  = "application/pdf"
	JPEGContentType = "image/jpeg"

	ImagePreviewPath = "/api/v1/files/images/%d/preview"
	PDFPreviewPath   = "/api/v1/files/pdf/preview"
)

var (
	ErrBusy             = errors.New("a generation request is already in progress")
	ErrNoSelection      = errors.New("no file selected")
	ErrInvalidFile      = errors.New("invalid file")
	ErrGenerationFailed = errors.New("generation failed")
)

type Generator interface {
	Process(ctx context.Context, req remote.ProcessRequest) ([]models.FlashcardPage, error)
}

type Incrementer interface {
	GetAndIncrement(ctx context.Context, n int) *int64
}

// File is a raw upload before validation.
type File struct {
	Name string
	Data []byte
}

type document struct {
	name string
	data []byte
	info pdf.Info
}

type FileInfo struct {
	Name       string `json:"name"`
	Size       int    `json:"size"`
	PageCount  int    `json:"pageCount,omitempty"`
	PreviewURL string `json:"previewUrl"`
}

type State struct {
	File         *FileInfo       `json:"file"`
	Images       []FileInfo      `json:"images"`
	CardType     models.CardType `json:"cardType"`
	SystemPrompt string          `json:"systemPrompt"`
	UserPrompt   string          `json:"userPrompt"`
	Busy         bool            `json:"busy"`
	Error        string          `json:"error,omitempty"`
}

type Result struct {
	Pages     []models.FlashcardPage `json:"pages"`
	CardCount int                    `json:"cardCount"`
	// Counter is the total after this generation, nil when unknown.
	Counter *int64 `json:"counter"`
}

// Controller owns the selected files and generation options for one user
// and replaces their collection when a generation succeeds.
type Controller struct {
	mu         sync.Mutex
	generator  Generator
	inspector  pdf.PDFInspector
	counter    Incrementer
	collection *collection.Collection
	logger     *logger.Logger

	pdf          *document
	images       []File
	cardType     models.CardType
	systemPrompt string
	userPrompt   string
	busy         bool
	errMsg       string
}

func NewController(generator Generator, inspector pdf.PDFInspector, counter Incrementer, coll *collection.Collection, log *logger.Logger) *Controller {
	return &Controller{
		generator:  generator,
		inspector:  inspector,
		counter:    counter,
		collection: coll,
		logger:     log,
		cardType:   models.CardTypeBasic,
	}
}

// SelectPDF replaces the whole selection with one PDF. On rejection the PDF
// selection is emptied and the user-facing error is set.
func (c *Controller) SelectPDF(name string, data []byte) error {
	var info pdf.Info
	err := checkContentType(data, PDFContentType)
	if err == nil {
		info, err = c.inspector.Inspect(data)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Debug("Rejected PDF %s: %v", name, err)
		c.pdf = nil
		c.errMsg = InvalidPDFMessage
		return fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	c.pdf = &document{name: name, data: data, info: info}
	c.images = nil
	c.errMsg = ""
	c.logger.Info("Selected PDF %s (%d pages)", name, info.PageCount)
	return nil
}

// AddImages appends JPEG images to the selection, dropping any PDF. If any
// file is not a JPEG nothing is added.
func (c *Controller) AddImages(files []File) error {
	for _, f := range files {
		if err := checkContentType(f.Data, JPEGContentType); err != nil {
			c.mu.Lock()
			c.errMsg = InvalidImagesMessage
			c.mu.Unlock()
			c.logger.Debug("Rejected image %s: %v", f.Name, err)
			return fmt.Errorf("%w: %s: %v", ErrInvalidFile, f.Name, err)
		}
	}
	if len(files) == 0 {
		c.mu.Lock()
		c.errMsg = InvalidImagesMessage
		c.mu.Unlock()
		return fmt.Errorf("%w: no images", ErrInvalidFile)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pdf = nil
	c.images = append(c.images, files...)
	c.errMsg = ""
	c.logger.Info("Selected %d images (%d total)", len(files), len(c.images))
	return nil
}

func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pdf = nil
	c.images = nil
	c.errMsg = ""
}

func (c *Controller) SetCardType(value string) error {
	cardType, err := models.ParseCardType(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cardType = cardType
	return nil
}

func (c *Controller) CardType() models.CardType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cardType
}

func (c *Controller) SetPrompts(systemPrompt, userPrompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systemPrompt = strings.TrimSpace(systemPrompt)
	c.userPrompt = strings.TrimSpace(userPrompt)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Images:       []FileInfo{},
		CardType:     c.cardType,
		SystemPrompt: c.systemPrompt,
		UserPrompt:   c.userPrompt,
		Busy:         c.busy,
		Error:        c.errMsg,
	}
	if c.pdf != nil {
		s.File = &FileInfo{
			Name:       c.pdf.name,
			Size:       len(c.pdf.data),
			PageCount:  c.pdf.info.PageCount,
			PreviewURL: PDFPreviewPath,
		}
	}
	for i, img := range c.images {
		s.Images = append(s.Images, FileInfo{
			Name:       img.Name,
			Size:       len(img.Data),
			PreviewURL: fmt.Sprintf(ImagePreviewPath, i),
		})
	}
	return s
}

func (c *Controller) PDFPreview() ([]byte, error) {
	c.mu.Lock()
	doc := c.pdf
	c.mu.Unlock()

	if doc == nil {
		return nil, ErrNoSelection
	}
	return c.inspector.Preview(doc.data)
}

func (c *Controller) ImagePreview(index int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.images) {
		return nil, ErrNoSelection
	}
	return c.images[index].Data, nil
}

// Generate sends the selection to the flashcard service. The lock is not
// held during the remote call; the busy flag keeps a second call out.
func (c *Controller) Generate(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return Result{}, ErrBusy
	}
	if c.pdf == nil && len(c.images) == 0 {
		c.errMsg = NoSelectionMessage
		c.mu.Unlock()
		return Result{}, ErrNoSelection
	}
	req := c.buildRequest()
	c.busy = true
	c.errMsg = ""
	c.mu.Unlock()

	pages, err := c.generator.Process(ctx, req)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		c.errMsg = GenerationFailedMessage
		c.mu.Unlock()
		c.logger.Error("Upload failed: %v", err)
		return Result{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	c.collection.Replace(pages)
	c.mu.Unlock()

	result := Result{
		Pages:     pages,
		CardCount: models.CountFlashcards(pages),
	}
	c.logger.Info("Generated %d flashcards across %d pages", result.CardCount, len(pages))

	if previous := c.counter.GetAndIncrement(ctx, result.CardCount); previous != nil {
		total := *previous + int64(result.CardCount)
		result.Counter = &total
	}
	return result, nil
}

func (c *Controller) buildRequest() remote.ProcessRequest {
	req := remote.ProcessRequest{
		CardType:     c.cardType,
		SystemPrompt: c.systemPrompt,
		UserPrompt:   c.userPrompt,
	}
	if c.pdf != nil {
		req.PDF = &remote.File{Name: c.pdf.name, ContentType: PDFContentType, Data: c.pdf.data}
		return req
	}
	for _, img := range c.images {
		req.Images = append(req.Images, remote.File{Name: img.Name, ContentType: JPEGContentType, Data: img.Data})
	}
	return req
}

func checkContentType(data []byte, want string) error {
	got := http.DetectContentType(data)
	if got != want {
		return fmt.Errorf("expected %s, got %s", want, got)
	}
	return nil
}
