package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/kpauljoseph/ankix/pkg/logger"
)

const (
	DefaultPreviewDPI = 72.0
	PreviewQuality    = 80
)

var ErrNoPages = errors.New("PDF has no pages")

type Info struct {
	PageCount int
}

// Inspector checks uploaded PDFs before they are forwarded and renders a
// first-page thumbnail for the upload preview.
type Inspector struct {
	conf       *model.Configuration
	previewDPI float64
	logger     *logger.Logger
}

func NewInspector(log *logger.Logger) *Inspector {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return &Inspector{
		conf:       conf,
		previewDPI: DefaultPreviewDPI,
		logger:     log,
	}
}

func (i *Inspector) Inspect(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, fmt.Errorf("empty PDF")
	}

	// pdfcpu writes to the configuration on every call, so each
	// inspection works on its own copy.
	conf := *i.conf
	if err := api.Validate(bytes.NewReader(data), &conf); err != nil {
		return Info{}, fmt.Errorf("failed to validate PDF: %w", err)
	}

	conf = *i.conf
	pageCount, err := api.PageCount(bytes.NewReader(data), &conf)
	if err != nil {
		return Info{}, fmt.Errorf("failed to count pages: %w", err)
	}
	if pageCount == 0 {
		return Info{}, ErrNoPages
	}

	i.logger.Debug("Inspected PDF: %d bytes, %d pages", len(data), pageCount)
	return Info{PageCount: pageCount}, nil
}

// Preview renders the first page as a JPEG.
func (i *Inspector) Preview(data []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	//Page numbers are zero indexed in the fitz package.
	if doc.NumPage() == 0 {
		return nil, ErrNoPages
	}

	img, err := doc.ImageDPI(0, i.previewDPI)
	if err != nil {
		return nil, fmt.Errorf("failed to render first page: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: PreviewQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	i.logger.Trace("Rendered preview: %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	return buf.Bytes(), nil
}
