package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/kpauljoseph/ankix/internal/remote"
	"github.com/kpauljoseph/ankix/pkg/logger"
	"github.com/kpauljoseph/ankix/pkg/models"
)

const (
	FailedMessage = "An error occurred while generating the import file. Please try again."

	DownloadPath = "/api/v1/downloads/%s"
)

var ErrFailed = errors.New("import file generation failed")

type FileGenerator interface {
	GenerateImportFile(ctx context.Context, pages []models.FlashcardPage, cardType models.CardType) (*remote.ImportFile, error)
}

type Download struct {
	ID   string `json:"id"`
	URL  string `json:"downloadUrl"`
	Name string `json:"name"`
	Size int    `json:"size"`
}

// Dispatcher requests an import file for the current pages and parks the
// result in the store so the browser can fetch it by URL.
type Dispatcher struct {
	generator FileGenerator
	store     *Store
	logger    *logger.Logger
}

func NewDispatcher(generator FileGenerator, store *Store, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		generator: generator,
		store:     store,
		logger:    log,
	}
}

// Dispatch makes one attempt; failures are not retried.
func (d *Dispatcher) Dispatch(ctx context.Context, pages []models.FlashcardPage, cardType models.CardType) (Download, error) {
	d.logger.Debug("Requesting import file for %d pages (%d cards, cardType=%s)",
		len(pages), models.CountFlashcards(pages), cardType)

	file, err := d.generator.GenerateImportFile(ctx, pages, cardType)
	if err != nil {
		d.logger.Error("Import file request failed: %v", err)
		return Download{}, fmt.Errorf("%w: %v", ErrFailed, err)
	}

	artifact := d.store.Put(file)
	d.logger.Info("Import file %s ready (%d bytes)", artifact.Name, len(artifact.Data))

	return Download{
		ID:   artifact.ID,
		URL:  fmt.Sprintf(DownloadPath, artifact.ID),
		Name: artifact.Name,
		Size: len(artifact.Data),
	}, nil
}

// Discard drops an artifact that no longer matches the user's flashcards.
func (d *Dispatcher) Discard(id string) {
	d.store.Delete(id)
	d.logger.Debug("Discarded import file %s", id)
}

func (d *Dispatcher) Open(id string) (*Artifact, error) {
	return d.store.Get(id)
}
