package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kpauljoseph/ankix/internal/collection"
	"github.com/kpauljoseph/ankix/internal/feedback"
	"github.com/kpauljoseph/ankix/internal/importer"
	"github.com/kpauljoseph/ankix/internal/upload"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error maps domain errors to a status code and one user-facing message.
func Error(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Something went wrong. Please try again."

	switch {
	case errors.Is(err, upload.ErrBusy):
		status = http.StatusConflict
		message = "Your file is still being processed."
	case errors.Is(err, upload.ErrNoSelection):
		status = http.StatusBadRequest
		message = upload.NoSelectionMessage
	case errors.Is(err, upload.ErrGenerationFailed):
		status = http.StatusBadGateway
		message = upload.GenerationFailedMessage
	case errors.Is(err, importer.ErrFailed):
		status = http.StatusBadGateway
		message = importer.FailedMessage
	case errors.Is(err, importer.ErrNotFound):
		status = http.StatusNotFound
		message = "This download has expired. Please generate the import file again."
	case errors.Is(err, collection.ErrOutOfRange):
		status = http.StatusNotFound
		message = "That flashcard no longer exists."
	case errors.Is(err, collection.ErrUnknownField), errors.Is(err, collection.ErrInvalidValue):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, feedback.ErrEmptyMessage):
		status = http.StatusBadRequest
		message = "Please enter some feedback."
	case errors.Is(err, feedback.ErrSending):
		status = http.StatusConflict
		message = "Your feedback is still being sent."
	}

	JSON(w, status, map[string]string{"error": message})
}

// BadRequest writes a 400 error with the given message.
func BadRequest(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, map[string]string{"error": message})
}
