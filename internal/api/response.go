package api

import (
	"errors"   // Error inspection
	"io"       // Reading uploads
	"net/http" // HTTP status codes

	"harry_hype/internal/apperr" // Error classification

	"github.com/gin-gonic/gin"               // Gin web framework
	"github.com/go-playground/validator/v10" // Binding tag failures
	"github.com/sirupsen/logrus"             // Logging library
)

// maxUploadBytes caps each uploaded image
const maxUploadBytes = 10 << 20

// ok writes the success envelope
func ok(c *gin.Context, status int, message any) {
	c.JSON(status, gin.H{"error": false, "message": message})
}

// fail writes the failure envelope with the status of the error kind
func fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err) // Status from the error kind
	message := "Internal server error"
	var e *apperr.Error
	if errors.As(err, &e) && e.Msg != "" {
		message = e.Msg // Client-facing part only
	}
	// Log server-side failures with their cause
	if status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,   // Request method
			"path":   c.FullPath(),       // Route
			"kind":   apperr.KindOf(err), // Failure class
			"error":  err.Error(),        // Full error chain
		}).Error("Request failed")
	}
	c.JSON(status, gin.H{"error": true, "message": message})
}

// bindError turns a ShouldBindJSON failure into a validation error. Missing
// required fields get the route's message, anything else is a bad body.
func bindError(err error, requiredMsg string) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperr.Validation("%s", requiredMsg) // A binding:"required" field is empty
	}
	return apperr.Validation("Invalid request") // Malformed JSON or wrong types
}

// formFile reads an optional multipart file. A missing field returns nil.
func formFile(c *gin.Context, field string) (name, contentType string, data []byte, err error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", "", nil, nil // Field not sent
	}
	if err != nil {
		return "", "", nil, apperr.Validation("Invalid multipart form")
	}
	if fh.Size > maxUploadBytes {
		return "", "", nil, apperr.Validation("File %s is too large", field)
	}
	f, err := fh.Open()
	if err != nil {
		return "", "", nil, apperr.Internal(err, "Error reading upload")
	}
	defer f.Close()
	data, err = io.ReadAll(io.LimitReader(f, maxUploadBytes)) // Read the whole file
	if err != nil {
		return "", "", nil, apperr.Internal(err, "Error reading upload")
	}
	return fh.Filename, fh.Header.Get("Content-Type"), data, nil
}
