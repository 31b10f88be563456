package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"harry_hype/internal/apperr"     // Error classification
	"harry_hype/internal/middleware" // Authenticated user
	"harry_hype/internal/shares"     // Share workflows

	"github.com/gin-gonic/gin" // Gin web framework
)

// IdempotencyHeader carries the client's retry key for startup creation
const IdempotencyHeader = "Idempotency-Key"

// CreateStartupHandler creates a startup and issues its share token
func CreateStartupHandler(svc *shares.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c) // Set by LocalUserMiddleware
		in := shares.CreateStartupInput{
			Name:           c.PostForm("name"),
			Description:    c.PostForm("description"),
			TokenName:      c.PostForm("token_name"),
			TokenSymbol:    c.PostForm("token_symbol"),
			IdempotencyKey: strings.TrimSpace(c.GetHeader(IdempotencyHeader)),
		}
		var err error
		// Both images are read up front; validation reports a missing token image
		if in.TokenImage, err = uploadedFile(c, "token_image"); err != nil {
			fail(c, err)
			return
		}
		if in.StartupImage, err = uploadedFile(c, "startup_image"); err != nil {
			fail(c, err)
			return
		}
		startup, iss, err := svc.CreateStartup(c.Request.Context(), user, in)
		if err != nil {
			// Tell the client which issuance to retry
			if iss != nil && !apperr.Is(err, apperr.KindValidation) {
				c.Header(IdempotencyHeader, iss.IdempotencyKey)
				c.JSON(apperr.HTTPStatus(err), gin.H{"error": true, "message": err.Error(), "issuance_id": iss.ID})
				return
			}
			fail(c, err)
			return
		}
		c.Header(IdempotencyHeader, iss.IdempotencyKey)
		ok(c, http.StatusCreated, startup) // Return the tokenized startup
	}
}

// GetIssuanceHandler returns the progress of one of the caller's issuances
func GetIssuanceHandler(svc *shares.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		iss, err := svc.GetIssuance(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusOK, iss)
	}
}

// uploadedFile reads an optional image field of the startup form
func uploadedFile(c *gin.Context, field string) (*shares.File, error) {
	name, contentType, data, err := formFile(c, field)
	if err != nil || data == nil {
		return nil, err
	}
	return &shares.File{Name: name, ContentType: contentType, Data: data}, nil
}
