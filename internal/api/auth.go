package api

import (
	"net/http" // HTTP status codes

	"harry_hype/internal/accounts" // Registration and login

	"github.com/gin-gonic/gin" // Gin web framework
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Login email
	Password string `json:"password" binding:"required"` // Plain password
}

// RegisterHandler creates a user with a custodied wallet from a multipart form
func RegisterHandler(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		name, contentType, data, err := formFile(c, "photo") // Optional profile photo
		if err != nil {
			fail(c, err)
			return
		}
		var photo *accounts.Photo
		if data != nil {
			photo = &accounts.Photo{Name: name, ContentType: contentType, Data: data}
		}
		// Register the user, wallet and credential
		user, err := svc.Register(c.Request.Context(), c.PostForm("name"), c.PostForm("email"), c.PostForm("password"), photo)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusCreated, gin.H{"user": user}) // Return the new user
	}
}

// LoginHandler authenticates a user and returns an access token
func LoginHandler(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, bindError(err, "email and password are required"))
			return
		}
		token, user, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusOK, gin.H{"token": token, "user": user}) // Return the token and profile
	}
}
