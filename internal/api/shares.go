package api

import (
	"encoding/json" // Number fields
	"net/http"      // HTTP status codes

	"harry_hype/internal/middleware" // Authenticated user
	"harry_hype/internal/shares"     // Share workflows

	"github.com/gin-gonic/gin" // Gin web framework
)

// MintRequest is the body of POST /shares/mint
type MintRequest struct {
	StartupID    string      `json:"startup_id" binding:"required"`     // Startup whose token is minted
	AmountToMint json.Number `json:"amount_to_mint" binding:"required"` // Shares, up to two decimals
}

// TransferRequest is the body of POST /shares/transfer
type TransferRequest struct {
	Receiver  string      `json:"receiver" binding:"required"`   // Receiving wallet address
	Amount    json.Number `json:"amount" binding:"required"`     // Shares, up to two decimals
	TokenMint string      `json:"token_mint" binding:"required"` // Mint of the shares
}

// IssuedRequest is the body of POST /shares/issued
type IssuedRequest struct {
	MintAddress string `json:"mintAddress" binding:"required"` // Mint to read
}

// MintHandler mints shares into the startup owner's token account
func MintHandler(svc *shares.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MintRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, bindError(err, "startup_id and amount_to_mint are required"))
			return
		}
		sig, err := svc.MintShares(c.Request.Context(), middleware.CurrentUser(c), req.StartupID, req.AmountToMint.String())
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusOK, sig) // Return the transaction signature
	}
}

// TransferHandler moves shares from the caller's wallet to the receiver
func TransferHandler(svc *shares.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TransferRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, bindError(err, "receiver, amount, and token_mint are required"))
			return
		}
		record, err := svc.TransferShares(c.Request.Context(), middleware.CurrentUser(c), shares.TransferInput{
			Receiver:  req.Receiver,
			Amount:    req.Amount.String(),
			TokenMint: req.TokenMint,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"error":       false,                 // Success
			"message":     "Transfer successful", // Shown by the client
			"signature":   record.Signature,      // On-chain signature
			"transaction": record,                // Audit row
		})
	}
}

// IssuedHandler returns the total supply of a mint
func IssuedHandler(svc *shares.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IssuedRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, bindError(err, "mintAddress is required"))
			return
		}
		supply, err := svc.IssuedSupply(c.Request.Context(), req.MintAddress)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"error": false, "supply": supply.InexactFloat64()})
	}
}
