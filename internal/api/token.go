package api

import (
	"net/http" // HTTP status codes

	"harry_hype/internal/shares" // Share workflows

	"github.com/gin-gonic/gin" // Gin web framework
)

// TokenBalanceHandler returns a wallet's balance of one mint with its metadata
func TokenBalanceHandler(svc *shares.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		h, err := svc.TokenBalanceAndMetadata(c.Request.Context(), c.Query("mint"), c.Query("userWallet"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusOK, h)
	}
}

// TokenBalancesHandler returns balance and metadata of every token a user created
func TokenBalancesHandler(svc *shares.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.UserTokens(c.Request.Context(), c.Query("userId"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusOK, res)
	}
}
