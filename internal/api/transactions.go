package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"harry_hype/internal/middleware" // Authenticated user
	"harry_hype/internal/shares"     // Share workflows

	"github.com/gin-gonic/gin" // Gin web framework
)

// TransactionHistoryHandler returns the caller's transfers, newest first
func TransactionHistoryHandler(svc *shares.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := 1      // Default page
		pageSize := 20 // Default page size
		// If page exists in query
		if p := c.Query("page"); p != "" {
			// Convert page to integer
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// If page_size exists in query
		if ps := c.Query("page_size"); ps != "" {
			// Convert page_size to integer
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size if valid
			}
		}
		res, err := svc.TransactionHistory(c.Request.Context(), middleware.CurrentUser(c), c.Query("token_id"), page, pageSize)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusOK, res) // Return transaction history
	}
}
