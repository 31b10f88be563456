package api

import (
	"harry_hype/internal/accounts"   // Registration and login
	"harry_hype/internal/middleware" // Auth middleware
	"harry_hype/internal/shares"     // Share workflows

	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics endpoint
	"gorm.io/gorm"                                            // GORM ORM library
)

// Deps are the services the routes call
type Deps struct {
	DB       *gorm.DB                 // Loads the authenticated user
	Verifier middleware.TokenVerifier // Checks bearer tokens
	Accounts *accounts.Service
	Shares   *shares.Service
}

// NewRouter registers every route on a new engine
func NewRouter(d Deps) *gin.Engine {
	r := gin.Default() // Gin router instance

	// Auth routes
	r.POST("/auth/register", RegisterHandler(d.Accounts)) // Registration endpoint
	r.POST("/auth/login", LoginHandler(d.Accounts))       // Login endpoint

	// Public reads
	r.POST("/shares/issued", IssuedHandler(d.Shares))        // Total supply of a mint
	r.GET("/token/balance", TokenBalanceHandler(d.Shares))   // One wallet, one mint
	r.GET("/token/balances", TokenBalancesHandler(d.Shares)) // Every token a user created
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))         // Prometheus scrape

	// Routes for signed-in users
	authed := r.Group("/")
	authed.Use(middleware.JWTAuthMiddleware(d.Verifier), middleware.LocalUserMiddleware(d.DB))
	authed.POST("/startups", CreateStartupHandler(d.Shares))         // Create startup and issue its token
	authed.GET("/issuances/:id", GetIssuanceHandler(d.Shares))       // Issuance progress
	authed.POST("/shares/mint", MintHandler(d.Shares))               // Mint shares
	authed.POST("/shares/transfer", TransferHandler(d.Shares))       // Transfer shares
	authed.GET("/transactions", TransactionHistoryHandler(d.Shares)) // Transfer history

	return r
}
