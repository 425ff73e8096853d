package api

import (
	"account_system/internal/domain"     // Repositories
	"account_system/internal/middleware" // Auth middleware
	"account_system/internal/service"    // Business operations

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// Dependencies wires handlers to their collaborators
type Dependencies struct {
	Users        domain.UserRepository       // Registration, login and admin checks
	Accounts     *service.AccountService     // Account lifecycle and lookups
	Transactions *service.TransactionService // Use, cancel and transaction lookups
	Redis        *redis.Client               // Optional read cache, nil disables it
	JWTSecret    string                      // Token signing key
}

// RegisterRoutes mounts every endpoint on r
func RegisterRoutes(r *gin.Engine, d Dependencies) {
	// Auth routes
	r.POST("/user", RegisterHandler(d.Users))          // Registration endpoint
	r.GET("/user", LoginHandler(d.Users, d.JWTSecret)) // Login endpoint

	auth := middleware.JWTAuthMiddleware(d.JWTSecret)

	// Account routes (protected by JWT)
	accountGroup := r.Group("/account", auth)
	accountGroup.POST("", CreateAccountHandler(d.Accounts, d.Redis))   // Open account
	accountGroup.DELETE("", DeleteAccountHandler(d.Accounts, d.Redis)) // Unregister account
	accountGroup.GET("", ListAccountsHandler(d.Accounts, d.Redis))     // List accounts of a user

	// Admin lookups by internal id
	adminOnly := middleware.AdminOnlyMiddleware(d.Users)
	accountGroup.GET("/:id", adminOnly, GetAccountHandler(d.Accounts))
	accountGroup.GET("/:id/transactions", adminOnly, ListAccountTransactionsHandler(d.Transactions))

	// Transaction routes (protected by JWT)
	transactionGroup := r.Group("/transaction", auth)
	transactionGroup.POST("/use", UseBalanceHandler(d.Transactions, d.Redis))                   // Debit
	transactionGroup.POST("/cancel", CancelBalanceHandler(d.Transactions, d.Accounts, d.Redis)) // Reverse a debit
	transactionGroup.GET("/:transactionId", GetTransactionHandler(d.Transactions))              // Query
}
