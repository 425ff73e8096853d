package api

import (
	"account_system/internal/service" // Balance operations
	"net/http"                        // HTTP status codes

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// UseBalanceRequest debits an account
type UseBalanceRequest struct {
	UserID        int64  `json:"userId" binding:"required,min=1"`                 // Owner of the account
	AccountNumber string `json:"accountNumber" binding:"required,len=10,numeric"` // Account to debit
	Amount        int64  `json:"amount" binding:"required"`                       // Amount in minor units
}

// CancelBalanceRequest reverses a USE
type CancelBalanceRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`                // USE to reverse
	AccountNumber string `json:"accountNumber" binding:"required,len=10,numeric"` // Account the USE was made against
	Amount        int64  `json:"amount" binding:"required"`                       // Must equal the USE amount
}

// UseBalanceHandler debits the user's account
func UseBalanceHandler(transactions *service.TransactionService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UseBalanceRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBind(c, err)
			return
		}
		if !requireSameUser(c, req.UserID) {
			return
		}
		result, err := transactions.UseBalance(c.Request.Context(), req.UserID, req.AccountNumber, req.Amount)
		if err != nil {
			respondError(c, err, logrus.Fields{
				"user_id":        req.UserID,
				"account_number": req.AccountNumber,
				"amount":         req.Amount,
			})
			return
		}
		invalidateAccountList(c.Request.Context(), rdb, req.UserID)
		c.JSON(http.StatusOK, result)
	}
}

// CancelBalanceHandler reverses a successful USE in full
func CancelBalanceHandler(transactions *service.TransactionService, accounts *service.AccountService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CancelBalanceRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBind(c, err)
			return
		}
		ctx := c.Request.Context()
		result, err := transactions.CancelBalance(ctx, req.TransactionID, req.AccountNumber, req.Amount)
		if err != nil {
			respondError(c, err, logrus.Fields{
				"transaction_id": req.TransactionID,
				"account_number": req.AccountNumber,
				"amount":         req.Amount,
			})
			return
		}
		// The request carries no user, so resolve the owner to drop their cached list
		if account, err := accounts.GetAccountByNumber(ctx, req.AccountNumber); err == nil {
			invalidateAccountList(ctx, rdb, account.AccountUserID)
		}
		c.JSON(http.StatusOK, result)
	}
}

// GetTransactionHandler returns a stored transaction, failed attempts included
func GetTransactionHandler(transactions *service.TransactionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		transactionID := c.Param("transactionId")
		result, err := transactions.QueryTransaction(c.Request.Context(), transactionID)
		if err != nil {
			respondError(c, err, logrus.Fields{"transaction_id": transactionID})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
