package api

import (
	"account_system/internal/service" // Account operations
	"net/http"                        // HTTP status codes
	"strconv"                         // String conversion

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// TransactionListResponse is the body of an account history
type TransactionListResponse struct {
	AccountID    int64                       `json:"accountId"`    // Internal account id
	Transactions []service.TransactionResult `json:"transactions"` // Oldest first, failed attempts included
}

// GetAccountHandler returns the full account record by internal id.
// Mounted behind AdminOnlyMiddleware.
func GetAccountHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			abortWith(c, http.StatusBadRequest, codeInvalidRequest, "id must be an integer")
			return
		}
		// Negative ids reach the service, which reports them as INVALID_ARGUMENT
		account, err := accounts.GetAccount(c.Request.Context(), id)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id})
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

// ListAccountTransactionsHandler returns the history of an account by internal id.
// Mounted behind AdminOnlyMiddleware.
func ListAccountTransactionsHandler(transactions *service.TransactionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			abortWith(c, http.StatusBadRequest, codeInvalidRequest, "id must be an integer")
			return
		}
		history, err := transactions.ListTransactions(c.Request.Context(), id)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id})
			return
		}
		c.JSON(http.StatusOK, TransactionListResponse{AccountID: id, Transactions: history})
	}
}
