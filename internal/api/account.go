package api

import (
	"account_system/internal/middleware" // Authenticated user lookup
	"account_system/internal/service"    // Account operations
	"account_system/internal/utils"      // Cache helpers
	"context"                            // Context for Redis operations
	"net/http"                           // HTTP status codes
	"strconv"                            // String conversion

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// CreateAccountRequest opens an account
type CreateAccountRequest struct {
	UserID         int64 `json:"userId" binding:"required,min=1"` // Owner of the new account
	InitialBalance int64 `json:"initialBalance"`                  // Starting balance in minor units
}

// DeleteAccountRequest unregisters an account
type DeleteAccountRequest struct {
	UserID        int64  `json:"userId" binding:"required,min=1"`                 // Owner of the account
	AccountNumber string `json:"accountNumber" binding:"required,len=10,numeric"` // Account to unregister
}

// AccountListResponse is the body of an account list
type AccountListResponse struct {
	UserID   int64                 `json:"userId"`   // Owner of the accounts
	Accounts []service.AccountInfo `json:"accounts"` // Every account, closed ones included
}

// requireSameUser rejects requests acting on behalf of another user
func requireSameUser(c *gin.Context, userID int64) bool {
	current, ok := middleware.CurrentUserID(c)
	if !ok {
		abortWith(c, http.StatusUnauthorized, codeUnauthorized, "Unauthorized")
		return false
	}
	if current != userID {
		abortWith(c, http.StatusForbidden, codeForbidden, "Token does not belong to the requested user")
		return false
	}
	return true
}

// invalidateAccountList drops the cached account list of a user
func invalidateAccountList(ctx context.Context, rdb *redis.Client, userID int64) {
	if err := utils.InvalidateCache(ctx, rdb, utils.AccountListVersionKey(userID), utils.AccountListCacheKey(userID)); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("Failed to invalidate account cache")
	}
}

// CreateAccountHandler opens an IN_USE account for the user
func CreateAccountHandler(accounts *service.AccountService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateAccountRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBind(c, err)
			return
		}
		if !requireSameUser(c, req.UserID) {
			return
		}
		summary, err := accounts.CreateAccount(c.Request.Context(), req.UserID, req.InitialBalance)
		if err != nil {
			respondError(c, err, logrus.Fields{"user_id": req.UserID})
			return
		}
		invalidateAccountList(c.Request.Context(), rdb, req.UserID)
		c.JSON(http.StatusCreated, summary)
	}
}

// DeleteAccountHandler unregisters an empty account of the user
func DeleteAccountHandler(accounts *service.AccountService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DeleteAccountRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBind(c, err)
			return
		}
		if !requireSameUser(c, req.UserID) {
			return
		}
		summary, err := accounts.DeleteAccount(c.Request.Context(), req.UserID, req.AccountNumber)
		if err != nil {
			respondError(c, err, logrus.Fields{"user_id": req.UserID, "account_number": req.AccountNumber})
			return
		}
		invalidateAccountList(c.Request.Context(), rdb, req.UserID)
		c.JSON(http.StatusOK, summary)
	}
}

// ListAccountsHandler returns every account of the user, served from cache when possible
func ListAccountsHandler(accounts *service.AccountService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
		if err != nil || userID < 1 {
			abortWith(c, http.StatusBadRequest, codeInvalidRequest, "user_id must be a positive integer")
			return
		}
		if !requireSameUser(c, userID) {
			return
		}
		ctx := c.Request.Context()
		cacheKey := utils.AccountListCacheKey(userID)
		versionKey := utils.AccountListVersionKey(userID)

		var cached AccountListResponse
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		// Taken before the read so a concurrent invalidation voids our write
		version, err := utils.CacheVersion(ctx, rdb, versionKey)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Warn("Failed to read account cache version")
		}
		cacheable := err == nil

		infos, err := accounts.ListAccounts(ctx, userID)
		if err != nil {
			respondError(c, err, logrus.Fields{"user_id": userID})
			return
		}
		resp := AccountListResponse{UserID: userID, Accounts: infos}
		if cacheable {
			if _, err := utils.SetCacheIfVersion(ctx, rdb, cacheKey, versionKey, version, resp, utils.AccountCacheTTL); err != nil {
				logrus.WithFields(logrus.Fields{
					"user_id": userID,
					"error":   err.Error(),
				}).Warn("Failed to cache account list")
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
