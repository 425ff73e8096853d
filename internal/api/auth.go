package api

import (
	"account_system/internal/domain" // Importing domain models
	"account_system/internal/utils"  // Utility functions
	"errors"                         // Error matching
	"net/http"                       // HTTP status codes
	"regexp"                         // Regular expressions
	"strings"                        // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
)

// Request struct for registration
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`     // Name must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Request struct for login
type LoginRequest struct {
	Name     string `json:"name" binding:"required"`     // Name must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Response struct for registration
type RegisterResponse struct {
	UserID int64  `json:"userId"` // Id to pass as userId in account requests
	Name   string `json:"name"`   // Stored, lowercased name
}

// Response struct for authentication
type AuthResponse struct {
	UserID int64  `json:"userId"` // Authenticated user's id
	Token  string `json:"token"`  // JWT token
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z]+$`)

// isValidUsername checks if the name contains only alphabetic characters
func isValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

// isValidPassword checks if the password length is between 8 and 15 characters
func isValidPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 15
}

// RegisterHandler creates an AccountUser with a hashed password
func RegisterHandler(users domain.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBind(c, err)
			return
		}
		if !isValidUsername(req.Name) {
			abortWith(c, http.StatusBadRequest, codeInvalidRequest, "Name must be alphabetic only")
			return
		}
		if !isValidPassword(req.Password) {
			abortWith(c, http.StatusBadRequest, codeInvalidRequest, "Password must be 8-15 characters")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, err, logrus.Fields{"name": req.Name})
			return
		}
		// Lowercase name to keep it unique regardless of case
		user := &domain.AccountUser{Name: strings.ToLower(req.Name), Password: string(hash), Role: domain.RoleUser}
		if err := users.CreateUser(c.Request.Context(), user); err != nil {
			if errors.Is(err, domain.ErrWriteConflict) {
				abortWith(c, http.StatusConflict, codeInvalidRequest, "Name already exists")
				return
			}
			respondError(c, err, logrus.Fields{"name": user.Name})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
			"name":    user.Name,
		}).Info("User registered")
		c.JSON(http.StatusCreated, RegisterResponse{UserID: user.ID, Name: user.Name})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(users domain.UserRepository, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBind(c, err)
			return
		}
		user, err := users.FindUserByName(c.Request.Context(), strings.ToLower(req.Name))
		if err != nil {
			respondError(c, err, logrus.Fields{"name": req.Name})
			return
		}
		// Unknown names and wrong passwords look the same to the caller
		if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
			abortWith(c, http.StatusUnauthorized, codeUnauthorized, "Invalid credentials")
			return
		}
		token, err := utils.GenerateJWT(user.ID, jwtSecret)
		if err != nil {
			respondError(c, err, logrus.Fields{"user_id": user.ID})
			return
		}
		c.JSON(http.StatusOK, AuthResponse{UserID: user.ID, Token: token})
	}
}
