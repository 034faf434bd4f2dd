package api

import (
	"errors"       // Error matching
	"net/http"     // HTTP status codes
	"net/mail"     // Email syntax
	"strings"      // String manipulation
	"unicode/utf8" // Display name length

	"peerpay/internal/domain" // Domain models
	"peerpay/internal/store"  // Account store
	"peerpay/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Starting balance
	"github.com/sirupsen/logrus"    // Logging
	"golang.org/x/crypto/bcrypt"    // Password hashing
)

// RegisterRequest creates an account
type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`        // Login and directory identifier
	Password    string `json:"password" binding:"required"`     // Plain password, hashed before storage
	DisplayName string `json:"display_name" binding:"required"` // Name shown to counterparties
}

// LoginRequest authenticates an account
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Identifier
	Password string `json:"password" binding:"required"` // Plain password
}

// AuthResponse carries the session token
type AuthResponse struct {
	Token   string          `json:"token"`   // JWT token
	Account AccountResponse `json:"account"` // Logged-in account
}

// isValidEmail checks the identifier is a bare address
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// isValidPassword checks the password length fits bcrypt
func isValidPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 72
}

// isValidDisplayName checks the display name is short and not blank
func isValidDisplayName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n > 0 && n <= 64
}

// RegisterHandler creates an account credited with the starting balance
func RegisterHandler(accounts store.AccountStore, startingBalance decimal.Decimal) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		email := domain.NormalizeIdentifier(req.Email)
		if !isValidEmail(email) {
			badRequest(c, "Email address is invalid")
			return
		}
		if !isValidPassword(req.Password) {
			badRequest(c, "Password must be 8-72 characters")
			return
		}
		if !isValidDisplayName(req.DisplayName) {
			badRequest(c, "Display name must be 1-64 characters")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(c, err)
			return
		}
		acc := &domain.Account{
			Identifier:  email,
			DisplayName: strings.TrimSpace(req.DisplayName),
			Password:    string(hash),
			Role:        domain.RoleUser,
			Balance:     startingBalance,
		}
		if err := accounts.CreateAccount(c.Request.Context(), acc); err != nil {
			writeError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"account_id": acc.ID,                     // New account
			"balance":    acc.Balance.StringFixed(2), // Starting balance
		}).Info("Account registered")
		c.JSON(http.StatusCreated, gin.H{"account": toAccountResponse(acc)})
	}
}

// LoginHandler authenticates an account and returns a JWT token
func LoginHandler(dir store.Directory, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		acc, err := dir.Resolve(c.Request.Context(), req.Email)
		if errors.Is(err, domain.ErrAccountNotFound) {
			// Unknown identifiers look like bad passwords
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "code": "unauthorized"})
			return
		}
		if err != nil {
			writeError(c, err)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(acc.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "code": "unauthorized"})
			return
		}
		token, err := utils.GenerateJWT(acc.ID, acc.Identifier, jwtSecret)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token, Account: toAccountResponse(acc)})
	}
}
