package api

import (
	"github.com/Maphikza/flow-wallet-state/internal/permission"
	"github.com/Maphikza/flow-wallet-state/internal/transaction"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
)

type API struct {
	Sites  *permission.Service
	Ledger *transaction.Ledger

	allowedOrigin string
	jwtKey        []byte
	logger        zerolog.Logger
}

// Claims identifies the UI session a token was issued to.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type AddSiteRequest struct {
	Origin   string `json:"origin"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Chain    int64  `json:"chain,omitempty"`
	IsSigned bool   `json:"isSigned"`
}

type SetPendingRequest struct {
	TxID  string `json:"txId"`
	Icon  string `json:"icon"`
	Title string `json:"title"`
}

type PermissionResponse struct {
	Origin  string `json:"origin"`
	Allowed bool   `json:"allowed"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

type contextKey string

const requestIDKey contextKey = "requestID"
