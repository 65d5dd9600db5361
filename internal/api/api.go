package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Maphikza/flow-wallet-state/internal/permission"
	"github.com/Maphikza/flow-wallet-state/internal/transaction"
	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

func NewAPI(sites *permission.Service, ledger *transaction.Ledger, allowedOrigin string, jwtKey []byte, logger zerolog.Logger) *API {
	return &API{
		Sites:         sites,
		Ledger:        ledger,
		allowedOrigin: allowedOrigin,
		jwtKey:        jwtKey,
		logger:        logger.With().Str("component", "api").Logger(),
	}
}

// GenerateJWT issues an HS256 token for userID that expires after ttl.
func GenerateJWT(key []byte, userID string, ttl time.Duration) (string, error) {
	if len(key) == 0 {
		return "", errors.New("JWT signing key not available")
	}
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	resp := ErrorResponse{Error: msg}
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		resp.RequestID = id
	}
	writeJSON(w, status, resp)
}

func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// queryInt reads a non-negative integer parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.Errorf("invalid %s", name)
	}
	return n, nil
}

func queryBool(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.Errorf("invalid %s", name)
	}
	return b, nil
}
