package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// Shared validator instance for request DTOs.
var validate = validatorv10.New()

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, data interface{}) {
	writeJSON(w, code, map[string]interface{}{"success": true, "data": data})
}

// writeError carries a user-safe message; internal detail stays in logs.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]interface{}{"success": false, "error": msg})
}

// ResolveClientIP reads the proxy headers the app is deployed behind.
// Never fails hard: a request with no usable header resolves to "unknown".
func ResolveClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); ip != "" {
		return ip
	}
	return "unknown"
}

// HashIP one-ways a client IP before it touches storage or the rate
// limiter. Raw IPs are never persisted.
func HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}
