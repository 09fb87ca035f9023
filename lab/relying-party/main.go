// A toy relying party that accepts verification receipts as bearer tokens.
// It hand-rolls the JWS checks to make visible what accepting a receipt
// involves; real consumers should use a JWT library and also pin issuer and
// audience, which this demo deliberately skips and warns about.
package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type apiResponse struct {
	Message string                 `json:"message"`
	Claims  map[string]interface{} `json:"claims,omitempty"`
	Warning string                 `json:"warning,omitempty"`
}

func main() {
	port := getenv("PORT", "9000")
	signingKey := getenv("ATTESTATION_SIGNING_KEY", "dev-secret-key-change-in-production")

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, apiResponse{Message: "ok"})
	})
	mux.HandleFunc("/api/profile", func(w http.ResponseWriter, r *http.Request) {
		receipt := bearerToken(r.Header.Get("Authorization"))
		if receipt == "" {
			writeJSON(w, http.StatusUnauthorized, apiResponse{Message: "missing verification receipt"})
			return
		}
		claims, err := parseAndVerify(receipt, []byte(signingKey))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, apiResponse{Message: "receipt rejected", Warning: err.Error(), Claims: claims})
			return
		}

		writeJSON(w, http.StatusOK, apiResponse{
			Message: fmt.Sprintf("welcome, subject %v", claims["sub"]),
			Claims:  claims,
			Warning: "issuer and audience not checked; receipt accepted from any verifier",
		})
	})
	mux.HandleFunc("/api/debug/claims", func(w http.ResponseWriter, r *http.Request) {
		receipt := bearerToken(r.Header.Get("Authorization"))
		if receipt == "" {
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: "provide Authorization: Bearer <receipt>"})
			return
		}
		claims, err := parseAndVerify(receipt, []byte(signingKey))
		if err != nil {
			writeJSON(w, http.StatusOK, apiResponse{Message: "parsed with warnings", Claims: claims, Warning: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Message: "claims decoded", Claims: claims, Warning: "signature and expiry checked; issuer and audience ignored"})
	})

	addr := fmt.Sprintf(":%s", port)
	log.Printf("toy relying party listening on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

func parseAndVerify(receipt string, key []byte) (map[string]interface{}, error) {
	claims := map[string]interface{}{}
	parts := strings.Split(receipt, ".")
	if len(parts) != 3 {
		return claims, errors.New("invalid receipt format")
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err == nil {
		_ = json.Unmarshal(payloadBytes, &claims)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(parts[0] + "." + parts[1]))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return claims, errors.New("signature mismatch")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return claims, errors.New("receipt has no expiry")
	}
	if time.Now().After(time.Unix(int64(exp), 0)) {
		return claims, errors.New("receipt expired")
	}

	return claims, nil
}

func writeJSON(w http.ResponseWriter, status int, payload apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func bearerToken(value string) string {
	if value == "" {
		return ""
	}
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
