// Demo host application wiring the idlink facade onto a file-backed store.
// It adds two demo-only endpoints on top of the real API:
//
//	POST /demo/signin?provider=telegram&user=42
//	    simulates a provider sign-in and returns a bearer token for the
//	    resolved principal
//	POST /demo/claim?provider=telegram&user=42&token=<link token>
//	    simulates the provider bot claiming a link token
//
// Everything else is the facade's real surface under /auth/.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	il "github.com/panyam/idlink"
	"github.com/panyam/idlink/stores"
)

var (
	addr       = flag.String("addr", ":8080", "Address to listen on")
	storageDir = flag.String("storage", "/tmp/idlink-demo", "Directory for the file-backed store")
	jwtSecret  = flag.String("jwt-secret", "demo-secret-do-not-use", "HMAC secret for demo bearer tokens")
)

func main() {
	flag.Parse()

	store := stores.NewFSLinkStore(*storageDir)

	linking := &il.Linking{Store: store}
	verification := &il.Verification{Store: store}
	signin := &il.SignIn{
		Store: store,
		CreatePrincipal: func(provider il.Provider, providerUserID string, profile map[string]any) (string, error) {
			id := fmt.Sprintf("%s-%s", provider, providerUserID)
			err := store.SavePrincipal(&il.Principal{
				ID:    id,
				Email: fmt.Sprintf("%s@%s.local", providerUserID, provider),
				Role:  il.RoleUser,
			})
			return id, err
		},
	}

	facade := &il.Facade{
		Linking:      linking,
		Verification: verification,
		Principals:   store,
		Delivery:     &il.ConsoleDelivery{},
		Resolver:     &il.PrincipalResolver{JWTSecretKey: *jwtSecret},
	}

	r := mux.NewRouter()
	facade.Routes(r)

	r.HandleFunc("/demo/signin", func(w http.ResponseWriter, req *http.Request) {
		provider, err := il.ParseProvider(req.URL.Query().Get("provider"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		principalID, err := signin.EnsureProviderSignIn(provider, req.URL.Query().Get("user"), nil, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		token, err := mintBearer(*jwtSecret, principalID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"principal_id": principalID, "bearer_token": token})
	}).Methods(http.MethodPost)

	r.HandleFunc("/demo/claim", func(w http.ResponseWriter, req *http.Request) {
		provider, err := il.ParseProvider(req.URL.Query().Get("provider"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		claimed, err := linking.ClaimLinkToken(provider, req.URL.Query().Get("user"), req.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"token": claimed.Token, "expires_at": claimed.ExpiresAt})
	}).Methods(http.MethodPost)

	log.Printf("Demo host app listening on %s (storage: %s)", *addr, *storageDir)
	log.Fatal(http.ListenAndServe(*addr, r))
}

func mintBearer(secret, principalID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": principalID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString([]byte(secret))
}

func writeJSON(w http.ResponseWriter, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Warning: failed to encode response: %v", err)
	}
}
