package idlink

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Facade is the boundary surface between the wire and the protocols. It
// resolves the calling principal, translates requests into protocol calls,
// and renders typed outcomes as JSON with a status code per error kind.
type Facade struct {
	Linking      *Linking
	Verification *Verification

	// Resolver answers which principal is calling
	Resolver *PrincipalResolver

	// Principals is used to look up the caller's email for code delivery and
	// to flag the email verified after a successful confirm - the one step
	// the verification protocol deliberately leaves to its caller.
	Principals PrincipalStore

	// Delivery carries cleartext tokens/codes out of band. Optional; when
	// nil the facade returns them in the response body only.
	Delivery Delivery

	Logger *slog.Logger
}

// Routes registers the facade's endpoints on a router
func (f *Facade) Routes(r *mux.Router) {
	r.HandleFunc("/auth/links/token", f.handleIssueLinkToken).Methods(http.MethodPost)
	r.HandleFunc("/auth/links/confirm", f.handleConfirmLink).Methods(http.MethodPost)
	r.HandleFunc("/auth/links", f.handleListIdentities).Methods(http.MethodGet)
	r.HandleFunc("/auth/links/{provider}", f.handleUnlink).Methods(http.MethodDelete)
	r.HandleFunc("/auth/email/code", f.handleIssueCode).Methods(http.MethodPost)
	r.HandleFunc("/auth/email/confirm", f.handleConfirmCode).Methods(http.MethodPost)
}

// Handler returns a standalone handler with all routes registered
func (f *Facade) Handler() http.Handler {
	r := mux.NewRouter()
	f.Routes(r)
	return r
}

func (f *Facade) handleIssueLinkToken(w http.ResponseWriter, r *http.Request) {
	principalID := f.principal(w, r)
	if principalID == "" {
		return
	}

	var req struct {
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.writeError(w, NewFlowError(ErrKindInvalidInput, "invalid request body"))
		return
	}
	provider, err := ParseProvider(req.Provider)
	if err != nil {
		f.writeError(w, err)
		return
	}

	issued, err := f.Linking.IssueLinkToken(principalID, provider)
	if err != nil {
		f.writeError(w, err)
		return
	}

	if f.Delivery != nil {
		if err := f.Delivery.DeliverLinkToken(principalID, provider, issued.StartParam); err != nil {
			f.logger().Warn("link token delivery failed", "provider", provider, "error", err)
		}
	}

	f.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"token":       issued.Token,
		"start_param": issued.StartParam,
		"expires_at":  issued.ExpiresAt,
	})
}

func (f *Facade) handleConfirmLink(w http.ResponseWriter, r *http.Request) {
	principalID := f.principal(w, r)
	if principalID == "" {
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.writeError(w, NewFlowError(ErrKindInvalidInput, "invalid request body"))
		return
	}

	result, err := f.Linking.ConfirmLink(principalID, req.Token)
	if err != nil {
		f.writeError(w, err)
		return
	}
	f.writeJSON(w, http.StatusOK, map[string]any{
		"status":   string(result.Status),
		"provider": string(result.Provider),
	})
}

func (f *Facade) handleListIdentities(w http.ResponseWriter, r *http.Request) {
	principalID := f.principal(w, r)
	if principalID == "" {
		return
	}

	identities, err := f.Linking.ListIdentities(principalID)
	if err != nil {
		f.writeError(w, err)
		return
	}
	f.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"identities": identities,
	})
}

func (f *Facade) handleUnlink(w http.ResponseWriter, r *http.Request) {
	principalID := f.principal(w, r)
	if principalID == "" {
		return
	}

	provider, err := ParseProvider(mux.Vars(r)["provider"])
	if err != nil {
		f.writeError(w, err)
		return
	}

	if err := f.Linking.Unlink(principalID, provider); err != nil {
		f.writeError(w, err)
		return
	}
	f.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (f *Facade) handleIssueCode(w http.ResponseWriter, r *http.Request) {
	principalID := f.principal(w, r)
	if principalID == "" {
		return
	}

	principal, err := f.Principals.GetPrincipal(principalID)
	if err != nil {
		f.writeError(w, err)
		return
	}
	if principal.Email == "" || IsPlaceholderEmail(principal.Email) {
		f.writeError(w, NewFlowError(ErrKindForbidden, "account has no email address to verify"))
		return
	}
	if principal.Verified() {
		f.writeError(w, NewFlowError(ErrKindEmailTaken, "email address already verified"))
		return
	}

	code, err := f.Verification.IssueCode(principalID)
	if err != nil {
		f.writeError(w, err)
		return
	}

	if f.Delivery != nil {
		if err := f.Delivery.DeliverVerificationCode(principal.Email, code); err != nil {
			f.logger().Warn("verification code delivery failed", "error", err)
		}
	}
	f.writeJSON(w, http.StatusOK, map[string]any{"status": "sent"})
}

func (f *Facade) handleConfirmCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.writeError(w, NewFlowError(ErrKindInvalidInput, "invalid request body"))
		return
	}

	verified, err := f.Verification.ConfirmCode(req.Email, req.Code)
	if err != nil {
		f.writeError(w, err)
		return
	}

	if verified {
		// The protocol only proves the code; flagging is our step
		principal, err := f.Principals.GetPrincipalByEmail(NormalizeEmail(req.Email))
		if err != nil {
			f.writeError(w, err)
			return
		}
		if err := f.Principals.MarkEmailVerified(principal.ID, time.Now()); err != nil {
			f.writeError(w, err)
			return
		}
	}
	f.writeJSON(w, http.StatusOK, map[string]any{"status": "verified"})
}

// principal resolves the caller, writing a 401 outcome when there is none
func (f *Facade) principal(w http.ResponseWriter, r *http.Request) string {
	principalID := f.Resolver.PrincipalID(r)
	if principalID == "" {
		f.writeError(w, NewFlowError(ErrKindUnauthorized, "not signed in"))
	}
	return principalID
}

// statusFor maps error kinds to HTTP statuses. The mapping is a convenience
// of this facade, not part of the protocol contract.
func statusFor(kind ErrorKind) int {
	switch kind {
	case ErrKindInvalidInput:
		return http.StatusBadRequest
	case ErrKindUnauthorized:
		return http.StatusUnauthorized
	case ErrKindForbidden:
		return http.StatusForbidden
	case ErrKindInvalidRequestToken, ErrKindInvalidOrExpiredToken:
		return http.StatusNotFound
	case ErrKindRequestExpired, ErrKindRequestUsed:
		return http.StatusGone
	case ErrKindIdentityAlreadyLinked, ErrKindWouldLockOut, ErrKindEmailTaken:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (f *Facade) writeError(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	if kind == ErrKindInternal {
		f.logger().Error("internal error", "error", err)
	}
	f.writeJSON(w, statusFor(kind), map[string]any{
		"status": "error",
		"reason": string(kind),
	})
}

func (f *Facade) writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		f.logger().Warn("failed to encode response", "error", err)
	}
}

func (f *Facade) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}
