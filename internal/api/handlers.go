package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ignite/relaymail/internal/account"
	"github.com/ignite/relaymail/internal/mail"
	"github.com/ignite/relaymail/internal/pkg/logger"
	"github.com/ignite/relaymail/internal/queue"
)

// Handlers provides the HTTP handlers for the relay API. All dependencies
// are injected at construction; handlers hold no global state.
type Handlers struct {
	store    *account.Store
	dispatch *queue.Queue
	mailFrom string
}

// NewHandlers creates the relay API handlers.
func NewHandlers(store *account.Store, dispatch *queue.Queue, mailFrom string) *Handlers {
	return &Handlers{
		store:    store,
		dispatch: dispatch,
		mailFrom: mailFrom,
	}
}

type accountForm struct {
	Email string `json:"email"`
}

type messageForm struct {
	Token     string `json:"token"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Subject   string `json:"subject"`
	Email     string `json:"email"`
	Body      string `json:"body"`
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondFieldErrors(w http.ResponseWriter, errs FieldErrors) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
}

func respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"queue_pending": h.dispatch.Len(),
		"queue_cap":     h.dispatch.Cap(),
	})
}

// HandleCreateAccount issues a token for an email address. Issuance is
// idempotent: an existing account is returned unchanged.
func (h *Handlers) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var form accountForm
	if !decodeJSON(w, r, &form) {
		return
	}
	if errs := validateAccountForm(&form); len(errs) > 0 {
		respondFieldErrors(w, errs)
		return
	}

	acct, err := h.store.GetOrCreate(r.Context(), form.Email)
	if err != nil {
		logger.Error("create account failed", "email", form.Email, "error", err.Error())
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}

	respondJSON(w, http.StatusOK, acct)
}

// HandleDeleteAccount removes the account for an email address.
func (h *Handlers) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	var form accountForm
	if !decodeJSON(w, r, &form) {
		return
	}
	if errs := validateAccountForm(&form); len(errs) > 0 {
		respondFieldErrors(w, errs)
		return
	}

	err := h.store.DeleteByEmail(r.Context(), form.Email)
	if errors.Is(err, account.ErrNotFound) {
		respondText(w, http.StatusNotFound, "Email not found")
		return
	}
	if err != nil {
		logger.Error("delete account failed", "email", form.Email, "error", err.Error())
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}

	respondText(w, http.StatusOK, "DELETED")
}

// HandleSubmitMessage admits a message for relay: validates the payload,
// resolves the token, bumps the usage counter and enqueues the envelope.
// The 200 response means "accepted for delivery", not "delivered"; the
// caller never waits on, or learns about, the actual transport outcome.
func (h *Handlers) HandleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	var form messageForm
	if !decodeJSON(w, r, &form) {
		return
	}
	if errs := validateMessageForm(&form); len(errs) > 0 {
		respondFieldErrors(w, errs)
		return
	}

	acct, err := h.store.FindByToken(r.Context(), form.Token)
	if errors.Is(err, account.ErrNotFound) {
		// Deliberately indistinguishable from a deleted account: a sender
		// learns nothing about the address behind a token.
		respondText(w, http.StatusNotFound, "Invalid token")
		return
	}
	if err != nil {
		logger.Error("token lookup failed", "error", err.Error())
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}

	if err := h.store.RecordSubmission(r.Context(), acct.Token); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			// Account deleted between lookup and update
			respondText(w, http.StatusNotFound, "Invalid token")
			return
		}
		logger.Error("submission accounting failed", "error", err.Error())
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}

	env := mail.NewEnvelope(h.mailFrom, acct.Email, form.Email,
		form.FirstName, form.LastName, form.Subject, form.Body)

	// Backpressure: a full queue blocks here until a slot frees, throttling
	// admission against the transport's throughput.
	if err := h.dispatch.Enqueue(r.Context(), env); err != nil {
		logger.Error("enqueue failed", "message_id", env.ID.String(), "error", err.Error())
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "delivery queue unavailable"})
		return
	}

	logger.Info("message admitted",
		"message_id", env.ID.String(),
		"to", acct.Email,
		"reply_to", form.Email)
	respondText(w, http.StatusOK, "OK")
}
