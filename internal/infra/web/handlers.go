package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/wizard"
)

type sessionResponse struct {
	ID        string    `json:"id"`
	TgID      int64     `json:"tg_id"`
	Wizard    string    `json:"wizard"`
	Step      int       `json:"step"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func tgIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tgID"), 10, 64)
	return id, err == nil && id > 0
}

// sessionGetHandler shows where a user is inside a wizard. State stays private.
func sessionGetHandler(sessions SessionAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tgID, ok := tgIDParam(r)
		if !ok {
			http.Error(w, "Invalid telegram id", http.StatusBadRequest)
			return
		}
		sess, err := sessions.Session(r.Context(), tgID)
		if errors.Is(err, wizard.ErrNoSession) {
			http.Error(w, "No active session", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Failed to load session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{
			ID:        sess.ID,
			TgID:      sess.UserID,
			Wizard:    sess.WizardID,
			Step:      sess.StepIndex,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
		})
	}
}

// sessionDeleteHandler aborts a stuck wizard without notifying the user.
func sessionDeleteHandler(sessions SessionAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tgID, ok := tgIDParam(r)
		if !ok {
			http.Error(w, "Invalid telegram id", http.StatusBadRequest)
			return
		}
		err := sessions.Abort(r.Context(), tgID)
		if errors.Is(err, wizard.ErrNoSession) {
			http.Error(w, "No active session", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Failed to abort session", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func orderGetHandler(orders OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := orders.FindOrder(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Failed to load order", http.StatusInternalServerError)
			return
		}
		// The preimage never leaves the bot.
		out := *o
		out.Secret = ""
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
