package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler consumes one inbound unit.
type Handler func(ctx context.Context, in Inbound)

// Routes mounts the webhook endpoints. Updates are handled synchronously
// so a slow consumer applies backpressure to the messenger bridge.
func Routes(r chi.Router, h Handler) {
	r.Post("/updates", func(w http.ResponseWriter, req *http.Request) {
		var in Inbound
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			slog.Warn("malformed update", "error", err)
			http.Error(w, "malformed update", http.StatusBadRequest)
			return
		}
		if in.ChatID == 0 {
			http.Error(w, "missing chat_id", http.StatusBadRequest)
			return
		}
		h(req.Context(), in)
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
