package web

import (
	"encoding/json"
	"net/http"

	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/usecase"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// statsHandler returns an http.HandlerFunc that serves board statistics.
func statsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := statsUC.Totals(r.Context())
		if err != nil {
			http.Error(w, "Failed to get totals", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

type checkExpiredResponse struct {
	Mode    string `json:"mode"`
	TaskID  string `json:"task_id,omitempty"`
	Expired *int   `json:"expired,omitempty"`
}

func (s *Server) checkExpiredHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.queue != nil {
		task := model.NewTask(model.TaskCheckExpired, s.now())
		if err := s.queue.Enqueue(ctx, task); err != nil {
			s.log.Error().Err(err).Msg("enqueue check_expired failed")
			http.Error(w, "Failed to enqueue task", http.StatusInternalServerError)
			return
		}
		s.log.Info().Str("task_id", task.ID).Msg("check_expired enqueued by admin")
		writeJSON(w, http.StatusAccepted, checkExpiredResponse{Mode: "queue", TaskID: task.ID})
		return
	}

	n, err := s.sweeper.ExpireStale(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("admin expiry sweep failed")
		http.Error(w, "Expiry sweep failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, checkExpiredResponse{Mode: "inline", Expired: &n})
}
