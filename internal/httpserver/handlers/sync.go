package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bitscreen/internal/logger"
	"github.com/MrSnakeDoc/bitscreen/internal/utils"
)

type syncResponse struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

// Sync queues a manual import sync cycle.
func Sync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.SyncTrigger <- struct{}{}:
			d.Logger.Info("manual sync triggered via endpoint",
				logger.String("remote_ip", utils.ClientIP(r, d.TrustProxy)))
			writeJSON(w, http.StatusAccepted, syncResponse{Triggered: true, Message: "sync triggered"})
		default:
			d.Logger.Warn("sync already queued",
				logger.String("remote_ip", utils.ClientIP(r, d.TrustProxy)))
			writeJSON(w, http.StatusTooManyRequests, syncResponse{Message: "sync already queued, please wait"})
		}
	}
}
