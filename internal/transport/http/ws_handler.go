package http

import (
	"net/http"
	"time"

	"chapter-quiz-service/internal/domain"
)

const writeWait = 10 * time.Second

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// handleRankingLive upgrades to a websocket and streams ranking snapshots for
// the chapter until either side goes away. Clients are not expected to send.
func (h *Handler) handleRankingLive(w http.ResponseWriter, r *http.Request) {
	chapterID, err := chapterIDFromPath(r)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}

	// Subscribe before upgrading so unknown chapters still get a plain 404.
	updates, cancel, err := h.svc.Ranking.Subscribe(r.Context(), chapterID)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "chapter_id", chapterID, "error", err)
		return
	}
	defer conn.Close()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(outboundMessage[domain.Ranking]{Type: "ranking", Payload: update}); err != nil {
				h.log.Debug("ws write failed", "chapter_id", chapterID, "error", err)
				return
			}
		case <-readerDone:
			return
		}
	}
}
