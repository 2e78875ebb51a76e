package http

import (
	"net/http"
	"strconv"
	"time"

	"chapter-quiz-service/internal/app"
	"chapter-quiz-service/internal/domain"
	"chapter-quiz-service/internal/logger"
	"github.com/gorilla/websocket"
)

// Services bundles the use cases the HTTP layer exposes.
type Services struct {
	Auth      *app.AuthService
	Authoring *app.AuthoringService
	Delivery  *app.DeliveryService
	Scoring   *app.ScoringService
	Ranking   *app.RankingService
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Handler serves the JSON API and the live ranking websocket.
type Handler struct {
	svc      Services
	cookie   CookieConfig
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewHandler(svc Services, cookie CookieConfig, log *logger.Logger) *Handler {
	if cookie.Name == "" {
		cookie.Name = "quiz_session"
	}
	return &Handler{
		svc:    svc,
		cookie: cookie,
		log:    log.With("component", "http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes registers every endpoint on a fresh mux wrapped in request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /login", h.handleLoginStatus)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.HandleFunc("POST /logout", h.handleLogout)

	mux.HandleFunc("GET /chapters", h.requireSession(h.handleListChapters))
	mux.HandleFunc("POST /chapters/new", h.requireSession(h.handleCreateChapter))
	mux.HandleFunc("GET /chapters/{id}/quiz", h.requireSession(h.handleQuiz))
	mux.HandleFunc("POST /chapters/{id}/quiz", h.requireSession(h.handleSubmit))
	mux.HandleFunc("GET /chapters/{id}/ranking", h.requireSession(h.handleRanking))
	mux.HandleFunc("GET /chapters/{id}/ranking/live", h.requireSession(h.handleRankingLive))
	return h.logRequests(mux)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessionIdentity(r); err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/chapters", http.StatusSeeOther)
}

func (h *Handler) handleLoginStatus(w http.ResponseWriter, r *http.Request) {
	identity, err := h.sessionIdentity(r)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"loggedIn": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"loggedIn": true, "user": identity})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed form", MessageKey: domain.MessageLoginRequired})
		return
	}
	userID := r.PostForm.Get("userid")
	_, token, err := h.svc.Auth.Login(r.Context(), userID, r.PostForm.Get("password"))
	if err != nil {
		h.writeServiceError(w, r, err, map[string]string{"userid": userID})
		return
	}

	http.SetCookie(w, h.sessionCookie(token))
	http.Redirect(w, r, "/chapters", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookie.Name); err == nil {
		if err := h.svc.Auth.Logout(r.Context(), c.Value); err != nil {
			h.writeServiceError(w, r, err, nil)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) handleListChapters(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	chapters, err := h.svc.Delivery.Chapters(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": identity, "chapters": chapters})
}

func (h *Handler) handleCreateChapter(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed form", MessageKey: domain.MessageMissingFields})
		return
	}
	draft := ParseChapterDraft(r.PostForm)
	if _, err := h.svc.Authoring.CreateChapter(r.Context(), identity, draft); err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	http.Redirect(w, r, "/chapters", http.StatusSeeOther)
}

func (h *Handler) handleQuiz(w http.ResponseWriter, r *http.Request) {
	chapterID, err := chapterIDFromPath(r)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	quiz, err := h.svc.Delivery.Quiz(r.Context(), chapterID)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	chapterID, err := chapterIDFromPath(r)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed form", MessageKey: domain.MessageBadRequest})
		return
	}
	if err := h.svc.Scoring.Submit(r.Context(), chapterID, identity, ParseAnswerSheet(r.PostForm)); err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	http.Redirect(w, r, "/chapters/"+strconv.FormatInt(chapterID, 10)+"/ranking", http.StatusSeeOther)
}

func (h *Handler) handleRanking(w http.ResponseWriter, r *http.Request) {
	chapterID, err := chapterIDFromPath(r)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	ranking, err := h.svc.Ranking.Ranking(r.Context(), chapterID)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

func (h *Handler) sessionCookie(token string) *http.Cookie {
	c := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if h.cookie.MaxAge > 0 {
		c.MaxAge = int(h.cookie.MaxAge / time.Second)
	}
	return c
}

// chapterIDFromPath treats malformed ids like unknown chapters.
func chapterIDFromPath(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.NotFoundError{Resource: "chapter", ID: 0}
	}
	return id, nil
}
