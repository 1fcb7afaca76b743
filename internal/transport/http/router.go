package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"e2ee-chat/internal/domain"
	"e2ee-chat/internal/dto"
	obsmw "e2ee-chat/internal/observability/middleware"
	"e2ee-chat/internal/service"
	"e2ee-chat/internal/store"
	"e2ee-chat/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	CORSOrigins []string
	SessionTTL  time.Duration
}

func NewRouter(cfg Config, auth *service.AuthService, wsHandler *ws.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(obsmw.WithRequestID)
	r.Use(obsmw.WithMetrics)
	r.Use(httprate.LimitByIP(300, 1*time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())

	h := &authHandler{auth: auth, sessionTTL: cfg.SessionTTL}
	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", h.signup)
		r.Post("/login", h.login)
		r.Post("/check_username", h.checkUsername)
		r.Post("/username_to_id", h.usernameToID)
		r.Get("/authenticate", h.authenticate)
	})

	r.Get("/ws", wsHandler.HandleWS)

	return r
}

type authHandler struct {
	auth       *service.AuthService
	sessionTTL time.Duration
}

func (h *authHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.APIResponse{Success: false, Message: "bad request"})
		return
	}
	usr, token, err := h.auth.Signup(r.Context(), strings.TrimSpace(req.Username), req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		status := http.StatusUnauthorized
		msg := "Signup failed"
		if errors.Is(err, domain.ErrUsernameTaken) {
			status = http.StatusConflict
			msg = "Username not available"
		}
		slog.Warn("signup failed", "error", err, "request_id", obsmw.RequestIDFromContext(r.Context()))
		writeJSON(w, status, dto.APIResponse{Success: false, Message: msg})
		return
	}
	setSessionCookie(w, token, h.sessionTTL)
	slog.Info("user created", "user_id", usr.ID, "request_id", obsmw.RequestIDFromContext(r.Context()))
	writeJSON(w, http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "User created successfully",
		Data:    dto.IdentityData{UserID: usr.ID, Username: usr.Username},
	})
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.APIResponse{Success: false, Message: "bad request"})
		return
	}
	usr, token, err := h.auth.Login(r.Context(), strings.TrimSpace(req.Username), req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		slog.Warn("login failed", "error", err, "request_id", obsmw.RequestIDFromContext(r.Context()))
		writeJSON(w, http.StatusUnauthorized, dto.APIResponse{Success: false, Message: "Login failed"})
		return
	}
	setSessionCookie(w, token, h.sessionTTL)
	writeJSON(w, http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Login successful",
		Data:    dto.IdentityData{UserID: usr.ID, Username: usr.Username},
	})
}

func (h *authHandler) checkUsername(w http.ResponseWriter, r *http.Request) {
	var req dto.UsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.APIResponse{Success: false, Message: "bad request"})
		return
	}
	available, err := h.auth.UsernameAvailable(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.APIResponse{Success: false, Message: "Error occurred, please try again later"})
		return
	}
	if !available {
		writeJSON(w, http.StatusConflict, dto.APIResponse{Success: false, Message: "Username not available"})
		return
	}
	writeJSON(w, http.StatusOK, dto.APIResponse{Success: true, Message: "Username is available"})
}

func (h *authHandler) usernameToID(w http.ResponseWriter, r *http.Request) {
	var req dto.UsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.APIResponse{Success: false, Message: "bad request"})
		return
	}
	id, err := h.auth.UserIDForUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.APIResponse{Success: false, Message: "User not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.APIResponse{Success: false, Message: "Error occurred, please try again later"})
		return
	}
	writeJSON(w, http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Username to id conversion successful",
		Data:    dto.IdentityData{UserID: id},
	})
}

func (h *authHandler) authenticate(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(ws.SessionCookie)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, dto.APIResponse{Success: false, Message: "Authentication Failed"})
		return
	}
	usr, err := h.auth.ResolveSession(r.Context(), cookie.Value)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, dto.APIResponse{Success: false, Message: "Authentication Failed"})
		return
	}
	writeJSON(w, http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Authentication successful",
		Data:    dto.IdentityData{UserID: usr.ID, Username: usr.Username},
	})
}

// The browser client runs on another origin, so the cookie must survive
// cross-site requests.
func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     ws.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
		Secure:   true,
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
