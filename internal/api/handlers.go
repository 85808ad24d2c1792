package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/maxischmaxi/code-preview-server/internal/events"
	"github.com/maxischmaxi/code-preview-server/internal/models"
	"github.com/maxischmaxi/code-preview-server/internal/repositories"
	"github.com/maxischmaxi/code-preview-server/internal/services"
	"github.com/maxischmaxi/code-preview-server/internal/session"
	"github.com/maxischmaxi/code-preview-server/internal/utils"
)

type Deps struct {
	Logger    *zap.Logger
	Router    *events.Router
	Sessions  *services.SessionService
	Templates repositories.TemplateRepository
	// CronSecret guards POST /reset. An empty secret rejects every reset call.
	CronSecret     string
	AllowedOrigins []string
}

type Handlers struct {
	log        *zap.Logger
	router     *events.Router
	registry   *session.Registry
	sessions   *services.SessionService
	templates  repositories.TemplateRepository
	cronSecret string
	validate   *validator.Validate
	upgrader   websocket.Upgrader
}

func NewHandlers(d Deps) *Handlers {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	h := &Handlers{
		log:        d.Logger,
		router:     d.Router,
		registry:   d.Router.Registry(),
		sessions:   d.Sessions,
		templates:  d.Templates,
		cronSecret: d.CronSecret,
		validate:   validator.New(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(d.AllowedOrigins),
	}
	return h
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handlers) Root(w http.ResponseWriter, _ *http.Request) {
	utils.JSON(w, http.StatusOK, models.StatusResponse{Status: "OK"})
}

func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.templates.List(r.Context())
	if err != nil {
		h.storeError(w, "list templates", err)
		return
	}
	if list == nil {
		list = []models.Template{}
	}
	utils.JSON(w, http.StatusOK, list)
}

func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTemplateRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.templates.Create(r.Context(), &models.Template{
		Title:    req.Title,
		Code:     req.Code,
		Solution: req.Solution,
		Language: req.Language,
	})
	if err != nil {
		h.storeError(w, "create template", err)
		return
	}
	utils.JSON(w, http.StatusCreated, created)
}

func (h *Handlers) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateTemplateRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.templates.Get(r.Context(), req.ID)
	if err != nil {
		h.storeError(w, "get template", err)
		return
	}
	t.Title = req.Title
	t.Code = req.Code
	t.Solution = req.Solution
	t.Language = req.Language
	if err := h.templates.Update(r.Context(), t); err != nil {
		h.storeError(w, "update template", err)
		return
	}
	utils.JSON(w, http.StatusOK, t)
}

// CreateSession creates a session owned by the given user id and refreshes
// the nickname of that user's live connection, if any.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.registry.SetNicknameForUser(req.ID, req.Nickname)

	created, err := h.sessions.Create(r.Context(), req.ID)
	if err != nil {
		h.storeError(w, "create session", err)
		return
	}
	utils.JSON(w, http.StatusCreated, created)
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.storeError(w, "get session", err)
		return
	}
	utils.JSON(w, http.StatusOK, s)
}

func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	if !h.authorizedCron(r) {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	n, err := h.sessions.ResetAll(r.Context())
	if err != nil {
		h.storeError(w, "reset sessions", err)
		return
	}
	utils.JSON(w, http.StatusOK, models.ResetResponse{Status: "OK", Deleted: n})
}

func (h *Handlers) authorizedCron(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		utils.JSONError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func (h *Handlers) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, repositories.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "not found")
		return
	}
	h.log.Error(op+" failed", zap.Error(err))
	utils.JSONError(w, http.StatusInternalServerError, "internal server error")
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" is "+fe.Tag())
	}
	return strings.Join(fields, ", ")
}
