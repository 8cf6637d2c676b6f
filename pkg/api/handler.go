package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/4rdii/transaction-debugger-agent/pkg/agent"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/debugger"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 8 << 20

var networkIDPattern = regexp.MustCompile(`^\d+$`)

// Service is the debugger surface the handler exposes.
type Service interface {
	Explain(ctx context.Context, txHash, networkID string, observer agent.Observer) (*analysis.Result, error)
	Ask(ctx context.Context, question string, result *analysis.Result) (string, error)
}

type Handler struct {
	log      logrus.FieldLogger
	service  Service
	validate *validator.Validate
	upgrader websocket.Upgrader
}

func NewHandler(log logrus.FieldLogger, service Service) *Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	_ = validate.RegisterValidation("networkid", func(fl validator.FieldLevel) bool {
		return networkIDPattern.MatchString(fl.Field().String())
	})

	return &Handler{
		log:      log.WithField("component", "api"),
		service:  service,
		validate: validate,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/debug", h.debug)
	mux.HandleFunc("POST /api/v1/qa", h.ask)
	mux.HandleFunc("GET /api/v1/debug/stream", h.stream)
}

type DebugRequest struct {
	TxHash    string `json:"txHash" validate:"required,startswith=0x,len=66,hexadecimal"`
	NetworkID string `json:"networkId" validate:"required,networkid"`
}

type DebugResponse struct {
	Result *analysis.Result `json:"result"`
}

type QARequest struct {
	Question string           `json:"question" validate:"min=3,max=500"`
	Context  *analysis.Result `json:"context" validate:"required"`
}

type QAResponse struct {
	Answer string `json:"answer"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) debug(w http.ResponseWriter, r *http.Request) {
	var req DebugRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Explain(r.Context(), req.TxHash, req.NetworkID, nil)
	if err != nil {
		h.writeServiceError(w, err)

		return
	}

	h.writeJSON(w, http.StatusOK, DebugResponse{Result: result})
}

func (h *Handler) ask(w http.ResponseWriter, r *http.Request) {
	var req QARequest
	if !h.decode(w, r, &req) {
		return
	}

	answer, err := h.service.Ask(r.Context(), req.Question, req.Context)
	if err != nil {
		h.writeServiceError(w, err)

		return
	}

	h.writeJSON(w, http.StatusOK, QAResponse{Answer: answer})
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())

		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", validationDetails(err))

		return false
	}

	return true
}

func validationDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	details := make([]string, 0, len(verrs))

	for _, fe := range verrs {
		details = append(details, fmt.Sprintf("%s: failed %s validation", fe.Field(), fe.Tag()))
	}

	return strings.Join(details, "; ")
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var upstream *debugger.UpstreamError

	switch {
	case errors.Is(err, debugger.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.As(err, &upstream):
		h.log.WithError(err).WithField("service", upstream.Service).Warn("Upstream request failed")
		h.writeError(w, http.StatusBadGateway, upstream.Err.Error(), upstream.Service)
	default:
		h.log.WithError(err).Error("Request failed")
		h.writeError(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.WithError(err).Error("failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, details string) {
	h.writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}
