package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/taplab/salesdash/internal/config"
	"github.com/taplab/salesdash/internal/enum"
	"github.com/taplab/salesdash/internal/lightspeed"
	"github.com/taplab/salesdash/internal/report"
	"github.com/taplab/salesdash/internal/service"
)

// SalesService defines the service methods needed by the sales handler.
// Satisfied by *service.SalesService; narrow interface for testability.
type SalesService interface {
	Sales(ctx context.Context, q report.Query, preferCache bool) (*report.Payload, error)
	Period(ctx context.Context, periodID string, q report.Query) (*report.Payload, error)
	Demo(q report.Query) *report.Payload
	Env() map[string]bool
}

// SalesHandler serves the POS sales endpoint.
type SalesHandler struct {
	svc    SalesService
	loc    *time.Location
	logger logrus.FieldLogger
}

// NewSalesHandler creates a new SalesHandler.
func NewSalesHandler(svc SalesService, loc *time.Location, logger logrus.FieldLogger) *SalesHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SalesHandler{svc: svc, loc: loc, logger: logger.WithField("module", "handler")}
}

// RegisterRoutes mounts the endpoint under the paths the dashboards call.
// All methods are routed here so that non-GET requests get a JSON 405.
func (h *SalesHandler) RegisterRoutes(r chi.Router) {
	r.HandleFunc("/api/lightspeed", h.Serve)
	r.HandleFunc("/.netlify/functions/lightspeed", h.Serve)
	r.HandleFunc("/functions/lightspeed", h.Serve)
}

type pingResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
}

// Serve resolves the request mode and answers it.
func (h *SalesHandler) Serve(w http.ResponseWriter, r *http.Request) {
	req, reqErr := ResolveRequest(r.Method, r.URL.Query(), time.Now().In(h.loc))
	if reqErr != nil {
		writeError(w, reqErr.Status, reqErr.Code, reqErr.Message, nil)
		return
	}

	ctx := r.Context()
	if req.Operator != "" {
		ctx = lightspeed.WithOperator(ctx, req.Operator)
	}

	switch req.Mode {
	case enum.ModePing:
		writeJSON(w, http.StatusOK, pingResponse{OK: true, Service: "lightspeed-proxy"})
	case enum.ModeEnv:
		writeJSON(w, http.StatusOK, h.svc.Env())
	case enum.ModePeriod:
		p, err := h.svc.Period(ctx, req.PeriodID, req.Query)
		h.respond(w, req, p, err)
	case enum.ModeDemo:
		writeJSON(w, http.StatusOK, h.svc.Demo(req.Query))
	case enum.ModeSales:
		p, err := h.svc.Sales(ctx, req.Query, req.PreferCache)
		h.respond(w, req, p, err)
	default:
		writeError(w, http.StatusInternalServerError, enum.ErrCodeUnexpected, "unknown mode "+req.Mode, nil)
	}
}

func (h *SalesHandler) respond(w http.ResponseWriter, req Request, p *report.Payload, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, p)
		return
	}

	var upstream *lightspeed.UpstreamError
	switch {
	case errors.Is(err, service.ErrMissingConfig), errors.Is(err, lightspeed.ErrNoCredentials):
		writeError(w, http.StatusBadRequest, enum.ErrCodeConfigMissing, err.Error(), nil)
	case errors.Is(err, service.ErrMissingPeriod):
		writeError(w, http.StatusBadRequest, enum.ErrCodeMissingPeriod, err.Error(), nil)
	case errors.As(err, &upstream):
		status := upstream.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		config.LogError(h.logger, "handler", "respond", req.Query, err)
		writeError(w, status, enum.ErrCodeUpstream, err.Error(), map[string]any{"details": upstreamDetails(upstream.Body)})
	case upstreamFailure(err):
		config.LogError(h.logger, "handler", "respond", req.Query, err)
		writeError(w, http.StatusBadGateway, enum.ErrCodeUpstream, err.Error(), nil)
	default:
		config.LogError(h.logger, "handler", "respond", req.Query, err)
		writeError(w, http.StatusInternalServerError, enum.ErrCodeUnexpected, err.Error(), nil)
	}
}

// upstreamFailure reports whether err came from reaching or reading the POS
// API: transport errors, timeouts and undecodable bodies.
func upstreamFailure(err error) bool {
	var (
		netErr    net.Error
		urlErr    *url.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	return errors.As(err, &netErr) ||
		errors.As(err, &urlErr) ||
		errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// upstreamDetails passes a JSON upstream body through as JSON, anything else as text.
func upstreamDetails(body string) any {
	var v any
	if err := json.Unmarshal([]byte(body), &v); err == nil {
		return v
	}
	return body
}
