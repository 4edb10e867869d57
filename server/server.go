// Package server exposes actors and their WebFinger documents over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cvhariharan/fedactor/federation"
	"github.com/cvhariharan/fedactor/models"
	"github.com/cvhariharan/fedactor/store"
)

var actorIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

type Server struct {
	e        *echo.Echo
	svc      *federation.Service
	instance *models.Instance
	logger   *zap.Logger
}

// New wires the routes for the local instance. gatherer backs /metrics and
// may be nil to leave the route out.
func New(svc *federation.Service, instance *models.Instance, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		e:        echo.New(),
		svc:      svc,
		instance: instance,
		logger:   logger,
	}
	s.e.HideBanner = true
	s.e.HidePort = true

	s.e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	s.e.Use(middleware.Recover())

	s.e.GET("/.well-known/webfinger", s.webfinger)
	s.e.GET("/"+models.BlogBoxPrefix+"/:actor", s.actor(models.ActorTypeBlog))
	s.e.GET("/"+models.PersonBoxPrefix+"/:actor", s.actor(models.ActorTypePerson))
	s.e.POST("/api/blogs", s.createActor(models.ActorTypeBlog))
	s.e.POST("/api/persons", s.createActor(models.ActorTypePerson))
	if gatherer != nil {
		s.e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	s.logger.Info("Listening", zap.String("addr", addr), zap.String("domain", s.instance.PublicDomain))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) webfinger(c echo.Context) error {
	acct, err := federation.ParseResource(c.QueryParam("resource"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if acct.Domain != s.instance.PublicDomain {
		return echo.NewHTTPError(http.StatusNotFound, "Webfinger not found")
	}

	doc, ok, err := s.svc.Webfinger(c.Request().Context(), acct)
	if err != nil {
		return s.internalError(c, err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Webfinger not found")
	}
	return s.typedJSON(c, http.StatusOK, models.TypeJRD, doc)
}

func (s *Server) actor(kind models.ActorType) echo.HandlerFunc {
	return func(c echo.Context) error {
		a, ok, err := s.svc.Lookup(c.Request().Context(), s.instance.ID, c.Param("actor"))
		if err != nil {
			return s.internalError(c, err)
		}
		if !ok || a.ActorType() != kind {
			return echo.NewHTTPError(http.StatusNotFound, "Actor not found")
		}
		return s.typedJSON(c, http.StatusOK, models.TypeActivity, models.NewActorDocument(a))
	}
}

type createRequest struct {
	ActorID     string `json:"actor_id"`
	DisplayName string `json:"display_name"`
	Summary     string `json:"summary"`
}

func (s *Server) createActor(kind models.ActorType) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if !actorIDPattern.MatchString(req.ActorID) {
			return echo.NewHTTPError(http.StatusBadRequest, "actor_id must be a non-empty slug")
		}

		a, err := s.svc.CreateLocal(c.Request().Context(), kind, s.instance.ID, req.ActorID, req.DisplayName, req.Summary)
		if errors.Is(err, store.ErrDuplicate) {
			return echo.NewHTTPError(http.StatusConflict, "actor already exists")
		}
		if err != nil {
			return s.internalError(c, err)
		}
		return s.typedJSON(c, http.StatusCreated, models.TypeActivity, models.NewActorDocument(a))
	}
}

func (s *Server) typedJSON(c echo.Context, code int, contentType string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return s.internalError(c, err)
	}
	return c.Blob(code, contentType, data)
}

func (s *Server) internalError(c echo.Context, err error) error {
	s.logger.Error("Request failed",
		zap.String("path", c.Request().URL.Path),
		zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
