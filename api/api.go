// Package api exposes the planner collections and the merged calendar over
// HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"party-planner/domain"
	"party-planner/feed"
	"party-planner/repository"
	"party-planner/storage"
)

const maxBodySize = 1 << 20

// Deps are the collaborators Register needs. Auth and Deduper are optional.
type Deps struct {
	Repos   *repository.Repositories
	Builder *feed.Builder
	Auth    Authenticator
	Deduper Deduper
	Changes *ChangeFeed
	Log     *log.Logger
	// Health checks the backend for /healthz; nil reports healthy.
	Health func(context.Context) error

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	if d.Log == nil {
		d.Log = log.StandardLogger()
	}
	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	if d.Changes == nil {
		d.Changes = NewChangeFeed()
	}
	e.JSONSerializer = sonicSerializer{}
	e.Validator = &CustomValidator{validator: domain.Validator()}

	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "partyplanner",
		Registerer: d.Registerer,
	}))
	e.GET("/healthz", healthz(d.Health))
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))

	g := e.Group("/api", requestMetrics(d.Log), requireAuth(d.Auth))
	once := idempotent(d.Deduper, d.Log)

	g.GET("/party", getParty(d.Repos))
	g.PUT("/party", putParty(d.Builder))
	g.DELETE("/party", deleteParty(d.Repos))

	mount[domain.Event](g, "/events", eventCRUD{builder: d.Builder, events: d.Repos.Events}, once)
	g.POST("/tasks/:id/toggle", toggleTask(d.Repos.Tasks))
	g.PUT("/tasks/order", reorderTasks(d.Repos.Tasks))
	mount[domain.Task](g, "/tasks", d.Repos.Tasks, once)
	mount[domain.Guest](g, "/guests", d.Repos.Guests, once)
	g.GET("/invitations/templates", listTemplates(d.Repos, d.Builder.Location()))
	g.POST("/invitations/render", renderInvitation(d.Repos), once)
	g.GET("/invitations/:id/whatsapp", whatsAppLink(d.Repos))
	mount[domain.Invitation](g, "/invitations", d.Repos.Invitations, once)
	g.POST("/shopping/:id/toggle", toggleShopping(d.Repos.Shopping))
	g.GET("/shopping/total", shoppingTotal(d.Repos.Shopping))
	mount[domain.ShoppingItem](g, "/shopping", d.Repos.Shopping, once)
	mount[domain.Note](g, "/notes", d.Repos.Notes, once)

	g.GET("/calendar", getCalendar(d.Builder))
	g.GET("/calendar/stream", streamCalendar(d.Builder, d.Changes))
	g.POST("/reset", reset(d.Repos))
}

func healthz(check func(context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if check == nil {
			return c.NoContent(http.StatusOK)
		}
		if err := check(c.Request().Context()); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusServiceUnavailable, "store unavailable")
		}
		return c.NoContent(http.StatusOK)
	}
}

// CustomValidator adapts validator/v10 to echo.
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// sonicSerializer swaps echo's encoding/json for sonic and rejects unknown
// request fields.
type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return nil
}

func decodeBody(c echo.Context, dest any) error {
	return c.Echo().JSONSerializer.Deserialize(c, dest)
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// respondError maps domain and storage failures onto status codes.
func respondError(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	var verr *domain.ValidationError
	var cascade *domain.CascadeError
	switch {
	case errors.As(err, &httpErr):
		msg, _ := httpErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(httpErr.Code)
		}
		return c.JSON(httpErr.Code, errorResponse{Error: msg})
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.As(err, &cascade):
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "events could not be moved to the new party date; nothing was changed"})
	case storage.IsReadError(err):
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "could not load saved data; please retry"})
	case storage.IsWriteError(err):
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "could not save changes; please retry"})
	case errors.Is(err, context.Canceled):
		return nil
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
