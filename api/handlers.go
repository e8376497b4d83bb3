package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"party-planner/domain"
	"party-planner/feed"
	"party-planner/invite"
	"party-planner/repository"
)

// collectionAPI is the list/add/update/remove surface shared by the
// repositories.
type collectionAPI[T any] interface {
	List(ctx context.Context) ([]T, error)
	Add(ctx context.Context, draft T) ([]T, error)
	Update(ctx context.Context, id string, patch T) ([]T, error)
	Remove(ctx context.Context, id string) ([]T, error)
}

func mount[T any](g *echo.Group, path string, repo collectionAPI[T], once echo.MiddlewareFunc) {
	g.GET(path, func(c echo.Context) error {
		items, err := repo.List(c.Request().Context())
		return respondCollection(c, http.StatusOK, items, err)
	})
	g.POST(path, func(c echo.Context) error {
		var draft T
		if err := decodeBody(c, &draft); err != nil {
			return respondError(c, err)
		}
		items, err := repo.Add(c.Request().Context(), draft)
		return respondCollection(c, http.StatusCreated, items, err)
	}, once)
	g.PUT(path+"/:id", func(c echo.Context) error {
		var patch T
		if err := decodeBody(c, &patch); err != nil {
			return respondError(c, err)
		}
		items, err := repo.Update(c.Request().Context(), c.Param("id"), patch)
		return respondCollection(c, http.StatusOK, items, err)
	})
	g.DELETE(path+"/:id", func(c echo.Context) error {
		items, err := repo.Remove(c.Request().Context(), c.Param("id"))
		return respondCollection(c, http.StatusOK, items, err)
	})
}

func respondCollection[T any](c echo.Context, status int, items []T, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	observeItems(c, len(items))
	if items == nil {
		items = []T{}
	}
	return c.JSON(status, items)
}

// eventCRUD routes event writes through the builder so usePartyDate events
// are aligned with the stored party date.
type eventCRUD struct {
	builder *feed.Builder
	events  *repository.EventRepository
}

func (e eventCRUD) List(ctx context.Context) ([]domain.Event, error) { return e.events.List(ctx) }

func (e eventCRUD) Add(ctx context.Context, draft domain.Event) ([]domain.Event, error) {
	return e.builder.AddEvent(ctx, draft)
}

func (e eventCRUD) Update(ctx context.Context, id string, patch domain.Event) ([]domain.Event, error) {
	return e.builder.UpdateEvent(ctx, id, patch)
}

func (e eventCRUD) Remove(ctx context.Context, id string) ([]domain.Event, error) {
	return e.events.Remove(ctx, id)
}

type partyResponse struct {
	PartyInfo *domain.PartyInfo `json:"partyInfo"`
	Events    []domain.Event    `json:"events"`
}

func getParty(repos *repository.Repositories) echo.HandlerFunc {
	return func(c echo.Context) error {
		info, err := repos.Party.Get(c.Request().Context())
		if err != nil {
			return respondError(c, err)
		}
		if info == nil {
			return c.NoContent(http.StatusNoContent)
		}
		return c.JSON(http.StatusOK, info)
	}
}

func putParty(b *feed.Builder) echo.HandlerFunc {
	return func(c echo.Context) error {
		var info domain.PartyInfo
		if err := decodeBody(c, &info); err != nil {
			return respondError(c, err)
		}
		saved, events, err := b.SavePartyInfo(c.Request().Context(), info)
		if err != nil {
			return respondError(c, err)
		}
		if events == nil {
			events = []domain.Event{}
		}
		return c.JSON(http.StatusOK, partyResponse{PartyInfo: saved, Events: events})
	}
}

func deleteParty(repos *repository.Repositories) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := repos.Party.Clear(c.Request().Context()); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func toggleTask(tasks *repository.TaskRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		items, err := tasks.Toggle(c.Request().Context(), c.Param("id"))
		return respondCollection(c, http.StatusOK, items, err)
	}
}

type reorderRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

func reorderTasks(tasks *repository.TaskRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req reorderRequest
		if err := decodeBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if err := c.Validate(&req); err != nil {
			return respondError(c, err)
		}
		items, err := tasks.Reorder(c.Request().Context(), req.IDs)
		return respondCollection(c, http.StatusOK, items, err)
	}
}

type templatesResponse struct {
	Templates []string `json:"templates"`
}

func listTemplates(repos *repository.Repositories, loc *time.Location) echo.HandlerFunc {
	return func(c echo.Context) error {
		info, err := repos.Party.Get(c.Request().Context())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, templatesResponse{Templates: invite.RenderAll(info, loc)})
	}
}

type renderRequest struct {
	Template *int `json:"template" validate:"required,gte=0"`
}

func renderInvitation(repos *repository.Repositories) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req renderRequest
		if err := decodeBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if err := c.Validate(&req); err != nil {
			return respondError(c, err)
		}
		ctx := c.Request().Context()
		info, err := repos.Party.Get(ctx)
		if err != nil {
			return respondError(c, err)
		}
		items, err := repos.Invitations.AddFromTemplate(ctx, *req.Template, info)
		if errors.Is(err, invite.ErrUnknownTemplate) {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		return respondCollection(c, http.StatusCreated, items, err)
	}
}

type linkResponse struct {
	URL string `json:"url"`
}

func whatsAppLink(repos *repository.Repositories) echo.HandlerFunc {
	return func(c echo.Context) error {
		guestID := strings.TrimSpace(c.QueryParam("guest"))
		if guestID == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "guest is required"})
		}
		ctx := c.Request().Context()
		inv, err := repos.Invitations.Get(ctx, c.Param("id"))
		if err != nil {
			return respondError(c, err)
		}
		guest, err := repos.Guests.Get(ctx, guestID)
		if err != nil {
			return respondError(c, err)
		}
		link, err := invite.WhatsAppLink(guest.Phone, inv.Text)
		if errors.Is(err, invite.ErrNoPhone) {
			return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		}
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, linkResponse{URL: link})
	}
}

func toggleShopping(shopping *repository.ShoppingRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		items, err := shopping.Toggle(c.Request().Context(), c.Param("id"))
		return respondCollection(c, http.StatusOK, items, err)
	}
}

type totalResponse struct {
	Total float64 `json:"total"`
	Items int     `json:"items"`
}

func shoppingTotal(shopping *repository.ShoppingRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		items, err := shopping.List(c.Request().Context())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, totalResponse{Total: repository.Totals(items), Items: len(items)})
	}
}

type calendarDay struct {
	Date  string            `json:"date"`
	Items []domain.FeedItem `json:"items"`
}

type calendarResponse struct {
	Days []calendarDay `json:"days"`
}

func newCalendarResponse(f feed.Feed) calendarResponse {
	keys := f.Keys()
	days := make([]calendarDay, 0, len(keys))
	for _, k := range keys {
		days = append(days, calendarDay{Date: k, Items: f.Day(k)})
	}
	return calendarResponse{Days: days}
}

func getCalendar(b *feed.Builder) echo.HandlerFunc {
	return func(c echo.Context) error {
		date := strings.TrimSpace(c.QueryParam("date"))
		if date != "" {
			if _, err := time.Parse(domain.DateKeyLayout, date); err != nil {
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid date"})
			}
		}
		cal, err := b.Calendar(c.Request().Context())
		if err != nil {
			return respondError(c, err)
		}
		if date != "" {
			cal = cal.Only(date)
		}
		resp := newCalendarResponse(cal)
		observeItems(c, len(resp.Days))
		return c.JSON(http.StatusOK, resp)
	}
}

func reset(repos *repository.Repositories) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.QueryParam("confirm") != "yes" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "confirm=yes is required"})
		}
		if err := repos.Reset(c.Request().Context()); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
