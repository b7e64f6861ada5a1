package httpapi

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/camara12-arth/weather-app/internal/search"
	"github.com/camara12-arth/weather-app/internal/store"
	"github.com/camara12-arth/weather-app/internal/weather"
)

var validate = validator.New()

const (
	defaultWait = 25 * time.Second
	maxWait     = 60 * time.Second
)

// Handler serves the stateless lookup endpoints and the session endpoints.
type Handler struct {
	service  *weather.Service
	sessions *store.SessionStore
	config   search.Config
}

func NewHandler(service *weather.Service, sessions *store.SessionStore, cfg search.Config) *Handler {
	return &Handler{service: service, sessions: sessions, config: cfg}
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, h *Handler) {
	v1 := app.Group("/api/v1")

	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"sessions": h.sessions.Len(),
		})
	})

	v1.Get("/geo/suggest", h.suggest)
	v1.Get("/weather/forecast", h.forecast)

	v1.Post("/sessions", h.createSession)
	v1.Get("/sessions/:id", h.sessionState)
	v1.Post("/sessions/:id/input", h.sessionInput)
	v1.Post("/sessions/:id/pick", h.sessionPick)
	v1.Post("/sessions/:id/submit", h.sessionSubmit)
	v1.Delete("/sessions/:id", h.deleteSession)
}

// suggestQuery holds query parameters for the suggestion endpoint.
type suggestQuery struct {
	Q     string `validate:"required"`
	Limit int    `validate:"gte=1,lte=20"`
}

func (h *Handler) suggest(c *fiber.Ctx) error {
	q := suggestQuery{
		Q:     strings.TrimSpace(c.Query("q")),
		Limit: c.QueryInt("limit", h.config.SuggestionLimit),
	}
	if q.Limit == 0 {
		q.Limit = search.DefaultSuggestionLimit
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := h.service.Lookup(c.UserContext(), q.Q, q.Limit)
	if err != nil {
		return lookupError(err)
	}
	return c.JSON(res)
}

// coordinatesQuery holds query parameters identifying a point.
type coordinatesQuery struct {
	Lat *float64 `validate:"required,gte=-90,lte=90"`
	Lon *float64 `validate:"required,gte=-180,lte=180"`
}

func parseCoordinates(c *fiber.Ctx) (coordinatesQuery, error) {
	var q coordinatesQuery
	var err error

	if q.Lat, err = parseFloatQuery(c, "lat"); err != nil {
		return q, err
	}
	if q.Lon, err = parseFloatQuery(c, "lon"); err != nil {
		return q, err
	}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

func parseFloatQuery(c *fiber.Ctx, key string) (*float64, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New("invalid " + key + "; expected a decimal number")
	}
	return &v, nil
}

// forecast serves a snapshot by coordinates. When the provider answers
// without a place name, the label comes from reverse geocoding if any
// configured geocoder supports it, and stays empty otherwise.
func (h *Handler) forecast(c *fiber.Ctx) error {
	q, err := parseCoordinates(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	snap, err := h.service.Forecast(c.UserContext(), *q.Lat, *q.Lon)
	if err != nil {
		return lookupError(err)
	}
	return c.JSON(snap)
}

func (h *Handler) createSession(c *fiber.Ctx) error {
	sess := search.NewSession(uuid.NewString(), h.service, h.service, h.config)
	h.sessions.Put(sess)
	log.Printf("INFO: session %s created", sess.ID())

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    sess.ID(),
		"state": sess.State(),
	})
}

func (h *Handler) session(c *fiber.Ctx) (*search.Session, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return sess, nil
}

// sessionState returns the current state, or long-polls for a newer one
// when since is given.
func (h *Handler) sessionState(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	since := c.Query("since")
	if since == "" {
		return c.JSON(sess.State())
	}
	version, err := strconv.ParseUint(since, 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid since; expected a state version")
	}

	wait := defaultWait
	if raw := c.Query("wait"); raw != "" {
		if wait, err = time.ParseDuration(raw); err != nil || wait <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid wait; expected a positive duration")
		}
	}
	if wait > maxWait {
		wait = maxWait
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), wait)
	defer cancel()

	st, err := sess.Wait(ctx, version)
	if errors.Is(err, search.ErrClosed) {
		return fiber.NewError(fiber.StatusGone, "session closed")
	}
	// A timeout is not an error: the client gets the unchanged state back.
	return c.JSON(st)
}

type inputRequest struct {
	Value string `json:"value"`
}

func (h *Handler) sessionInput(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	var req inputRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return h.dispatch(c, sess, search.Intent{Type: search.IntentTextChanged, Value: req.Value})
}

// pickRequest selects either a suggestion from the session's current list
// by index, or an explicit suggestion.
type pickRequest struct {
	Index      *int                `json:"index" validate:"omitempty,gte=0"`
	Suggestion *weather.Suggestion `json:"suggestion" validate:"required_without=Index"`
}

func (h *Handler) sessionPick(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	var req pickRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	in := search.Intent{Type: search.IntentSuggestionPicked, Index: req.Index}
	if req.Index == nil {
		in.Suggestion = *req.Suggestion
	}
	return h.dispatch(c, sess, in)
}

func (h *Handler) sessionSubmit(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	return h.dispatch(c, sess, search.Intent{Type: search.IntentSubmitted})
}

func (h *Handler) deleteSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.sessions.Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) dispatch(c *fiber.Ctx, sess *search.Session, in search.Intent) error {
	st, err := sess.Dispatch(c.UserContext(), in)
	if err != nil {
		if errors.Is(err, search.ErrClosed) {
			return fiber.NewError(fiber.StatusGone, "session closed")
		}
		if errors.Is(err, search.ErrNoSuggestion) {
			return fiber.NewError(fiber.StatusBadRequest, "index is outside the current suggestion list")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(st)
}

// lookupError maps provider failures onto HTTP statuses.
func lookupError(err error) error {
	switch {
	case errors.Is(err, weather.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "location not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "request cancelled")
	default:
		log.Printf("ERROR: upstream lookup failed: %v", err)
		return fiber.NewError(fiber.StatusBadGateway, "weather service unavailable")
	}
}

// ErrorHandler renders every error as {"error":true,"message":...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
