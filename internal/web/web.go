package web

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	authservice "github.com/goserg/eventhub/auth/service"
	"github.com/goserg/eventhub/internal/config"
	"github.com/goserg/eventhub/internal/service"
	"github.com/goserg/eventhub/internal/web/webpath"
)

// Notifier receives short human readable notes about accepted participations
// and new mutual friendships.
type Notifier interface {
	Notify(text string)
}

type Services struct {
	Admission     *service.AdmissionService
	Rating        *service.RatingService
	Subscriptions *service.SubscriptionService
}

type Server struct {
	auth     *authservice.Service
	services Services
	notifier Notifier
	app      *fiber.App
	cfg      config.Server
	log      *logrus.Entry
	now      func() time.Time
}

func New(l *logrus.Logger, services Services, cfg config.Server, authService *authservice.Service, notifier Notifier) *Server {
	server := Server{
		auth:     authService,
		services: services,
		notifier: notifier,
		cfg:      cfg,
		log: l.WithFields(map[string]interface{}{
			"from": "web",
		}),
		now: time.Now,
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          server.handleError,
		DisableStartupMessage: !cfg.Debug,
	})
	app.Use(server.logRequest)

	app.Get(webpath.Health, func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{"status": "UP", "routes": webpath.Path()})
	})

	app.Get(webpath.EventRequests, server.authorize, server.handleListEventRequests)
	app.Patch(webpath.EventRequests, server.authorize, server.handleUpdateStatuses)
	app.Post(webpath.EventLike, server.authorize, server.handleLike)
	app.Post(webpath.EventDislike, server.authorize, server.handleDislike)
	app.Get(webpath.EventRating, server.authorize, server.handleRating)

	app.Get(webpath.UserRequests, server.authorize, server.handleListUserRequests)
	app.Post(webpath.UserRequests, server.authorize, server.handleSubmit)
	app.Patch(webpath.CancelRequest, server.authorize, server.handleCancel)

	app.Get(webpath.Subscribers, server.authorize, server.handleListSubscribers)
	app.Get(webpath.SubscriptionCount, server.authorize, server.handleCount)
	app.Get(webpath.SubscriptionState, server.authorize, server.handleStatus)
	app.Get(webpath.Subscriptions, server.authorize, server.handleListSubscriptions)
	app.Post(webpath.Subscriptions, server.authorize, server.handleSubscribe)
	app.Delete(webpath.Unsubscribe, server.authorize, server.handleUnsubscribe)

	server.app = app
	return &server
}

func (s *Server) Serve() error {
	s.log.WithField("address", s.cfg.Address).Info("listening")
	return s.app.Listen(s.cfg.Address)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

const requestIDKey = "requestid"

func (s *Server) logRequest(ctx *fiber.Ctx) error {
	requestID := ctx.Get(fiber.HeaderXRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx.Set(fiber.HeaderXRequestID, requestID)
	ctx.Locals(requestIDKey, requestID)

	start := time.Now()
	err := ctx.Next()
	if err != nil {
		if handleErr := s.handleError(ctx, err); handleErr != nil {
			return handleErr
		}
	}
	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     ctx.Method(),
		"path":       ctx.Path(),
		"status":     ctx.Response().StatusCode(),
		"latency":    time.Since(start).String(),
	}).Debug("request")
	return nil
}

func (s *Server) handleError(ctx *fiber.Ctx, err error) error {
	code, resp := newAPIError(err, s.now())
	if code >= fiber.StatusInternalServerError {
		s.log.WithFields(logrus.Fields{
			"request_id": ctx.Locals(requestIDKey),
			"path":       ctx.Path(),
		}).WithError(err).Error("request failed")
	}
	return ctx.Status(code).JSON(resp)
}

// authorize requires a token for the user in the path when auth is configured.
func (s *Server) authorize(ctx *fiber.Ctx) error {
	if s.auth == nil || !s.auth.Enabled() {
		return ctx.Next()
	}
	userID, err := paramID(ctx, "userId")
	if err != nil {
		return err
	}
	if err := s.auth.Authorize(bearerToken(ctx), userID); err != nil {
		return err
	}
	return ctx.Next()
}

func bearerToken(ctx *fiber.Ctx) string {
	header := ctx.Get(fiber.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ctx.Cookies(authservice.CookieName)
}

func (s *Server) notify(text string) {
	if s.notifier != nil {
		s.notifier.Notify(text)
	}
}
