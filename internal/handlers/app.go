package handlers

import (
	"context"
	"errors"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/jjenkins/orgadmin/internal/command"
	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/jjenkins/orgadmin/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// SnapshotLister reads staffing history for a unit
type SnapshotLister interface {
	GetSnapshotsForUnit(ctx context.Context, unitID string) ([]model.StaffingSnapshot, error)
}

// MetricsReader reads the latest stored system metrics
type MetricsReader interface {
	GetLatestMetrics(ctx context.Context) (map[string]string, error)
}

// Deps are the collaborators the HTTP handlers need. Snapshots, Metrics and
// Dispatcher are optional.
type Deps struct {
	Source     service.Source
	Snapshots  SnapshotLister
	Metrics    MetricsReader
	Dispatcher *command.Dispatcher
	JWTSecret  string
	Logger     logrus.FieldLogger
	// RequestLog enables the fiber request logger
	RequestLog bool
}

// NewApp builds the fiber application with every route registered
func NewApp(d Deps) *fiber.App {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}

	app := fiber.New(fiber.Config{
		AppName:      "Org Admin",
		ErrorHandler: errorHandler(d.Logger),
	})

	if d.RequestLog {
		app.Use(logger.New())
	}

	app.Get("/", HomeHandler(d.Source, d.Metrics))

	// Unit tree
	app.Get("/units", UnitsHandler(d.Source))
	app.Get("/units/expand-all", ExpandAllHandler(d.Source))
	app.Get("/units/collapse-all", CollapseAllHandler())
	app.Get("/units/toggle/:id", ToggleHandler())
	if d.JWTSecret != "" {
		app.Post("/units/commands", RequireAuth(d.JWTSecret), UnitFormHandler(d.Dispatcher))
	} else {
		app.Post("/units/commands", UnitFormHandler(d.Dispatcher))
	}
	app.Get("/units/:id", UnitDetailHandler(d.Source, d.Snapshots))

	app.Get("/positions", PositionsHandler(d.Source))
	app.Get("/recruitment", RecruitmentHandler(d.Source))

	// Downloads
	app.Get("/export/positions.csv", ExportCSVHandler(d.Source))
	app.Get("/export/positions.xlsx", ExportXLSXHandler(d.Source))

	// JSON API
	api := app.Group("/api")
	api.Get("/hierarchy", HierarchyHandler(d.Source))
	if d.JWTSecret != "" {
		api.Post("/commands", RequireAuth(d.JWTSecret), CommandsHandler(d.Dispatcher))
	} else {
		api.Post("/commands", CommandsHandler(d.Dispatcher))
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

func render(c *fiber.Ctx, page templ.Component) error {
	handler := adaptor.HTTPHandler(templ.Handler(page))
	return handler(c)
}

func renderStatus(c *fiber.Ctx, status int, page templ.Component) error {
	handler := adaptor.HTTPHandler(templ.Handler(page, templ.WithStatus(status)))
	return handler(c)
}

func errorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
			}).WithError(err).Error("Request failed")
		}
		return c.Status(code).SendString(err.Error())
	}
}

// loadAssembly assembles the organization for a request
func loadAssembly(c *fiber.Ctx, src service.Source) (*service.Assembly, error) {
	a, err := service.Assemble(c.UserContext(), src)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Error loading organization: "+err.Error())
	}
	return a, nil
}
