package web

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-echosight/pkg/camera"
	"github.com/teslashibe/go-echosight/pkg/command"
)

// CommandRequest is the body of POST /api/command. Transcript is parsed
// the same way as speech; Command names a command directly.
type CommandRequest struct {
	Transcript string `json:"transcript"`
	Command    string `json:"command"`
}

// HubStats describes one websocket feed.
type HubStats struct {
	Clients int   `json:"clients"`
	Dropped int64 `json:"dropped"`
}

func (s *Server) registerRoutes(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/navigation/start", s.sendCommand(command.Start))
	api.Post("/navigation/stop", s.sendCommand(command.Stop))
	api.Post("/describe", s.sendCommand(command.Describe))
	api.Post("/command", s.handleCommand)
	api.Get("/camera", s.handleGetCamera)
	api.Put("/camera", s.handleSetCamera)
	api.Get("/hubs", s.handleHubs)

	if s.opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.opts.Navigator.Status())
}

func (s *Server) sendCommand(cmd command.Command) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := s.opts.Commands.Send(cmd); err != nil {
			return commandError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"command": cmd})
	}
}

func (s *Server) handleCommand(c *fiber.Ctx) error {
	var req CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	text := req.Transcript
	if text == "" {
		text = req.Command
	}

	cmd, err := s.opts.Commands.Submit(text)
	if err != nil {
		return commandError(c, err)
	}
	s.logger.Info("command received", "command", cmd, "transcript", req.Transcript)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"command": cmd})
}

func commandError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, command.ErrUnrecognized):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, command.ErrQueueFull):
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.opts.Camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "camera not configured"})
	}
	return c.JSON(fiber.Map{
		"config":       s.opts.Camera.GetConfig(),
		"presets":      camera.PresetNames(),
		"capabilities": camera.Capabilities(),
	})
}

func (s *Server) handleSetCamera(c *fiber.Ctx) error {
	if s.opts.Camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "camera not configured"})
	}

	var params map[string]any
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.opts.Camera.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	cfg := s.opts.Camera.GetConfig()
	s.logger.Info("camera config updated",
		"width", cfg.Width,
		"height", cfg.Height,
		"framerate", cfg.Framerate,
	)
	return c.JSON(fiber.Map{"config": cfg})
}

func (s *Server) handleHubs(c *fiber.Ctx) error {
	out := make(map[string]HubStats, 5)
	for _, h := range s.hubs() {
		out[h.Name()] = HubStats{Clients: h.ClientCount(), Dropped: h.Dropped()}
	}
	return c.JSON(out)
}
