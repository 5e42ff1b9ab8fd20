package web

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-vision-replica/pkg/camera"
	"github.com/teslashibe/go-vision-replica/pkg/cycle"
)

// stopTimeout bounds a cycle started from a non-waiting stop request.
const stopTimeout = 2 * time.Minute

// CameraResponse is returned by the camera routes.
type CameraResponse struct {
	Facing  camera.Facing `json:"facing"`
	State   camera.State  `json:"state"`
	Config  camera.Config `json:"config"`
	Presets []string      `json:"presets"`
}

// OutcomeResponse is returned by a waiting stop request.
type OutcomeResponse struct {
	Cycle        uint64 `json:"cycle"`
	ResponseText string `json:"response_text"`
	BytesSent    int    `json:"bytes_sent"`
	LatencyMs    int64  `json:"latency_ms"`
}

// handleStatus returns the current cycle snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.host.Snapshot())
}

// handleStart begins recording.
func (s *Server) handleStart(c *fiber.Ctx) error {
	if err := s.ctrl.Start(c.UserContext()); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(s.host.Snapshot())
}

// handleStop ends recording. By default the rest of the cycle runs in the
// background and progress is reported over /ws/status; ?wait=true blocks
// until playback starts.
func (s *Server) handleStop(c *fiber.Ctx) error {
	if s.host.State() != cycle.StateRecording {
		return cycle.ErrNotRecording
	}

	if c.QueryBool("wait") {
		out, err := s.ctrl.Stop(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(OutcomeResponse{
			Cycle:        out.Cycle,
			ResponseText: out.Text,
			BytesSent:    out.BytesSent,
			LatencyMs:    out.Latency.Milliseconds(),
		})
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if _, err := s.ctrl.Stop(ctx); err != nil && !errors.Is(err, cycle.ErrNotRecording) {
			s.logger.Debug("background cycle ended", "error", err)
		}
	}()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"state": cycle.StateCapturing})
}

// handleCancel aborts the cycle in flight.
func (s *Server) handleCancel(c *fiber.Ctx) error {
	if err := s.ctrl.Cancel(); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"canceled": true})
}

// handleGetCamera returns the camera configuration.
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	return c.JSON(s.cameraResponse())
}

// handleUpdateCamera applies a partial camera config, e.g.
// {"preset":"low"} or {"quality":70}.
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.host.State().Busy() {
		return cycle.ErrCycleInProgress
	}

	var params map[string]interface{}
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if err := s.camera().UpdateConfig(c.UserContext(), params); err != nil {
		if errors.Is(err, camera.ErrBusy) || errors.Is(err, camera.ErrDeviceUnavailable) {
			return err
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(s.cameraResponse())
}

// handleSwitchCamera toggles between back and front cameras.
func (s *Server) handleSwitchCamera(c *fiber.Ctx) error {
	if _, err := s.ctrl.SwitchCamera(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(s.cameraResponse())
}

func (s *Server) camera() *camera.Manager {
	return s.ctrl.Camera()
}

func (s *Server) cameraResponse() CameraResponse {
	cam := s.camera()
	return CameraResponse{
		Facing:  cam.Facing(),
		State:   cam.State(),
		Config:  cam.GetConfig(),
		Presets: camera.PresetNames(),
	}
}

// handleError maps domain errors onto HTTP statuses.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := fiber.Map{"error": err.Error()}

	var fe *fiber.Error
	var ce *cycle.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, cycle.ErrCycleInProgress),
		errors.Is(err, cycle.ErrNotRecording),
		errors.Is(err, cycle.ErrNoCycle),
		errors.Is(err, camera.ErrBusy):
		code = fiber.StatusConflict
	case errors.Is(err, cycle.ErrClosed):
		code = fiber.StatusServiceUnavailable
	case errors.As(err, &ce):
		body["kind"] = ce.Kind
		body["stage"] = ce.Stage
		switch ce.Kind {
		case cycle.KindNetworkFailure, cycle.KindParseFailure, cycle.KindDecodeFailure:
			code = fiber.StatusBadGateway
		case cycle.KindCanceled:
			code = fiber.StatusConflict
		default:
			code = fiber.StatusServiceUnavailable
		}
	case errors.Is(err, camera.ErrDeviceUnavailable):
		code = fiber.StatusServiceUnavailable
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Warn("request failed", "path", c.Path(), "status", code, "error", err)
	}
	return c.Status(code).JSON(body)
}
