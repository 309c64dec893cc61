// internal/api/v2/control.go
package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/helmetwatch/internal/logger"
)

// Available control actions
const (
	ActionStartDetection    = "start_detection"
	ActionStopDetection     = "stop_detection"
	ActionChangeCamera      = "change_camera"
	ActionSystemHealthCheck = "system_health_check"
)

// ControlAction describes one supported control action
type ControlAction struct {
	Action      string `json:"action"`
	Description string `json:"description"`
}

// SessionData carries action specific values
type SessionData struct {
	TotalDetections *int   `json:"total_detections"`
	Health          string `json:"health"`
}

// ControlRequest is the body of POST /api/v2/system/control
type ControlRequest struct {
	Action       string       `json:"action"`
	CameraSource string       `json:"camera_source"`
	SessionData  *SessionData `json:"session_data"`
}

// ControlResponse is the result of a control action; fields not relevant to
// the action are omitted
type ControlResponse struct {
	Message      string           `json:"message"`
	Session      *SessionResponse `json:"session,omitempty"`
	CameraSource string           `json:"camera_source,omitempty"`
	Status       string           `json:"status,omitempty"`
}

// ActiveSessionResponse is the body of GET /api/v2/system/control
type ActiveSessionResponse struct {
	ActiveSession *SessionResponse `json:"active_session"`
}

// initControlRoutes registers all control-related API endpoints
func (c *Controller) initControlRoutes() {
	controlGroup := c.Group.Group("/system/control")

	controlGroup.GET("", c.GetActiveSession)
	controlGroup.POST("", c.ControlSystem)
	controlGroup.GET("/actions", c.GetAvailableActions)
}

// GetAvailableActions handles GET /api/v2/system/control/actions
func (c *Controller) GetAvailableActions(ctx echo.Context) error {
	actions := []ControlAction{
		{Action: ActionStartDetection, Description: "Start a detection session on camera_source (default \"0\")"},
		{Action: ActionStopDetection, Description: "Stop the active session, recording session_data.total_detections"},
		{Action: ActionChangeCamera, Description: "Switch the active session to camera_source"},
		{Action: ActionSystemHealthCheck, Description: "Record session_data.health, or the host probe result when omitted"},
	}
	return ctx.JSON(http.StatusOK, actions)
}

// GetActiveSession handles GET /api/v2/system/control
func (c *Controller) GetActiveSession(ctx echo.Context) error {
	session, err := c.Core.CurrentSession(ctx.Request().Context())
	if err != nil {
		return c.handleCoreError(ctx, err, "Failed to fetch session info")
	}
	return ctx.JSON(http.StatusOK, ActiveSessionResponse{ActiveSession: newSessionResponse(session)})
}

// ControlSystem handles POST /api/v2/system/control
func (c *Controller) ControlSystem(ctx echo.Context) error {
	var req ControlRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid control request body", http.StatusBadRequest)
	}
	if req.SessionData == nil {
		req.SessionData = &SessionData{}
	}

	reqCtx := ctx.Request().Context()

	switch req.Action {
	case ActionStartDetection:
		session, err := c.Core.StartSession(reqCtx, req.CameraSource)
		if err != nil {
			return c.handleCoreError(ctx, err, "Failed to start detection")
		}
		c.logger.Info("detection started via API",
			logger.Uint("session_id", session.ID),
			logger.String("ip", ctx.RealIP()))
		return ctx.JSON(http.StatusOK, ControlResponse{
			Message: "Detection started",
			Session: newSessionResponse(session),
		})

	case ActionStopDetection:
		total := 0
		if req.SessionData.TotalDetections != nil {
			total = *req.SessionData.TotalDetections
		}
		if err := c.Core.StopSession(reqCtx, total); err != nil {
			return c.handleCoreError(ctx, err, "Failed to stop detection")
		}
		return ctx.JSON(http.StatusOK, ControlResponse{Message: "Detection stopped"})

	case ActionChangeCamera:
		if err := c.Core.ChangeCamera(reqCtx, req.CameraSource); err != nil {
			return c.handleCoreError(ctx, err, "Failed to change camera source")
		}
		return ctx.JSON(http.StatusOK, ControlResponse{
			Message:      "Camera source changed",
			CameraSource: req.CameraSource,
		})

	case ActionSystemHealthCheck:
		status, err := c.Core.RecordHealth(reqCtx, req.SessionData.Health)
		if err != nil {
			return c.handleCoreError(ctx, err, "Failed to complete health check")
		}
		return ctx.JSON(http.StatusOK, ControlResponse{
			Message: "Health check completed",
			Status:  status.SystemHealth,
		})

	default:
		return c.HandleError(ctx, fmt.Errorf("unknown action %q", req.Action), "Invalid action", http.StatusBadRequest)
	}
}
