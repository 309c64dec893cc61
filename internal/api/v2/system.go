// internal/api/v2/system.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// initSystemRoutes registers status and settings endpoints
func (c *Controller) initSystemRoutes() {
	systemGroup := c.Group.Group("/system")

	systemGroup.GET("/status", c.GetSystemStatus)
	systemGroup.POST("/status", c.UpdateSystemStatus)

	systemGroup.GET("/settings", c.GetSettings)
	systemGroup.POST("/settings", c.UpsertSettings, c.IdempotencyMiddleware())
}

// GetSystemStatus handles GET /api/v2/system/status
func (c *Controller) GetSystemStatus(ctx echo.Context) error {
	status, err := c.Core.GetStatus(ctx.Request().Context())
	if err != nil {
		return c.handleCoreError(ctx, err, "Failed to fetch system status")
	}
	return ctx.JSON(http.StatusOK, newStatusResponse(status))
}

// UpdateSystemStatus handles POST /api/v2/system/status
func (c *Controller) UpdateSystemStatus(ctx echo.Context) error {
	var req StatusUpdateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid status update body", http.StatusBadRequest)
	}

	status, err := c.Core.ApplyStatusUpdate(ctx.Request().Context(), req.update())
	if err != nil {
		return c.handleCoreError(ctx, err, "Failed to update system status")
	}
	return ctx.JSON(http.StatusOK, newStatusResponse(status))
}

// GetSettings handles GET /api/v2/system/settings
func (c *Controller) GetSettings(ctx echo.Context) error {
	settings, err := c.Core.GetSettings(ctx.Request().Context())
	if err != nil {
		return c.handleCoreError(ctx, err, "Failed to fetch system settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

// UpsertSettings handles POST /api/v2/system/settings. Scalar JSON values
// are stored in their textual form.
func (c *Controller) UpsertSettings(ctx echo.Context) error {
	var body map[string]any
	dec := json.NewDecoder(ctx.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return c.HandleError(ctx, err, "Invalid settings body", http.StatusBadRequest)
	}

	entries := make(map[string]string, len(body))
	for key, value := range body {
		s, err := settingValue(value)
		if err != nil {
			return c.HandleError(ctx, fmt.Errorf("setting %q: %w", key, err), "Invalid settings body", http.StatusBadRequest)
		}
		entries[key] = s
	}

	settings, err := c.Core.UpsertSettings(ctx.Request().Context(), entries)
	if err != nil {
		return c.handleCoreError(ctx, err, "Failed to update system settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

// settingValue renders a decoded JSON scalar as a setting string
func settingValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	case nil:
		return "", fmt.Errorf("value must not be null")
	default:
		return "", fmt.Errorf("value must be a string, number or boolean")
	}
}
