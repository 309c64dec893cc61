// internal/api/v2/violations.go
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/helmetwatch/internal/datastore/repository"
	"github.com/tphakala/helmetwatch/internal/errors"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// dateOnly is the short form accepted for startDate and endDate
const dateOnly = "2006-01-02"

// initViolationRoutes registers the violation ledger endpoints
func (c *Controller) initViolationRoutes() {
	violationGroup := c.Group.Group("/violations")

	violationGroup.GET("", c.ListViolations)
	violationGroup.POST("", c.CreateViolation, c.IdempotencyMiddleware())
	violationGroup.POST("/sample", c.CreateSampleViolations)
	violationGroup.GET("/:id", c.GetViolation)
	violationGroup.PUT("/:id", c.UpdateViolation)
	violationGroup.DELETE("/:id", c.DeleteViolation)
}

// ListViolations handles GET /api/v2/violations
func (c *Controller) ListViolations(ctx echo.Context) error {
	filter, err := parseViolationFilter(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid violation filter", http.StatusBadRequest)
	}
	page, err := c.parsePage(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid pagination parameters", http.StatusBadRequest)
	}

	result, err := c.Core.ListViolations(ctx.Request().Context(), filter, page)
	if err != nil {
		return c.handleCoreError(ctx, err, "Failed to fetch violations")
	}
	return ctx.JSON(http.StatusOK, newViolationListResponse(result))
}

// CreateViolation handles POST /api/v2/violations
func (c *Controller) CreateViolation(ctx echo.Context) error {
	var req CreateViolationRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid violation body", http.StatusBadRequest)
	}

	v, err := c.Core.CreateViolation(ctx.Request().Context(), req.input())
	if err != nil {
		return c.handleCoreError(ctx, err, "Failed to create violation")
	}
	return ctx.JSON(http.StatusCreated, newViolationResponse(v))
}

// CreateSampleViolations handles POST /api/v2/violations/sample
func (c *Controller) CreateSampleViolations(ctx echo.Context) error {
	inserted, err := c.Core.SeedSampleViolations(ctx.Request().Context())
	if err != nil {
		return c.handleCoreError(ctx, err, "Failed to create sample violations")
	}

	c.logger.Info("sample violations created", logger.Int("count", len(inserted)))

	return ctx.JSON(http.StatusOK, SampleResponse{
		Message:    "Sample violations created successfully",
		Count:      len(inserted),
		Violations: newViolationResponses(inserted),
	})
}

// GetViolation handles GET /api/v2/violations/:id
func (c *Controller) GetViolation(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid violation ID", http.StatusBadRequest)
	}

	v, err := c.Core.GetViolation(ctx.Request().Context(), id)
	if err != nil {
		return c.handleCoreError(ctx, err, "Violation not found")
	}
	return ctx.JSON(http.StatusOK, newViolationResponse(v))
}

// UpdateViolation handles PUT /api/v2/violations/:id
func (c *Controller) UpdateViolation(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid violation ID", http.StatusBadRequest)
	}

	var req UpdateViolationRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid violation update body", http.StatusBadRequest)
	}

	v, err := c.Core.UpdateViolation(ctx.Request().Context(), id, repository.ViolationFlags{
		Reviewed: req.Reviewed,
		Flagged:  req.Flagged,
	})
	if err != nil {
		return c.handleCoreError(ctx, err, "Failed to update violation")
	}
	return ctx.JSON(http.StatusOK, newViolationResponse(v))
}

// DeleteViolation handles DELETE /api/v2/violations/:id
func (c *Controller) DeleteViolation(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid violation ID", http.StatusBadRequest)
	}

	if err := c.Core.DeleteViolation(ctx.Request().Context(), id); err != nil {
		return c.handleCoreError(ctx, err, "Failed to delete violation")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Violation deleted successfully"})
}

func parseID(ctx echo.Context) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.Newf("violation id must be a positive integer, got %q", ctx.Param("id")).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	return uint(id), nil
}

// parseViolationFilter reads reviewed, flagged, startDate and endDate
func parseViolationFilter(ctx echo.Context) (repository.ViolationFilter, error) {
	var filter repository.ViolationFilter

	for name, dst := range map[string]**bool{
		"reviewed": &filter.Reviewed,
		"flagged":  &filter.Flagged,
	} {
		raw := ctx.QueryParam(name)
		if raw == "" {
			continue
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, errors.Newf("%s must be true or false, got %q", name, raw).
				Component("api").
				Category(errors.CategoryValidation).
				Build()
		}
		*dst = &b
	}

	if raw := ctx.QueryParam("startDate"); raw != "" {
		t, _, err := parseTimeParam(raw)
		if err != nil {
			return filter, err
		}
		filter.StartDate = &t
	}
	if raw := ctx.QueryParam("endDate"); raw != "" {
		t, dayOnly, err := parseTimeParam(raw)
		if err != nil {
			return filter, err
		}
		// a bare date includes the whole day
		if dayOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		filter.EndDate = &t
	}

	return filter, nil
}

// parseTimeParam accepts RFC3339 or YYYY-MM-DD (midnight UTC)
func parseTimeParam(raw string) (t time.Time, dayOnly bool, err error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), false, nil
	}
	if t, err := time.ParseInLocation(dateOnly, raw, time.UTC); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, errors.Newf("invalid date %q, expected RFC3339 or YYYY-MM-DD", raw).
		Component("api").
		Category(errors.CategoryValidation).
		Build()
}

// parsePage reads page and limit, clamping limit to webserver.maxpagelimit
func (c *Controller) parsePage(ctx echo.Context) (repository.Page, error) {
	var page repository.Page
	for name, dst := range map[string]*int{
		"page":  &page.Page,
		"limit": &page.Limit,
	} {
		raw := ctx.QueryParam(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, errors.Newf("%s must be an integer, got %q", name, raw).
				Component("api").
				Category(errors.CategoryValidation).
				Build()
		}
		*dst = n
	}

	page = page.Normalize()
	if maxLimit := c.Settings.WebServer.MaxPageLimit; maxLimit > 0 && page.Limit > maxLimit {
		page.Limit = maxLimit
	}
	return page, nil
}
