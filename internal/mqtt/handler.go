package mqtt

import (
	"context"
	"encoding/json"

	"github.com/tphakala/helmetwatch/internal/coordinator"
	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/datastore/repository"
	"github.com/tphakala/helmetwatch/internal/errors"
	"github.com/tphakala/helmetwatch/internal/logger"
	"github.com/tphakala/helmetwatch/internal/observability/metrics"
)

// Ingestor is the part of the coordinator driven by pipeline messages.
type Ingestor interface {
	CreateViolation(ctx context.Context, in coordinator.ViolationInput) (*entities.Violation, error)
	ApplyStatusUpdate(ctx context.Context, update repository.StatusUpdate) (*entities.SystemStatus, error)
}

// Handler decodes pipeline payloads and applies them through an Ingestor.
type Handler struct {
	ingest  Ingestor
	metrics *metrics.MQTTMetrics
	log     logger.Logger
}

// NewHandler creates a Handler. metrics may be nil.
func NewHandler(ingest Ingestor, m *metrics.MQTTMetrics, log logger.Logger) *Handler {
	if log == nil {
		log = GetLogger()
	}
	return &Handler{ingest: ingest, metrics: m, log: log}
}

// HandleViolation records one violation payload.
func (h *Handler) HandleViolation(ctx context.Context, payload []byte) error {
	var msg ViolationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return h.reject(kindViolation, payload, payloadError(err, kindViolation))
	}

	v, err := h.ingest.CreateViolation(ctx, msg.input())
	if err != nil {
		return h.reject(kindViolation, payload, err)
	}

	h.observe(kindViolation, metrics.ResultAccepted, payload)
	h.log.Debug("violation ingested", logger.Uint("violation_id", v.ID))
	return nil
}

// HandleStatus applies one partial status payload.
func (h *Handler) HandleStatus(ctx context.Context, payload []byte) error {
	var msg StatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return h.reject(kindStatus, payload, payloadError(err, kindStatus))
	}

	if _, err := h.ingest.ApplyStatusUpdate(ctx, msg.update()); err != nil {
		return h.reject(kindStatus, payload, err)
	}

	h.observe(kindStatus, metrics.ResultAccepted, payload)
	return nil
}

// reject logs a dropped message. Caller mistakes log at warn, store failures at error.
func (h *Handler) reject(kind string, payload []byte, err error) error {
	result := metrics.ResultFailed
	log := h.log.Error
	if errors.IsValidation(err) || errors.IsCategory(err, errors.CategoryMQTTPayload) {
		result = metrics.ResultInvalid
		log = h.log.Warn
	}

	h.observe(kind, result, payload)
	log("dropping pipeline message",
		logger.String("kind", kind),
		logger.Int("size", len(payload)),
		logger.Error(err))
	return err
}

func (h *Handler) observe(kind, result string, payload []byte) {
	if h.metrics != nil {
		h.metrics.ObserveMessage(kind, result, len(payload))
	}
}

func payloadError(err error, kind string) error {
	return errors.New(err).
		Component("mqtt").
		Category(errors.CategoryMQTTPayload).
		Priority(errors.PriorityLow).
		Context("kind", kind).
		Build()
}
