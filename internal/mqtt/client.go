// client.go: paho-backed subscriber for pipeline events.
package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/helmetwatch/internal/errors"
	"github.com/tphakala/helmetwatch/internal/logger"
	"github.com/tphakala/helmetwatch/internal/observability/metrics"
)

// Subscriber connects to the broker and routes messages to a Handler.
type Subscriber struct {
	config  Config
	handler *Handler
	metrics *metrics.MQTTMetrics
	log     logger.Logger

	mu      sync.Mutex
	client  pahomqtt.Client
	baseCtx context.Context
}

// NewSubscriber creates a subscriber. metrics may be nil.
func NewSubscriber(cfg Config, handler *Handler, m *metrics.MQTTMetrics, log logger.Logger) *Subscriber {
	if log == nil {
		log = GetLogger()
	}
	return &Subscriber{config: cfg, handler: handler, metrics: m, log: log}
}

// Run connects, subscribes and blocks until ctx is canceled. The broker
// connection is re-established automatically after it drops; topics are
// subscribed again on every connect.
func (s *Subscriber) Run(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.client = pahomqtt.NewClient(s.clientOptions())
	client := s.client
	s.mu.Unlock()

	token := client.Connect()
	if !token.WaitTimeout(s.config.ConnectTimeout) {
		client.Disconnect(uint(s.config.DisconnectTimeout.Milliseconds()))
		return connectionError(fmt.Errorf("connection timeout after %s", s.config.ConnectTimeout), s.config.Broker)
	}
	if err := token.Error(); err != nil {
		return connectionError(err, s.config.Broker)
	}

	<-ctx.Done()

	s.log.Info("disconnecting from MQTT broker")
	client.Disconnect(uint(s.config.DisconnectTimeout.Milliseconds()))
	s.setConnected(false)
	return nil
}

// IsConnected reports whether the broker connection is up.
func (s *Subscriber) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil && s.client.IsConnected()
}

func (s *Subscriber) clientOptions() *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(s.config.Broker)
	opts.SetClientID(s.config.ClientID)
	opts.SetUsername(s.config.Username)
	opts.SetPassword(s.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(s.config.ConnectTimeout)
	opts.SetOnConnectHandler(s.onConnect)
	opts.SetConnectionLostHandler(s.onConnectionLost)
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		if s.metrics != nil {
			s.metrics.IncrementReconnectAttempts()
		}
	})
	return opts
}

func (s *Subscriber) onConnect(client pahomqtt.Client) {
	s.log.Info("connected to MQTT broker", logger.String("broker", s.config.Broker))
	s.setConnected(true)

	topics := s.config.Topics()
	filters := map[string]byte{
		topics[kindViolation]: s.config.QoS,
		topics[kindStatus]:    s.config.QoS,
	}
	// runs on paho's goroutine, so wait for the ack off it
	token := client.SubscribeMultiple(filters, s.route)
	go func() {
		if token.WaitTimeout(s.config.ConnectTimeout) && token.Error() == nil {
			s.log.Info("subscribed to pipeline topics",
				logger.String("violations", topics[kindViolation]),
				logger.String("status", topics[kindStatus]))
			return
		}
		s.log.Error("failed to subscribe to pipeline topics", logger.Error(token.Error()))
	}()
}

func (s *Subscriber) onConnectionLost(_ pahomqtt.Client, err error) {
	s.log.Warn("connection to MQTT broker lost", logger.String("broker", s.config.Broker), logger.Error(err))
	s.setConnected(false)
}

// route dispatches a message by topic
func (s *Subscriber) route(_ pahomqtt.Client, msg pahomqtt.Message) {
	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()
	if base == nil {
		base = context.Background()
	}

	ctx, cancel := context.WithTimeout(base, s.config.HandlerTimeout)
	defer cancel()

	topics := s.config.Topics()
	switch msg.Topic() {
	case topics[kindViolation]:
		_ = s.handler.HandleViolation(ctx, msg.Payload())
	case topics[kindStatus]:
		_ = s.handler.HandleStatus(ctx, msg.Payload())
	default:
		s.log.Debug("ignoring message on unexpected topic", logger.String("topic", msg.Topic()))
	}
}

func (s *Subscriber) setConnected(connected bool) {
	if s.metrics != nil {
		s.metrics.UpdateConnectionStatus(connected)
	}
}

func connectionError(err error, broker string) error {
	return errors.New(err).
		Component("mqtt").
		Category(errors.CategoryMQTTConnection).
		Context("broker", broker).
		Build()
}
