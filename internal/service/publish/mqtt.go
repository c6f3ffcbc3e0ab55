package publish

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"emotioncam/internal/dto"
	"emotioncam/internal/logger"
	"emotioncam/internal/pipeline"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const publishTimeout = 2 * time.Second

// tokenPublisher is the part of mqtt.Client the publisher needs.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// ResultPublisher sends each frame report to <topic>/<camera>.
type ResultPublisher struct {
	client tokenPublisher
	topic  string
	logger *logger.Logger
	close  func()
}

// Connect dials the broker with a random client id.
func Connect(broker, topic string, logger *logger.Logger) (*ResultPublisher, error) {
	clientID := "emotioncam-" + uuid.New().String()

	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetConnectTimeout(30 * time.Second)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("📡 Connected to MQTT broker %s as %s", broker, clientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Warning("MQTT connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", broker, token.Error())
	}

	p := newResultPublisher(client, topic, logger)
	p.close = func() { client.Disconnect(250) }
	return p, nil
}

func newResultPublisher(client tokenPublisher, topic string, logger *logger.Logger) *ResultPublisher {
	return &ResultPublisher{
		client: client,
		topic:  strings.TrimSuffix(topic, "/"),
		logger: logger,
	}
}

// Topic returns the topic a camera's results go to.
func (p *ResultPublisher) Topic(camera string) string {
	return p.topic + "/" + camera
}

// Publish sends the report with QoS 0, not retained.
func (p *ResultPublisher) Publish(report pipeline.FrameReport) error {
	msg := dto.ResultMessage{
		Camera:  report.Results.Camera,
		FrameID: report.Results.FrameID,
		Status:  report.Overlay.Status,
		Results: report.Results,
	}
	if report.Frame != nil {
		msg.CapturedAt = report.Frame.CapturedAt.Format(time.RFC3339Nano)
	}
	if report.Err != nil {
		msg.Error = report.Err.Error()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	token := p.client.Publish(p.Topic(msg.Camera), 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", p.Topic(msg.Camera))
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.Topic(msg.Camera), err)
	}
	return nil
}

func (p *ResultPublisher) Close() {
	if p.close != nil {
		p.close()
	}
}
