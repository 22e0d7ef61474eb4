// Package changebridge adapts an MQTT topic stream into ChangeEvents,
// implementing the "change-producer" collaborator spec.md §6 leaves
// abstract for a concrete remote source. It is grounded directly on
// the teacher's sio/siomq MQTT client construction (broker URL,
// client id, keep-alive, clean session) using
// github.com/eclipse/paho.mqtt.golang — a direct teacher dependency —
// but is a pure change source: the core engine never imports this
// package or knows it exists.
package changebridge

import (
	"encoding/json"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/graphrules/engine/ast"
	"github.com/graphrules/engine/events"
)

// Bridge subscribes to one MQTT topic whose payload is the JSON
// encoding of an ast.ChangeEvent and re-emits each decoded message to
// an Emitter.
type Bridge struct {
	client  mqtt.Client
	topic   string
	emitter *events.Emitter
	logger  *slog.Logger
}

// Config names the broker connection and topic to bridge.
type Config struct {
	BrokerURL string
	ClientID  string
	Topic     string
}

// New constructs (but does not connect) a Bridge.
func New(cfg Config, emitter *events.Emitter, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{topic: cfg.Topic, emitter: emitter, logger: logger}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.AutoReconnect = true
	opts.CleanSession = true
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		b.logger.Warn("changebridge: connection lost", slog.String("error", err.Error()))
	}
	opts.DefaultPublishHandler = func(_ mqtt.Client, msg mqtt.Message) {
		b.handle(msg)
	}

	b.client = mqtt.NewClient(opts)
	return b
}

// Start connects to the broker and subscribes to the configured
// topic. It blocks until the connection attempt completes.
func (b *Bridge) Start() error {
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	token := b.client.Subscribe(b.topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		b.handle(msg)
	})
	token.Wait()
	return token.Error()
}

// Stop disconnects from the broker.
func (b *Bridge) Stop() {
	b.client.Disconnect(250)
}

func (b *Bridge) handle(msg mqtt.Message) {
	var event ast.ChangeEvent
	if err := json.Unmarshal(msg.Payload(), &event); err != nil {
		b.logger.Warn("changebridge: malformed change event payload",
			slog.String("topic", msg.Topic()), slog.String("error", err.Error()))
		return
	}
	b.emitter.Emit(event)
}
