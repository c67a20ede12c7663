package publisher

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/okian/kinetica/pkg/logger"
)

// Option applies a configuration option to the MQTTPublisher.
type Option func(*MQTTPublisher)

// WithClientID sets the MQTT client id.
func WithClientID(id string) Option {
	return func(p *MQTTPublisher) {
		if id != "" {
			p.clientID = id
		}
	}
}

// WithTopicPrefix sets the root of every published topic.
func WithTopicPrefix(prefix string) Option {
	return func(p *MQTTPublisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithQoS sets the delivery level for every message.
func WithQoS(qos byte) Option {
	return func(p *MQTTPublisher) {
		if qos <= 2 {
			p.qos = qos
		}
	}
}

// WithTimeout bounds connect and publish acknowledgements.
func WithTimeout(d time.Duration) Option {
	return func(p *MQTTPublisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithClient replaces the paho client, mainly for tests.
func WithClient(c mqtt.Client) Option {
	return func(p *MQTTPublisher) {
		p.client = c
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *MQTTPublisher) {
		if l != nil {
			p.logger = l
		}
	}
}
