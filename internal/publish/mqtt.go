// Package publish republishes decoded characters to an MQTT broker, for a
// receive session to feed a logging or dashboard consumer elsewhere on the
// network.
//
// Grounded on madpsy-ka9q_ubersdr/mqtt_publisher.go's client construction
// (NewClientOptions/AddBroker/SetClientID/Connect().Wait(), auto-reconnect,
// async Publish with a background error check) trimmed to a single
// publish-on-decode call instead of a ticker-driven metrics sweep.
package publish

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// CharacterEvent is one decoded character, published as JSON.
type CharacterEvent struct {
	Timestamp int64  `json:"timestamp"`
	Receiver  string `json:"receiver"`
	Character string `json:"character"`
	WPM       int    `json:"wpm"`
}

// Publisher republishes receiver output to an MQTT topic.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// New connects to brokerURL and returns a Publisher that republishes to
// topic. The client ID is randomized so multiple receivers on the same host
// don't collide.
func New(brokerURL, topic string) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(generateClientID())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Printf("publish: connected to %s", brokerURL)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("publish: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("publish: connect to %s: %w", brokerURL, token.Error())
	}

	return &Publisher{client: client, topic: topic}, nil
}

func generateClientID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "cwengine_" + hex.EncodeToString(b)
}

// PublishCharacter republishes one decoded character asynchronously; errors
// are logged rather than returned so a slow or unreachable broker never
// blocks the receive loop.
func (p *Publisher) PublishCharacter(receiver, character string, wpm int, ts time.Time) {
	if p == nil || !p.client.IsConnected() {
		return
	}

	data, err := json.Marshal(CharacterEvent{
		Timestamp: ts.Unix(),
		Receiver:  receiver,
		Character: character,
		WPM:       wpm,
	})
	if err != nil {
		log.Printf("publish: marshal character event: %v", err)
		return
	}

	token := p.client.Publish(p.topic, 0, false, data)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("publish: publish to %s: %v", p.topic, token.Error())
		}
	}()
}

// Disconnect gracefully closes the broker connection.
func (p *Publisher) Disconnect() {
	if p != nil && p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
