package sink

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mqttConn is the slice of the paho client the sink needs.
type mqttConn interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

var connectBroker = func(broker, clientID string) (mqttConn, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return client, nil
}

// mqttSink publishes every received chunk to a fixed topic at QoS 0.
// Corrections are a live stream, so messages are not retained.
type mqttSink struct {
	conn  mqttConn
	topic string
}

func openMQTT(broker, topic string) (*mqttSink, error) {
	if topic == "" {
		return nil, fmt.Errorf("mqtt output needs a topic path")
	}
	conn, err := connectBroker("tcp://"+broker, "ntripping-output")
	if err != nil {
		return nil, fmt.Errorf("connect broker: %w", err)
	}
	return &mqttSink{conn: conn, topic: topic}, nil
}

func (s *mqttSink) Write(p []byte) (int, error) {
	// The broker client holds the payload past this call.
	payload := append([]byte(nil), p...)
	if token := s.conn.Publish(s.topic, 0, false, payload); token.Wait() && token.Error() != nil {
		return 0, token.Error()
	}
	return len(p), nil
}

func (s *mqttSink) Close() error {
	s.conn.Disconnect(250)
	return nil
}
