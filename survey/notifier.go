package survey

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultNotifyTopic is the topic sync events are published to when the
// config does not name one.
const DefaultNotifyTopic = "sfla/sync"

// SyncEvent is the message published after a committed reconciliation.
type SyncEvent struct {
	Source    string `json:"source"`
	Added     int    `json:"added"`
	Removed   int    `json:"removed"`
	Modified  int    `json:"modified"`
	Unchanged int    `json:"unchanged"`
	Shapes    int    `json:"shapes"`
	Routes    int    `json:"routes"`
	Points    int    `json:"points"`
	Timestamp int64  `json:"timestamp"`
}

// Notifier publishes sync events to MQTT so dashboards watching the
// inventory can refresh. A nil client disables publishing.
type Notifier struct {
	client mqtt.Client
	topic  string
	qos    byte
	retain bool
}

// NewNotifier creates a notifier publishing to the given topic.
// If client is nil, publishing is disabled.
func NewNotifier(client mqtt.Client, topic string) *Notifier {
	if topic == "" {
		topic = DefaultNotifyTopic
	}
	return &Notifier{
		client: client,
		topic:  topic,
		qos:    1,    // sync events are rare; make delivery reliable
		retain: true, // retain so late subscribers see the last sync
	}
}

// PublishSyncEvent publishes one event. It is a no-op when the notifier is
// disabled.
func (n *Notifier) PublishSyncEvent(event *SyncEvent) error {
	if n == nil || n.client == nil {
		return nil
	}
	if !n.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling sync event: %w", err)
	}

	token := n.client.Publish(n.topic, n.qos, n.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", n.topic, token.Error())
	}
	return nil
}

// ConnectNotifier dials the configured broker and returns a ready notifier.
// Returns a disabled notifier when cfg is nil.
func ConnectNotifier(cfg *MQTTConfig) (*Notifier, error) {
	if cfg == nil {
		return NewNotifier(nil, ""), nil
	}

	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker)
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "sfla-tracker"
	}
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connecting to MQTT broker %s: timeout", cfg.Broker)
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", cfg.Broker, token.Error())
	}

	return NewNotifier(client, cfg.Topic), nil
}
