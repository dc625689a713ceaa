// Package mqtt provides request/response messaging over an MQTT broker.
// The appeal bot uses it to ask the game server side for account links.
package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/PancyStudios/AppealBotGo/pkg/logger"
)

const (
	requestPrefix  = "appeal/request/"
	responsePrefix = "appeal/response/"
)

// MqttRequest represents an MQTT request message
type MqttRequest struct {
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload,omitempty"`
}

// MqttResponse represents an MQTT response message
type MqttResponse struct {
	CorrelationID string          `json:"correlationId"`
	Data          json.RawMessage `json:"data"`
	Error         string          `json:"error,omitempty"`
}

// RemoteError is an error string returned by the responder
type RemoteError struct {
	Topic   string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("mqtt %s: %s", e.Topic, e.Message)
}

// brokerClient is the subset of mqtt.Client used here
type brokerClient interface {
	IsConnected() bool
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// MqttCommunicator handles MQTT communication
type MqttCommunicator struct {
	client brokerClient
}

var (
	communicator *MqttCommunicator
	once         sync.Once
)

// Init initializes the global MQTT communicator
func Init(host, port, username, password, clientID string) *MqttCommunicator {
	once.Do(func() {
		communicator = NewMqttCommunicator(host, port, username, password, clientID)
	})
	return communicator
}

// NewMqttCommunicator creates a new MQTT communicator and connects in the background
func NewMqttCommunicator(host, port, username, password, clientID string) *MqttCommunicator {
	uniqueID := fmt.Sprintf("%s_%s", clientID, uuid.New().String())

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port)).
		SetClientID(uniqueID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Подключено к MQTT брокеру как %s", clientID), "MQTT")
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("Соединение MQTT потеряно: %v", err), "MQTT")
		})

	client := mqtt.NewClient(opts)

	// with ConnectRetry the token only completes once connected
	token := client.Connect()
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		logger.Error(fmt.Sprintf("Ошибка подключения MQTT: %v", token.Error()), "MQTT")
	}

	return newCommunicator(client)
}

func newCommunicator(client brokerClient) *MqttCommunicator {
	return &MqttCommunicator{client: client}
}

// Destroy closes the MQTT connection
func (mc *MqttCommunicator) Destroy() {
	if mc.client != nil && mc.client.IsConnected() {
		mc.client.Disconnect(250)
		logger.System("Соединение MQTT закрыто.", "MQTT")
	} else {
		logger.Warn("Клиент MQTT не был подключен.", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (mc *MqttCommunicator) IsConnected() bool {
	return mc.client != nil && mc.client.IsConnected()
}

// GetStatus reports the broker connection for the status API
func (mc *MqttCommunicator) GetStatus() (string, bool) {
	if mc.IsConnected() {
		return "🟢 | В сети", true
	}
	return "🔴 | Отключен", false
}

// Publish sends a message to a topic
func (mc *MqttCommunicator) Publish(topic string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := mc.client.Publish(topic, 0, false, jsonData)
	token.Wait()
	return token.Error()
}

// Request publishes payload on the request topic and waits for the matching response
// until ctx is done. A responder error comes back as *RemoteError.
func (mc *MqttCommunicator) Request(ctx context.Context, topic string, payload interface{}) (json.RawMessage, error) {
	if !mc.IsConnected() {
		return nil, fmt.Errorf("mqtt %s: not connected", topic)
	}

	correlationID := uuid.New().String()
	requestTopic := requestPrefix + topic
	responseTopic := fmt.Sprintf("%s%s/%s", responsePrefix, topic, correlationID)

	responseChan := make(chan MqttResponse, 1)
	errChan := make(chan error, 1)

	token := mc.client.Subscribe(responseTopic, 0, func(c mqtt.Client, msg mqtt.Message) {
		var response MqttResponse
		if err := json.Unmarshal(msg.Payload(), &response); err != nil {
			select {
			case errChan <- fmt.Errorf("mqtt %s: invalid response: %w", topic, err):
			default:
			}
			return
		}
		if response.CorrelationID != correlationID {
			return
		}
		select {
		case responseChan <- response:
		default:
		}
	})
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt %s: subscribe: %w", topic, token.Error())
	}
	defer mc.client.Unsubscribe(responseTopic)

	if err := mc.Publish(requestTopic, MqttRequest{CorrelationID: correlationID, Payload: payload}); err != nil {
		return nil, fmt.Errorf("mqtt %s: publish: %w", topic, err)
	}

	select {
	case response := <-responseChan:
		if response.Error != "" {
			return nil, &RemoteError{Topic: topic, Message: response.Error}
		}
		return response.Data, nil
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("mqtt %s: %w", topic, ctx.Err())
	}
}
