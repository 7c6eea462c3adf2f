package rabbitmq

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher emits domain events onto the message broker. A noop
// implementation is used when no broker is configured so the delivery
// path never depends on RabbitMQ being reachable.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event interface{}) error
	Close() error
}

type publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (noopPublisher) Close() error                                       { return nil }

// NewPublisher connects to RabbitMQ and declares the topic exchange.
// When url is empty or the connection fails, a noop publisher is
// returned and the service keeps running without broker events.
func NewPublisher(url, exchange string) Publisher {
	if url == "" {
		return noopPublisher{}
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		log.Printf("rabbitmq: dial failed, continuing without broker: %v", err)
		return noopPublisher{}
	}

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel failed, continuing without broker: %v", err)
		conn.Close()
		return noopPublisher{}
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: exchange declare failed, continuing without broker: %v", err)
		ch.Close()
		conn.Close()
		return noopPublisher{}
	}

	return &publisher{conn: conn, channel: ch, exchange: exchange}
}

func (p *publisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
}

func (p *publisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
