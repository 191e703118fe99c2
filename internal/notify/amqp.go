package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const ordersExchange = "orders_topic"

// AMQPPublisher pushes order events onto a durable topic exchange with
// routing keys of the form orders.<outlet>.<event>, so a kitchen consumer
// can bind orders.<outlet>.* and a monitoring consumer orders.#.
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func DialAMQP(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(ordersExchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	key := fmt.Sprintf("orders.%s.%s", ev.OutletID, routingSuffix(ev.Type))
	return p.ch.PublishWithContext(ctx, ordersExchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		Body:         body,
	})
}

// routingSuffix turns "order:statusUpdated" into "statusUpdated".
func routingSuffix(eventType string) string {
	if i := strings.IndexByte(eventType, ':'); i >= 0 {
		return eventType[i+1:]
	}
	return eventType
}
