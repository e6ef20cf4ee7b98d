package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
)

// Publisher sends booking events to RabbitMQ.  The connection is opened
// lazily and reopened after a failure; a broker outage only costs the
// events published while it lasts.
type Publisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// PublishBookingConfirmed publishes ev as a persistent JSON message.
// Errors are logged and returned so callers can ignore them.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	log := logger.FromContext(ctx)
	body, err := json.Marshal(ev)
	if err != nil {
		log.Error("rabbitmq: marshal event failed", "err", err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		log.Warn("rabbitmq: channel unavailable", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		p.reset()
		log.Warn("rabbitmq: queue declare failed", "err", err)
		return err
	}
	err = ch.PublishWithContext(ctx, "", BookingConfirmedQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    logger.RequestID(ctx),
		Body:         body,
	})
	if err != nil {
		p.reset()
		log.Warn("rabbitmq: publish failed", "err", err, "booking_id", ev.BookingID)
		return err
	}
	return nil
}

// Close shuts the connection down.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, err
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		p.reset()
		return nil, err
	}
	return ch, nil
}

func (p *Publisher) reset() {
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
