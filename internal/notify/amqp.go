package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the subset of *amqp.Channel used by AMQPNotifier.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// amqpSession is one live connection and the channel published on.
type amqpSession struct {
	pub  Publisher
	conn io.Closer
	// lost yields (or is closed) when the broker connection goes away.
	lost <-chan *amqp.Error
}

type dialFunc func() (*amqpSession, error)

var errAMQPClosed = errors.New("amqp notifier closed")

// AMQPNotifier publishes generation requests to a RabbitMQ exchange.
//
// A notifier from DialAMQP re-dials lazily: once the connection drops, the
// next Notify opens a new connection and channel before publishing.
type AMQPNotifier struct {
	Exchange   string
	RoutingKey string

	dial dialFunc

	mu     sync.Mutex
	sess   *amqpSession
	closed bool
}

// NewAMQPNotifier wraps an existing publisher. It never reconnects.
func NewAMQPNotifier(pub Publisher, exchange, routingKey string) *AMQPNotifier {
	return &AMQPNotifier{Exchange: exchange, RoutingKey: routingKey, sess: &amqpSession{pub: pub}}
}

// DialAMQP connects to url, opens a channel and declares exchange as a
// durable topic exchange. The first dial happens here so a bad URL or an
// unreachable broker fails startup.
func DialAMQP(url, exchange, routingKey string) (*AMQPNotifier, error) {
	n := &AMQPNotifier{
		Exchange:   exchange,
		RoutingKey: routingKey,
		dial:       func() (*amqpSession, error) { return dialSession(url, exchange) },
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := n.connectLocked(); err != nil {
		return nil, err
	}
	return n, nil
}

func dialSession(url, exchange string) (*amqpSession, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{Heartbeat: 10 * time.Second, Locale: "en_US"})
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if exchange != "" {
		err = ch.ExchangeDeclare(
			exchange, // name
			"topic",  // type
			true,     // durable
			false,    // auto-deleted
			false,    // internal
			false,    // no-wait
			nil,      // arguments
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
		}
	}
	return &amqpSession{
		pub:  ch,
		conn: conn,
		lost: conn.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

// connectLocked dials a new session and starts watching it. a.mu is held.
func (a *AMQPNotifier) connectLocked() (*amqpSession, error) {
	s, err := a.dial()
	if err != nil {
		return nil, err
	}
	a.sess = s
	if s.lost != nil {
		go a.watch(s)
	}
	return s, nil
}

// watch forgets s once its connection is lost, so the next Notify re-dials.
func (a *AMQPNotifier) watch(s *amqpSession) {
	<-s.lost
	a.drop(s)
}

func (a *AMQPNotifier) drop(s *amqpSession) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sess != s {
		return
	}
	a.sess = nil
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// session returns the live session, re-dialing if there is none.
func (a *AMQPNotifier) session() (*amqpSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.closed:
		return nil, errAMQPClosed
	case a.sess != nil:
		return a.sess, nil
	case a.dial == nil:
		return nil, amqp.ErrClosed
	}
	return a.connectLocked()
}

// Name implements Notifier.
func (a *AMQPNotifier) Name() string { return "amqp" }

// Notify publishes the JSON payload as a persistent message. The job code
// doubles as the message ID so consumers can deduplicate redeliveries.
func (a *AMQPNotifier) Notify(ctx context.Context, req GenerationRequest) error {
	body, err := Payload(req)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrDeliveryFailed, err)
	}
	s, err := a.session()
	if err != nil {
		return fmt.Errorf("%w: connect: %w", ErrDeliveryFailed, err)
	}
	err = s.pub.PublishWithContext(
		ctx,
		a.Exchange,   // exchange
		a.RoutingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    req.Code,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		// A closed channel can outlive its connection's close notice.
		if errors.Is(err, amqp.ErrClosed) && a.dial != nil {
			a.drop(s)
		}
		return fmt.Errorf("%w: publish: %w", ErrDeliveryFailed, err)
	}
	return nil
}

// Close releases the current connection and stops further re-dials. It is a
// no-op for the connection of a notifier built with NewAMQPNotifier.
func (a *AMQPNotifier) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	s := a.sess
	a.sess = nil
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
