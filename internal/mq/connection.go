package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	initialReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second
)

// ErrNoChannel — соединение сейчас не установлено.
var ErrNoChannel = errors.New("amqp channel not available")

// Connection держит AMQP соединение и один канал, общий для публикации
// событий и потребления generator.events. После разрыва соединение
// восстанавливается с экспоненциальной задержкой, топология
// объявляется заново, а ожидающие Reconnected() получают сигнал.
type Connection struct {
	url    string
	logger *slog.Logger

	mu          sync.RWMutex
	conn        *amqp.Connection
	channel     *amqp.Channel
	reconnected chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

// NewConnection подключается к RabbitMQ и объявляет топологию.
func NewConnection(ctx context.Context, url string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Connection{
		url:         url,
		logger:      logger,
		reconnected: make(chan struct{}),
		done:        make(chan struct{}),
	}

	if err := c.establish(ctx); err != nil {
		c.Close()
		return nil, err
	}

	go c.supervise()
	return c, nil
}

func dial(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return conn, ch, nil
}

// establish открывает соединение, подменяет текущее и объявляет топологию.
func (c *Connection) establish(ctx context.Context) error {
	conn, ch, err := dial(c.url)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn, c.channel = conn, ch
	c.mu.Unlock()

	if err := SetupTopology(ctx, c); err != nil {
		c.mu.Lock()
		c.conn, c.channel = nil, nil
		c.mu.Unlock()
		conn.Close()
		return fmt.Errorf("setup topology: %w", err)
	}
	c.logger.Info("connected to rabbitmq")
	return nil
}

// supervise ждёт разрыва текущего соединения и переподключается.
func (c *Connection) supervise() {
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		lost := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-c.done:
			return
		case amqpErr := <-lost:
			if amqpErr != nil {
				c.logger.Warn("rabbitmq connection lost", "error", amqpErr)
			}
		}

		if !c.redial() {
			return
		}
		c.broadcastReconnect()
	}
}

// redial повторяет establish, удваивая задержку до maxReconnectDelay.
// Возвращает false, если соединение закрыли во время ожидания.
func (c *Connection) redial() bool {
	delay := initialReconnectDelay
	for {
		c.logger.Info("reconnecting to rabbitmq", "delay", delay)
		select {
		case <-c.done:
			return false
		case <-time.After(delay):
		}

		err := c.establish(context.Background())
		if err == nil {
			return true
		}
		c.logger.Warn("reconnect failed", "error", err)
		delay = min(delay*2, maxReconnectDelay)
	}
}

func (c *Connection) broadcastReconnect() {
	c.mu.Lock()
	close(c.reconnected)
	c.reconnected = make(chan struct{})
	c.mu.Unlock()
}

// Channel возвращает текущий AMQP канал или nil.
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Reconnected возвращает канал, который закроется при следующем
// успешном переподключении.
func (c *Connection) Reconnected() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnected
}

// WithChannel выполняет fn с текущим каналом.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	ch := c.Channel()
	if ch == nil {
		return ErrNoChannel
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ch)
}

// Close закрывает канал и соединение. Повторный вызов ничего не делает.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		ch, conn := c.channel, c.conn
		c.channel, c.conn = nil, nil
		c.mu.Unlock()

		var errs []error
		if ch != nil {
			if cerr := ch.Close(); cerr != nil && !errors.Is(cerr, amqp.ErrClosed) {
				errs = append(errs, fmt.Errorf("close channel: %w", cerr))
			}
		}
		if conn != nil {
			if cerr := conn.Close(); cerr != nil && !errors.Is(cerr, amqp.ErrClosed) {
				errs = append(errs, fmt.Errorf("close connection: %w", cerr))
			}
		}
		err = errors.Join(errs...)
		c.logger.Info("rabbitmq connection closed")
	})
	return err
}
