package config

import "time"

// Config — вся конфигурация процесса.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	RabbitMQ   RabbitMQConfig   `mapstructure:"rabbitmq"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Generator  GeneratorConfig  `mapstructure:"generator"`
	PublishAPI PublishAPIConfig `mapstructure:"publish_api"`
	Tasks      TasksConfig      `mapstructure:"tasks"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Poller     PollerConfig     `mapstructure:"poller"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Pool       PoolConfig       `mapstructure:"pool"`
}

// LogConfig — настройки логирования.
type LogConfig struct {
	Format string `mapstructure:"format" validate:"oneof=json text"`
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// DatabaseConfig — PostgreSQL.
type DatabaseConfig struct {
	URL      string `mapstructure:"url" validate:"required"`
	MaxConns int32  `mapstructure:"max_conns" validate:"gte=0"`
}

// RedisConfig — Redis для блокировок планировщика. Пустой Addr — без Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// RabbitMQConfig — шина событий. Пустой URL — без RabbitMQ.
type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Prefetch int    `mapstructure:"prefetch" validate:"gte=0"`
}

// HTTPConfig — адреса HTTP серверов.
type HTTPConfig struct {
	// Addr — адрес API (контентный webhook, задачи, /metrics).
	Addr string `mapstructure:"addr" validate:"required"`

	// MetricsAddr — адрес /healthz и /metrics для worker и scheduler.
	MetricsAddr string `mapstructure:"metrics_addr" validate:"required"`
}

// GeneratorConfig — внешний процесс генерации.
type GeneratorConfig struct {
	Binary        string        `mapstructure:"binary" validate:"required"`
	Args          []string      `mapstructure:"args"`
	CreateTimeout time.Duration `mapstructure:"create_timeout" validate:"gt=0"`
	QueryTimeout  time.Duration `mapstructure:"query_timeout" validate:"gt=0"`
}

// PublishAPIConfig — внешний API публикации.
type PublishAPIConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// TasksConfig — задачи генерации.
type TasksConfig struct {
	// Timeout — дедлайн задачи после отправки.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`

	// CallbackBaseURL — база webhook для генератора. Пусто — только опрос.
	CallbackBaseURL string `mapstructure:"callback_base_url" validate:"omitempty,url"`
}

// WebhookConfig — приём событий генератора.
type WebhookConfig struct {
	// Secret — ключ HMAC подписи. Пусто — подпись не проверяется.
	Secret string `mapstructure:"secret"`
}

// WorkerConfig — пул воркеров.
type WorkerConfig struct {
	Count         int           `mapstructure:"count" validate:"gt=0"`
	QueueSize     int           `mapstructure:"queue_size" validate:"gt=0"`
	PollInterval  time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	PollBatch     int           `mapstructure:"poll_batch" validate:"gt=0"`
	SubmitTimeout time.Duration `mapstructure:"submit_timeout" validate:"gt=0"`
	StopTimeout   time.Duration `mapstructure:"stop_timeout" validate:"gt=0"`
}

// PollerConfig — опрос статуса у генератора.
type PollerConfig struct {
	Interval    time.Duration `mapstructure:"interval" validate:"gt=0"`
	Concurrency int           `mapstructure:"concurrency" validate:"gt=0"`
}

// SchedulerConfig — планировщик.
type SchedulerConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	Overlap      string        `mapstructure:"overlap" validate:"oneof=allow skip"`
	LockTTL      time.Duration `mapstructure:"lock_ttl" validate:"gt=0"`
}

// PoolConfig — пул публикаций.
type PoolConfig struct {
	BatchSize  int `mapstructure:"batch_size" validate:"gt=0"`
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`
}
