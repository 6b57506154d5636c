package config

import (
	"errors"
	"time"
)

const (
	defaultQueuePrefetch          = 10
	defaultQueueProcessingTimeout = 10 * time.Second
	defaultQueueReconnectDelay    = 5 * time.Second
)

type QueueConfig struct {
	URL               string        `mapstructure:"url"`
	ActivityQueue     string        `mapstructure:"activity-queue"`
	Prefetch          int           `mapstructure:"prefetch"`
	ProcessingTimeout time.Duration `mapstructure:"processing-timeout"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect-delay"`
}

func (cfg *QueueConfig) Validate() error {
	if cfg.URL == "" {
		return errors.New("queue url is required")
	}

	if cfg.ActivityQueue == "" {
		return errors.New("queue activity-queue is required")
	}

	if cfg.Prefetch <= 0 {
		cfg.Prefetch = defaultQueuePrefetch
	}
	if cfg.ProcessingTimeout <= 0 {
		cfg.ProcessingTimeout = defaultQueueProcessingTimeout
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultQueueReconnectDelay
	}

	return nil
}
