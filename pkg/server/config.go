package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultPort         = ":12312"
	DefaultSSHPort      = ":2222"
	DefaultWorkers      = 8
	DefaultQueueSize    = 64
	DefaultIdleTimeout  = 30 * time.Minute
	DefaultWriteTimeout = 10 * time.Second
	DefaultShutdownWait = 3 * time.Second
)

var ErrInvalidConfig = errors.New("invalid server config")

type Config struct {
	// Addr is the TCP address game clients connect to.
	Addr string `validate:"required"`
	// Workers is the number of goroutines connections are spread over.
	Workers int `validate:"min=1,max=1024"`
	// QueueSize bounds each worker's event channel.
	QueueSize int `validate:"min=1"`
	// IdleTimeout closes connections that sent nothing for that long. Zero
	// disables it.
	IdleTimeout  time.Duration `validate:"min=0"`
	WriteTimeout time.Duration `validate:"min=0"`
	ShutdownWait time.Duration `validate:"min=0"`

	SSHAddr      string `validate:"omitempty,hostname_port"`
	HostKeyFile  string
	ClientBinary string `validate:"required_with=SSHAddr"`

	StatusAddr string `validate:"omitempty,hostname_port"`
}

func DefaultConfig() Config {
	return Config{
		Addr:         DefaultPort,
		Workers:      DefaultWorkers,
		QueueSize:    DefaultQueueSize,
		IdleTimeout:  DefaultIdleTimeout,
		WriteTimeout: DefaultWriteTimeout,
		ShutdownWait: DefaultShutdownWait,
	}
}

var validate = validator.New()

// Validate checks c and reports every offending field at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, ", "))
}
