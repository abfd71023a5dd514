package web

import (
	"fmt"
	"net"
	"time"
)

type Config struct {
	HTTPPort   uint32
	PayTimeout time.Duration
}

func (c Config) Validate() error {
	lis, err := net.Listen("tcp", c.httpAddress())
	if err != nil {
		return fmt.Errorf("invalid http port: %s", err)
	}
	// nolint:all
	lis.Close()

	if c.PayTimeout < 0 {
		return fmt.Errorf("invalid pay timeout %s", c.PayTimeout)
	}
	return nil
}

func (c Config) httpAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
