package domain

import (
	"fmt"
	"strings"
	"time"
)

type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkSignet  Network = "signet"
	NetworkRegtest Network = "regtest"
)

func ParseNetwork(s string) (Network, error) {
	switch n := Network(strings.ToLower(strings.TrimSpace(s))); n {
	case NetworkMainnet, NetworkTestnet, NetworkSignet, NetworkRegtest:
		return n, nil
	case "bitcoin":
		return NetworkMainnet, nil
	default:
		return "", fmt.Errorf("unknown network %q", s)
	}
}

// ConnectionConfig is handed to the ledger client as is, the session never
// inspects it.
type ConnectionConfig struct {
	Mnemonic   string
	ApiKey     string
	Network    Network
	StorageDir string
}

const (
	DefaultCheckInterval       = 2 * time.Second
	DefaultAutoMonitorPayments = true
)

type MonitorOptions struct {
	AutoMonitorPayments bool
	CheckInterval       time.Duration
}

func DefaultMonitorOptions() MonitorOptions {
	return MonitorOptions{
		AutoMonitorPayments: DefaultAutoMonitorPayments,
		CheckInterval:       DefaultCheckInterval,
	}
}
