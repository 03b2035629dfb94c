package camunda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"interview-sync/internal/common/config"
)

const defaultRequestTimeout = 10 * time.Second

// Client owns the gateway connection shared by every job worker.
type Client struct {
	zbc            zbc.Client
	address        string
	requestTimeout time.Duration
}

// NewClient dials the configured gateway and fails unless the topology
// reports at least one broker.
func NewClient(cfg config.CamundaConfig) (*Client, error) {
	timeout := config.GetDuration(cfg.RequestTimeout)
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	zc, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{zbc: zc, address: cfg.BrokerAddress, requestTimeout: timeout}
	if err := c.HealthCheck(context.Background()); err != nil {
		zc.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.zbc
}

func (c *Client) Close() error {
	return c.zbc.Close()
}

// HealthCheck asks the gateway for its topology. It doubles as the readiness
// probe for the zeebe dependency.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	topology, err := c.zbc.NewTopologyCommand().Send(ctx)
	if err != nil {
		return fmt.Errorf("zeebe gateway %s unreachable: %w", c.address, err)
	}
	if len(topology.GetBrokers()) == 0 {
		return errors.New("zeebe gateway " + c.address + " reports no brokers")
	}
	return nil
}
