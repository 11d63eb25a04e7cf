package ethclient

import (
	"context"
	"fmt"
	"time"

	"github.com/AlexMickh/exoterra-chat/pkg/utils/retry"
	"github.com/ethereum/go-ethereum/ethclient"
)

// New dials the JSON-RPC endpoint and makes sure the node answers before
// returning the client.
func New(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	const op = "eth-client.New"

	var client *ethclient.Client

	err := retry.WithDelay(5, 500*time.Millisecond, func() error {
		c, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if _, err := c.ChainID(ctx); err != nil {
			c.Close()
			return fmt.Errorf("%s: %w", op, err)
		}

		client = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return client, nil
}
