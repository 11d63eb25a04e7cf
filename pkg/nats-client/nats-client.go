package natsclient

import (
	"fmt"
	"time"

	"github.com/AlexMickh/exoterra-chat/pkg/utils/retry"
	"github.com/nats-io/nats.go"
)

func New(url string, name string) (*nats.Conn, error) {
	const op = "nats-client.New"

	var nc *nats.Conn

	err := retry.WithDelay(5, 500*time.Millisecond, func() error {
		var err error

		nc, err = nats.Connect(url,
			nats.Name(name),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(time.Second),
		)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return nc, nil
}
