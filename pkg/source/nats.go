package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/musyoka101/sliver-tui/pkg/logger"
	"github.com/musyoka101/sliver-tui/pkg/models"
	"github.com/musyoka101/sliver-tui/pkg/natsutil"
)

const defaultRequestTimeout = 10 * time.Second

// listReply is what the agent list service answers on the request subject.
type listReply struct {
	models.Batch
	Error string `json:"error,omitempty"`
}

// NATSSource asks a bridge service for the agent list over NATS request/reply.
type NATSSource struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
	logger  logger.Logger
	owned   bool
}

// DialNATS connects to url and returns a source that owns the connection.
func DialNATS(url, subject string, timeout time.Duration, sec *models.TLSConfig, log logger.Logger) (*NATSSource, error) {
	nc, err := natsutil.Connect(url, sec, log)
	if err != nil {
		return nil, err
	}

	s := NewNATSSource(nc, subject, timeout, log)
	s.owned = true

	return s, nil
}

// NewNATSSource wraps an existing connection, which the caller keeps owning.
func NewNATSSource(nc *nats.Conn, subject string, timeout time.Duration, log logger.Logger) *NATSSource {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &NATSSource{nc: nc, subject: subject, timeout: timeout, logger: log}
}

func (s *NATSSource) Fetch(ctx context.Context) (*models.Batch, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg, err := s.nc.RequestWithContext(reqCtx, s.subject, nil)
	if err != nil {
		return nil, fmt.Errorf("agent list request on %s failed: %w", s.subject, err)
	}

	if len(msg.Data) == 0 {
		return nil, ErrEmptyReply
	}

	var reply listReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, fmt.Errorf("failed to decode agent list: %w", err)
	}

	if reply.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRemoteFailed, reply.Error)
	}

	if reply.FetchedAt.IsZero() {
		reply.FetchedAt = time.Now()
	}

	s.logger.Debug().
		Int("sessions", len(reply.Sessions)).
		Int("beacons", len(reply.Beacons)).
		Str("subject", s.subject).
		Msg("Received agent records")

	return &reply.Batch, nil
}

func (s *NATSSource) Close() error {
	if s.owned && s.nc != nil {
		s.nc.Close()
	}

	return nil
}
