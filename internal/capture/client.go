package capture

import (
	"context"
	"encoding/binary"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/alsstream/als-pipeline/internal/alserrors"
	"github.com/alsstream/als-pipeline/internal/bufpool"
	"github.com/alsstream/als-pipeline/internal/logger"
	"github.com/alsstream/als-pipeline/internal/metrics"
)

// Phase is the capture client's state machine position (spec §4.C).
type Phase int

const (
	PhaseAuth Phase = iota
	PhaseJoin
	PhaseReceivingData
)

func (p Phase) String() string {
	switch p {
	case PhaseAuth:
		return "auth"
	case PhaseJoin:
		return "join"
	case PhaseReceivingData:
		return "receiving"
	default:
		return "unknown"
	}
}

// Config configures a capture Client. New applies defaults for zero values.
type Config struct {
	Address              string
	Port                 int
	RoomID               string
	Token                string
	DataDir              string
	FilePrefix           string
	IdleTimeout          time.Duration
	TickInterval         time.Duration
	KeepAliveInterval    time.Duration
	MaxReconnectAttempts int
	ReconnectPace        time.Duration
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 9201
	}
	if c.FilePrefix == "" {
		c.FilePrefix = "capture_"
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 20 * time.Second
	}
	if c.TickInterval == 0 {
		c.TickInterval = 10 * time.Millisecond
	}
	if c.KeepAliveInterval == 0 {
		c.KeepAliveInterval = 1350 * time.Millisecond
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = 5
	}
	if c.ReconnectPace == 0 {
		c.ReconnectPace = time.Second
	}
}

// Client is the ALS capture protocol TCP actor: Auth -> Join -> Receiving,
// with a background keepalive worker and buffered persistence of the raw
// wire stream (spec §4.C).
type Client struct {
	cfg       Config
	sessionID string
	log       *slog.Logger

	conn      net.Conn
	phase     Phase
	recvBuf   []byte
	lastBytes time.Time

	persisted *PersistedBuffer
	limiter   *rate.Limiter
	keepAlive *keepAliveWorker

	running           atomic.Bool
	reconnectAttempts int
}

// New constructs a Client with defaults applied and a fresh session id.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	sessionID := uuid.NewString()
	return &Client{
		cfg:       cfg,
		sessionID: sessionID,
		log:       logger.WithSession(logger.Logger(), sessionID, cfg.RoomID),
		persisted: NewPersistedBuffer(cfg.DataDir, cfg.FilePrefix),
		limiter:   rate.NewLimiter(rate.Every(cfg.ReconnectPace), 1),
		keepAlive: newKeepAliveWorker(cfg.KeepAliveInterval),
	}
}

// Run drives the main loop until ctx is cancelled or a fatal error occurs.
// It returns nil on graceful shutdown (spec §4.C, §5).
func (c *Client) Run(ctx context.Context) error {
	c.running.Store(true)
	c.keepAlive.setRunning(true)
	defer c.running.Store(false)

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("capture client shutting down")
			return c.shutdown()
		case <-ticker.C:
			if err := c.tick(); err != nil {
				return err
			}
		}
	}
}

func (c *Client) tick() error {
	if c.conn == nil {
		// Ticks the reconnect limiter refuses are not dial attempts.
		if !c.limiter.Allow() {
			return nil
		}
		if err := c.connect(); err != nil {
			c.reconnectAttempts++
			if c.reconnectAttempts >= c.cfg.MaxReconnectAttempts {
				return alserrors.NewCaptureError("client.max_reconnect_attempts", err)
			}
			return nil
		}
		c.reconnectAttempts = 0
		c.phase = PhaseAuth
		c.lastBytes = time.Now()
		if _, err := c.conn.Write(AuthenticateRecipe(c.cfg.Token)); err != nil {
			c.disconnect()
			return nil
		}
		c.phase = PhaseJoin
		return nil
	}

	scratch := bufpool.Get(4096)
	defer bufpool.Put(scratch)

	c.conn.SetReadDeadline(time.Now().Add(c.cfg.TickInterval))
	n, err := c.conn.Read(scratch)
	if n > 0 {
		c.recvBuf = append(c.recvBuf, scratch[:n]...)
		c.lastBytes = time.Now()
	}
	if err != nil {
		if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
			c.disconnect()
			return nil
		}
	} else if n == 0 {
		c.disconnect()
		return nil
	}

	c.drainPackets()

	if time.Since(c.lastBytes) > c.cfg.IdleTimeout {
		c.log.Warn("idle timeout, disconnecting", "timeout", c.cfg.IdleTimeout)
		c.disconnect()
	}
	return nil
}

func (c *Client) drainPackets() {
	for len(c.recvBuf) >= 2 {
		totalLen := binary.BigEndian.Uint16(c.recvBuf[0:2])
		full := int(totalLen) + 2
		if len(c.recvBuf) < full {
			return
		}
		packet := c.recvBuf[:full]
		c.recvBuf = c.recvBuf[full:]
		metrics.PacketsReceived.Inc()

		trailer := makeTimestampTrailer(time.Now())
		if err := c.persisted.Append(packet); err != nil {
			c.log.Warn("persisted buffer append failed", "err", err)
		}
		if err := c.persisted.Append(trailer); err != nil {
			c.log.Warn("persisted buffer append failed", "err", err)
		}

		if c.phase == PhaseJoin {
			c.conn.Write(JoinRoomRecipe(c.cfg.RoomID))
			c.phase = PhaseReceivingData
			c.keepAlive.start(c.conn)
		}
	}
}

func makeTimestampTrailer(t time.Time) []byte {
	trailer := make([]byte, 9)
	trailer[0] = 8
	binary.BigEndian.PutUint64(trailer[1:9], uint64(t.UnixMicro()))
	return trailer
}

func (c *Client) connect() error {
	metrics.ReconnectAttempts.Inc()
	addr := net.JoinHostPort(c.cfg.Address, strconv.Itoa(c.cfg.Port))
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return alserrors.NewCaptureError("client.connect", err)
	}
	c.conn = conn
	return nil
}

func (c *Client) disconnect() {
	c.keepAlive.stop()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.recvBuf = c.recvBuf[:0]
	c.phase = PhaseAuth
}

func (c *Client) shutdown() error {
	// Order matters (spec §5): stop worker, force-flush, then close socket.
	c.keepAlive.setRunning(false)
	c.keepAlive.stop()
	if err := c.persisted.Flush(); err != nil {
		return err
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}
