package logging

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	errEmptyAddr     = errors.New("logstash: empty address")
	errRetryCooldown = errors.New("logstash: retry cooldown in effect")
)

// LogstashWriter ships JSON log lines to a Logstash TCP input over one kept
// connection. Writes never fail the caller: while Logstash is unreachable the
// lines are dropped and counted, and reconnects wait out a cooldown.
type LogstashWriter struct {
	addr          string
	dialer        net.Dialer
	writeTimeout  time.Duration
	retryInterval time.Duration
	now           func() time.Time

	mu        sync.Mutex
	conn      net.Conn
	nextRetry time.Time
	closed    bool

	dropped atomic.Uint64
}

type Option func(*LogstashWriter)

// WithDialTimeout overrides the 2s dial timeout.
func WithDialTimeout(d time.Duration) Option {
	return func(w *LogstashWriter) { w.dialer.Timeout = d }
}

// WithWriteTimeout overrides the 1s write deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(w *LogstashWriter) { w.writeTimeout = d }
}

// WithRetryInterval overrides the 5s cooldown after a failed dial or write.
func WithRetryInterval(d time.Duration) Option {
	return func(w *LogstashWriter) { w.retryInterval = d }
}

func NewLogstashWriter(addr string, opts ...Option) (*LogstashWriter, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errEmptyAddr
	}
	w := &LogstashWriter{
		addr:          addr,
		dialer:        net.Dialer{Timeout: 2 * time.Second},
		writeTimeout:  time.Second,
		retryInterval: 5 * time.Second,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Write sends one log line, newline terminated.
func (w *LogstashWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	line := p
	if p[len(p)-1] != '\n' {
		line = make([]byte, len(p), len(p)+1)
		copy(line, p)
		line = append(line, '\n')
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, io.ErrClosedPipe
	}
	if err := w.connectLocked(); err != nil {
		w.dropped.Add(1)
		return len(p), nil
	}
	if w.writeTimeout > 0 {
		_ = w.conn.SetWriteDeadline(w.now().Add(w.writeTimeout))
	}
	if _, err := w.conn.Write(line); err != nil {
		w.dropped.Add(1)
		w.disconnectLocked()
		w.nextRetry = w.now().Add(w.retryInterval)
	}
	return len(p), nil
}

// Dropped reports how many lines were discarded.
func (w *LogstashWriter) Dropped() uint64 {
	return w.dropped.Load()
}

func (w *LogstashWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.disconnectLocked()
}

func (w *LogstashWriter) connectLocked() error {
	if w.conn != nil {
		return nil
	}
	if w.now().Before(w.nextRetry) {
		return errRetryCooldown
	}
	conn, err := w.dialer.Dial("tcp", w.addr)
	if err != nil {
		w.nextRetry = w.now().Add(w.retryInterval)
		return err
	}
	w.conn = conn
	w.nextRetry = time.Time{}
	return nil
}

func (w *LogstashWriter) disconnectLocked() error {
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}
