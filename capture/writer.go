package capture

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/sirupsen/logrus"

	"github.com/samaelod/aileron/types"
)

const (
	defaultBatchSize     = 10
	defaultFlushInterval = 100 * time.Millisecond
	queueSize            = 256
	snapLen              = 65535
)

// LinkTypeUser0 (DLT_USER0). Every record is one direction byte followed by
// the raw frame.
const LinkTypeUser0 = layers.LinkType(147)

type record struct {
	at   time.Time
	data []byte
}

// Writer streams telemetry frames into a pcap file from a background
// goroutine, flushing in small batches.
type Writer struct {
	mu     sync.Mutex
	out    io.WriteCloser
	pcap   *pcapgo.Writer
	ch     chan record
	closed bool
	done   chan struct{}

	logger  *logrus.Logger
	written atomic.Uint64
	dropped atomic.Uint64
}

// Create opens path (creating parent directories) and starts a writer.
func Create(path string, logger *logrus.Logger) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create capture dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	w, err := NewWriter(f, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func NewWriter(out io.WriteCloser, logger *logrus.Logger) (*Writer, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	pw := pcapgo.NewWriter(out)
	if err := pw.WriteFileHeader(snapLen, LinkTypeUser0); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}

	w := &Writer{
		out:    out,
		pcap:   pw,
		ch:     make(chan record, queueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go w.writer()
	return w, nil
}

// WriteFrame queues one frame. It never blocks; frames are dropped when the
// queue is full or the writer is closed.
func (w *Writer) WriteFrame(at time.Time, dir types.Direction, frame []byte) {
	if w == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	data := make([]byte, 0, len(frame)+1)
	data = append(data, byte(dir))
	data = append(data, frame...)

	select {
	case w.ch <- record{at: at, data: data}:
	default:
		w.dropped.Add(1)
	}
}

func (w *Writer) writer() {
	defer close(w.done)

	batch := make([]record, 0, defaultBatchSize)
	ticker := time.NewTicker(defaultFlushInterval)
	defer ticker.Stop()

	flush := func() {
		for _, r := range batch {
			ci := gopacket.CaptureInfo{
				Timestamp:     r.at,
				CaptureLength: len(r.data),
				Length:        len(r.data),
			}
			if err := w.pcap.WritePacket(ci, r.data); err != nil {
				w.logger.WithError(err).Warn("Capture write failed")
				continue
			}
			w.written.Add(1)
		}
		batch = batch[:0]
	}

	for {
		select {
		case r, ok := <-w.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, r)
			if len(batch) >= defaultBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Close flushes pending frames and closes the output.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()

	<-w.done
	w.logger.WithFields(logrus.Fields{
		"written": w.written.Load(),
		"dropped": w.dropped.Load(),
	}).Info("Capture closed")
	return w.out.Close()
}

func (w *Writer) Written() uint64 { return w.written.Load() }
func (w *Writer) Dropped() uint64 { return w.dropped.Load() }
