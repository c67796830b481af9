// Package binance implementa la fuente de referencia sobre el stream
// bookTicker del websocket de Binance.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/feed"
	"github.com/alejandrodnm/edgebot/internal/metrics"
)

const (
	defaultWSBase = "wss://stream.binance.com:9443"

	handshakeTimeout = 10 * time.Second
	readDeadline     = 30 * time.Second
	pingInterval     = 15 * time.Second
	maxBackoff       = 30 * time.Second
)

type bookTickerEnvelope struct {
	Stream string         `json:"stream"`
	Data   bookTickerData `json:"data"`
}

// bookTicker no trae event time: el timestamp del tick es la hora de
// recepción local.
type bookTickerData struct {
	Symbol string `json:"s"`
	Bid    string `json:"b"`
	Ask    string `json:"a"`
}

// Feed consume el bookTicker y entrega ticks normalizados uno a uno.
// Mantiene solo el tick más reciente: el consumidor decide por ciclo,
// no necesita el histórico intermedio.
type Feed struct {
	url        string
	normalizer *feed.Normalizer
	ticks      chan domain.Tick
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewFeed arranca el consumidor en background y devuelve el Feed.
// wsBase vacío usa el endpoint de producción.
func NewFeed(wsBase string, symbols []string, symbolMap map[string]string, maxAge time.Duration) (*Feed, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("binance.NewFeed: at least one symbol required")
	}
	url := streamURL(wsBase, symbols)

	ctx, cancel := context.WithCancel(context.Background())
	f := &Feed{
		url:        url,
		normalizer: feed.NewNormalizer("binance", symbolMap, maxAge),
		ticks:      make(chan domain.Tick, 1),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go f.run(ctx)
	return f, nil
}

// streamURL construye la URL del combined stream. Acepta la base con o
// sin el path /stream para que una config con el endpoint completo no
// acabe en /stream/stream.
func streamURL(wsBase string, symbols []string) string {
	if wsBase == "" {
		wsBase = defaultWSBase
	}
	wsBase = strings.TrimSuffix(wsBase, "/")
	wsBase = strings.TrimSuffix(wsBase, "/stream")

	streams := make([]string, len(symbols))
	for i, sym := range symbols {
		streams[i] = strings.ToLower(sym) + "@bookTicker"
	}
	return fmt.Sprintf("%s/stream?streams=%s", wsBase, strings.Join(streams, "/"))
}

// Next devuelve el siguiente tick dentro del timeout, o
// domain.ErrFeedTimeout si no llega nada a tiempo.
func (f *Feed) Next(ctx context.Context, timeout time.Duration) (domain.Tick, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case tick := <-f.ticks:
		return tick, nil
	case <-timer.C:
		return domain.Tick{}, fmt.Errorf("binance.Next: no tick within %s: %w", timeout, domain.ErrFeedTimeout)
	case <-ctx.Done():
		return domain.Tick{}, ctx.Err()
	}
}

// Close detiene el consumidor y espera a que termine.
func (f *Feed) Close() error {
	f.cancel()
	<-f.done
	return nil
}

// run reconecta con backoff exponencial hasta que se cancele el contexto.
func (f *Feed) run(ctx context.Context) {
	defer close(f.done)
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		err := f.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		slog.Warn("binance feed disconnected, retrying", "error", err, "backoff", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
	}
}

func (f *Feed) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	slog.Info("connected to binance feed", "url", f.url)

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		now := time.Now().UTC()

		var env bookTickerEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			slog.Warn("invalid binance message", "error", err)
			continue
		}
		if env.Data.Symbol == "" {
			continue
		}

		raw := feed.RawObservation{
			Timestamp: now,
			Symbol:    env.Data.Symbol,
			Bid:       parsePrice(env.Data.Bid),
			Ask:       parsePrice(env.Data.Ask),
		}
		tick, err := f.normalizer.Normalize(raw, now)
		if err != nil {
			slog.Warn("dropping binance observation", "symbol", raw.Symbol, "error", err)
			continue
		}
		metrics.TicksTotal.WithLabelValues("binance").Inc()

		// Descarta el tick anterior si el consumidor no lo leyó:
		// solo interesa el más reciente.
		select {
		case f.ticks <- tick:
		default:
			select {
			case <-f.ticks:
			default:
			}
			select {
			case f.ticks <- tick:
			default:
			}
		}
	}
}

// parsePrice convierte el string de Binance; "" o "0" cuenta como ausente
// (bookTicker manda "0" cuando un lado del libro está vacío).
func parsePrice(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v == 0 {
		return nil
	}
	return &v
}
