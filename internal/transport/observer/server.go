package observer

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"driftline.space/internal/observerproto"
	"driftline.space/internal/sim/activation"
	"driftline.space/internal/sim/world"
)

type subscriber struct {
	out    chan []byte
	everyN uint64
	n      uint64
}

// Server streams active sector summaries to read-only observers. The
// session publishes into it; it never touches the world afterwards.
type Server struct {
	info observerproto.BootstrapResponse
	log  zerolog.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	dropped  atomic.Uint64

	mu     sync.Mutex
	latest activation.Summary
	seq    uint64
	subs   map[uint64]*subscriber
}

// NewServer captures the static world description. Call it before the
// session starts running.
func NewServer(w *world.World, logger zerolog.Logger) *Server {
	tu := w.Tuning()
	info := observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		WorldID:         w.ID(),
		TickRateHz:      tu.TickRateHz,
		DayTicks:        tu.DayTicks,
	}
	for _, sec := range w.Sectors() {
		if sec.Travel {
			continue
		}
		info.Sectors = append(info.Sectors, observerproto.SectorInfo{ID: sec.ID, Name: sec.Name, LimitRadius: sec.LimitRadius})
	}
	return &Server{
		info: info,
		log:  logger.With().Str("component", "observer").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subs: map[uint64]*subscriber{},
	}
}

// Publish implements session.Publisher. Slow observers lose messages.
func (s *Server) Publish(sum activation.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.latest = sum
	if len(s.subs) == 0 {
		return
	}
	b, err := json.Marshal(observerproto.SummaryMsg{
		Type:            "SUMMARY",
		ProtocolVersion: observerproto.Version,
		Seq:             s.seq,
		Summary:         sum,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("encode summary")
		return
	}
	for _, sub := range s.subs {
		sub.n++
		if sub.n%sub.everyN != 0 {
			continue
		}
		select {
		case sub.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Latest is the last published summary.
func (s *Server) Latest() activation.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Server) Dropped() uint64 { return s.dropped.Load() }

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := s.info
		s.mu.Lock()
		resp.Latest = s.latest
		s.mu.Unlock()

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		id := s.nextID.Add(1)
		out := make(chan []byte, 64)
		s.register(id, out, sub.EveryN)
		defer s.unregister(id)
		s.log.Debug().Uint64("observer", id).Int("every_n", sub.EveryN).Msg("observer joined")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, ok := parseSubscribe(msg); ok {
				s.resubscribe(id, sub.EveryN)
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// register adds a subscriber and queues the latest summary so observers
// never start blank.
func (s *Server) register(id uint64, out chan []byte, everyN int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[id] = &subscriber{out: out, everyN: uint64(everyN)}
	if s.seq == 0 {
		return
	}
	b, err := json.Marshal(observerproto.SummaryMsg{
		Type:            "SUMMARY",
		ProtocolVersion: observerproto.Version,
		Seq:             s.seq,
		Summary:         s.latest,
	})
	if err == nil {
		out <- b
	}
}

func (s *Server) resubscribe(id uint64, everyN int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub := s.subs[id]; sub != nil {
		sub.everyN = uint64(everyN)
		sub.n = 0
	}
}

func (s *Server) unregister(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

func parseSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	if sub.EveryN <= 0 {
		sub.EveryN = 1
	}
	if sub.EveryN > 1000 {
		sub.EveryN = 1000
	}
	return sub, true
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
