package transport

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gieseladev/aiowamp/serialize"
	"github.com/gieseladev/aiowamp/wamp"
)

// WebSocket write/read deadlines, grounded on the teacher's
// pkg/websocket/client.go writeWait/pongWait/pingPeriod constants.
const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// WebSocketOptions configures a WebSocket dial.
type WebSocketOptions struct {
	Format            serialize.Format
	TLSConfig         *tls.Config
	HandshakeTimeout  time.Duration
	Header            http.Header
	EnableCompression bool
	Logger            *zap.Logger
}

// DialWebSocket opens a WebSocket transport, negotiating the "wamp.2.json"
// (or "wamp.2.msgpack") subprotocol per spec.md §4.2, grounded on the
// teacher's gorilla/websocket dialer usage
// (go-server/pkg/websocket/client.go) and on the gammazero/nexus
// websocketpeer.ConnectWebsocketPeerContext subprotocol-selection shape.
func DialWebSocket(routerURL string, opts WebSocketOptions) (Transport, error) {
	subprotocol := opts.Format.WebSocketSubprotocol()
	if subprotocol == "" {
		return nil, &wamp.TransportError{Reason: fmt.Sprintf("no websocket subprotocol for format %v", opts.Format)}
	}

	ser := serialize.New(opts.Format)
	if ser == nil {
		return nil, &wamp.TransportError{Reason: "no serializer registered for format"}
	}

	dialer := websocket.Dialer{
		Subprotocols:      []string{subprotocol},
		TLSClientConfig:   opts.TLSConfig,
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  opts.HandshakeTimeout,
		EnableCompression: opts.EnableCompression,
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = 45 * time.Second
	}

	conn, resp, err := dialer.Dial(routerURL, opts.Header)
	if err != nil {
		return nil, &wamp.TransportError{Reason: "websocket dial", Err: err}
	}
	if resp != nil && conn.Subprotocol() != subprotocol {
		conn.Close()
		return nil, &wamp.TransportError{Reason: fmt.Sprintf("router did not accept subprotocol %q", subprotocol)}
	}

	payloadType := websocket.TextMessage
	if opts.Format == serialize.FormatMsgpack {
		payloadType = websocket.BinaryMessage
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &webSocketTransport{
		conn:        conn,
		ser:         ser,
		payloadType: payloadType,
		logger:      logger,
	}
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	t.startPinger()
	return t, nil
}

// webSocketTransport adapts a gorilla/websocket connection to Transport.
// Send is serialized by writeMu; Recv is only ever called by a single
// observer per spec.md §5's single-observer receive-loop requirement, so it
// needs no locking of its own.
type webSocketTransport struct {
	conn        *websocket.Conn
	ser         serialize.Serializer
	payloadType int
	logger      *zap.Logger

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool

	pingStop chan struct{}
	pingOnce sync.Once
}

func (t *webSocketTransport) startPinger() {
	t.pingStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.writeMu.Lock()
				t.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				err := t.conn.WriteMessage(websocket.PingMessage, nil)
				t.writeMu.Unlock()
				if err != nil {
					return
				}
			case <-t.pingStop:
				return
			}
		}
	}()
}

func (t *webSocketTransport) Send(msg wamp.Message) error {
	data, err := t.ser.Serialize(msg)
	if err != nil {
		return fmt.Errorf("transport: serialize: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := t.conn.WriteMessage(t.payloadType, data); err != nil {
		return &wamp.TransportError{Reason: "websocket write", Err: err}
	}
	return nil
}

func (t *webSocketTransport) Recv() (wamp.Message, error) {
	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, &wamp.TransportError{Reason: "websocket read", Err: err}
		}
		if msgType == websocket.CloseMessage {
			return nil, &wamp.TransportError{Reason: "router closed websocket"}
		}
		msg, err := t.ser.Deserialize(data)
		if err != nil {
			t.logger.Warn("websocket: dropping unparseable frame", zap.Error(err))
			continue
		}
		return msg, nil
	}
}

func (t *webSocketTransport) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.pingOnce.Do(func() { close(t.pingStop) })

	t.writeMu.Lock()
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "goodbye")
	t.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(wsWriteWait))
	t.writeMu.Unlock()

	return t.conn.Close()
}
