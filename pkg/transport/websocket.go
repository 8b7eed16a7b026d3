// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned by reads after the bridge connection has
// failed once
var ErrConnectionClosed = errors.New("websocket connection closed")

// wsConn turns a serial-over-WebSocket bridge into a byte stream.
//
// The bridge forwards UART bytes whenever its buffer flushes, so a single
// monitor line may arrive split over several frames, or several lines in one.
// Frame boundaries carry no meaning. Firmware bridges differ in frame type
// (text or binary), and some send empty frames as keepalives.
type wsConn struct {
	conn    *websocket.Conn
	pending []byte
	failed  bool
}

func (w *wsConn) Read(p []byte) (int, error) {
	for len(w.pending) == 0 {
		if w.failed {
			return 0, ErrConnectionClosed
		}
		// Control frames are answered inside ReadMessage; only data frames
		// come back here.
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			w.failed = true
			return 0, err
		}
		w.pending = data
	}

	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

// Write sends p as one binary frame. The session writes one echo chunk at a
// time, so each frame is at most one chunk of monitor input.
func (w *wsConn) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// OpenWebSocket connects to a WebSocket serial bridge with optional HTTP
// Basic auth.
func OpenWebSocket(wsURL, username, password string, skipSSLVerify bool) (*Stream, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return NewStream(&wsConn{conn: conn}), nil
}
