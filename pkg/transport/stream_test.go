// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================
// Test Helpers
// ============================================================

// pipeDevice is the far end of an in-memory link
type pipeDevice struct {
	toHost   *io.PipeWriter
	fromHost *io.PipeReader
}

type pipeConn struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

func (p *pipeConn) Close() error {
	for _, c := range p.closers {
		c.Close()
	}
	return nil
}

func newPipeStream() (*Stream, *pipeDevice) {
	hostR, devW := io.Pipe()
	devR, hostW := io.Pipe()
	conn := &pipeConn{Reader: hostR, Writer: hostW, closers: []io.Closer{hostR, hostW}}
	return NewStream(conn), &pipeDevice{toHost: devW, fromHost: devR}
}

// ============================================================
// Stream Tests
// ============================================================

func TestStream_ReadN(t *testing.T) {
	s, dev := newPipeStream()
	defer s.Close()

	go dev.toHost.Write([]byte("hello"))

	data, err := s.ReadN(5, time.Second)
	if err != nil {
		t.Fatalf("ReadN failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Expected %q, got %q", "hello", data)
	}
}

func TestStream_ReadNShortOnTimeout(t *testing.T) {
	s, dev := newPipeStream()
	defer s.Close()

	go dev.toHost.Write([]byte("abc"))

	start := time.Now()
	data, err := s.ReadN(10, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("ReadN failed: %v", err)
	}
	if string(data) != "abc" {
		t.Errorf("Expected the 3 available bytes, got %q", data)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("ReadN returned early after %v", elapsed)
	}
}

func TestStream_ReadAvailable(t *testing.T) {
	s, dev := newPipeStream()
	defer s.Close()

	data, err := s.ReadAvailable()
	if err != nil || len(data) != 0 {
		t.Fatalf("Expected nothing buffered, got %q, %v", data, err)
	}

	go dev.toHost.Write([]byte("\r\n> rest"))

	// Wait for the first bytes, then the rest is buffered too
	head, _ := s.ReadN(4, time.Second)
	if string(head) != "\r\n> " {
		t.Fatalf("Unexpected head %q", head)
	}

	deadline := time.Now().Add(time.Second)
	var rest []byte
	for time.Now().Before(deadline) && len(rest) < 4 {
		more, err := s.ReadAvailable()
		if err != nil {
			t.Fatalf("ReadAvailable failed: %v", err)
		}
		rest = append(rest, more...)
	}
	if string(rest) != "rest" {
		t.Errorf("Expected %q, got %q", "rest", rest)
	}
}

func TestStream_Write(t *testing.T) {
	s, dev := newPipeStream()
	defer s.Close()

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := dev.fromHost.Read(buf)
		got <- string(buf[:n])
	}()

	if _, err := s.Write([]byte("rw 1000 1")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	select {
	case v := <-got:
		if v != "rw 1000 1" {
			t.Errorf("Device received %q", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Device never received the write")
	}
}

func TestStream_ErrorAfterDrain(t *testing.T) {
	s, dev := newPipeStream()
	defer s.Close()

	linkDown := errors.New("link down")
	go func() {
		dev.toHost.Write([]byte("xy"))
		dev.toHost.CloseWithError(linkDown)
	}()

	data, err := s.ReadN(2, time.Second)
	if err != nil || string(data) != "xy" {
		t.Fatalf("Buffered bytes should come first, got %q, %v", data, err)
	}

	_, err = s.ReadN(1, time.Second)
	if !errors.Is(err, linkDown) {
		t.Errorf("Expected the link error, got %v", err)
	}
	if _, err := s.ReadAvailable(); !errors.Is(err, linkDown) {
		t.Errorf("ReadAvailable should report the link error, got %v", err)
	}
}

// ============================================================
// TCP Tests
// ============================================================

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("Cannot listen: %v", err)
	}
	defer ln.Close()

	// Echo server, like the monitor's input echo
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(conn, conn)
	}()

	s, err := DialTCP(ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("DialTCP failed: %v", err)
	}
	defer s.Close()

	if _, err := s.Write([]byte("rb 0 1")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	echo, err := s.ReadN(6, time.Second)
	if err != nil || string(echo) != "rb 0 1" {
		t.Errorf("Expected echo, got %q, %v", echo, err)
	}
}

func TestDialTCP_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("Cannot listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := DialTCP(addr, 500*time.Millisecond); err == nil {
		t.Error("Expected error dialing a closed port")
	}
}

// ============================================================
// WebSocket Tests
// ============================================================

func TestOpenWebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	authSeen := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authSeen <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Echo binary input back as a text frame
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	s, err := OpenWebSocket(wsURL, "admin", "secret", false)
	if err != nil {
		t.Fatalf("OpenWebSocket failed: %v", err)
	}
	defer s.Close()

	if auth := <-authSeen; auth != "Basic YWRtaW46c2VjcmV0" {
		t.Errorf("Unexpected Authorization header %q", auth)
	}

	if _, err := s.Write([]byte("\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, err := s.ReadN(1, time.Second)
	if err != nil || string(data) != "\n" {
		t.Errorf("Expected text frame payload, got %q, %v", data, err)
	}
}

func TestOpenWebSocket_FramesAreAStream(t *testing.T) {
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// One response split over mixed frames with an empty keepalive
		frames := []struct {
			kind int
			data string
		}{
			{websocket.BinaryMessage, "0000"},
			{websocket.TextMessage, ""},
			{websocket.TextMessage, "1000: de ad"},
			{websocket.BinaryMessage, " be ef\r\n> "},
		}
		for _, f := range frames {
			if err := conn.WriteMessage(f.kind, []byte(f.data)); err != nil {
				return
			}
		}
		// Hold the connection until the client is done
		conn.ReadMessage()
	}))
	defer srv.Close()

	s, err := OpenWebSocket("ws"+strings.TrimPrefix(srv.URL, "http"), "", "", false)
	if err != nil {
		t.Fatalf("OpenWebSocket failed: %v", err)
	}
	defer s.Close()

	want := "00001000: de ad be ef\r\n> "
	data, err := s.ReadN(len(want), 2*time.Second)
	if err != nil {
		t.Fatalf("ReadN failed: %v", err)
	}
	if string(data) != want {
		t.Errorf("Expected %q, got %q", want, data)
	}
}

func TestWSConn_ClosedAfterFailure(t *testing.T) {
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	w := &wsConn{conn: conn}
	defer w.Close()

	buf := make([]byte, 8)
	if _, err := w.Read(buf); err == nil {
		t.Fatal("Expected an error from a closed bridge")
	}
	if _, err := w.Read(buf); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed on the next read, got %v", err)
	}
}

func TestOpenWebSocket_BadScheme(t *testing.T) {
	if _, err := OpenWebSocket("http://example.com", "", "", false); err == nil {
		t.Error("Expected error for http:// URL")
	}
}
