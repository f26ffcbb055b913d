// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The scpiterm Authors

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"

	"github.com/opticslab/scpiterm/pkg/scpi"
)

// SerialConn wraps a serial port as a scpi.Conn
type SerialConn struct {
	port serial.Port
}

func (s *SerialConn) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConn) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConn) SetReadTimeout(d time.Duration) error {
	return s.port.SetReadTimeout(d)
}

func (s *SerialConn) ResetInputBuffer() error {
	return s.port.ResetInputBuffer()
}

func (s *SerialConn) Close() error {
	return s.port.Close()
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = fmt.Errorf("websocket connection closed")

// WebSocketConn wraps a WebSocket connection for byte-level reading behind a
// remote serial bridge. A read deadline expiry is reported as (0, nil), the
// same convention the serial driver uses for SetReadTimeout.
type WebSocketConn struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	timeout   time.Duration
	closed    bool // Track if connection has failed/closed
}

func (w *WebSocketConn) SetReadTimeout(d time.Duration) error {
	w.timeout = d
	return nil
}

func (w *WebSocketConn) Read(p []byte) (int, error) {
	// Return immediately if connection is known to be closed
	if w.closed {
		return 0, ErrConnectionClosed
	}

	// If we have buffered data, return it first
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	if w.timeout > 0 {
		w.conn.SetReadDeadline(time.Now().Add(w.timeout))
	} else {
		w.conn.SetReadDeadline(time.Time{})
	}

	// Read next message from WebSocket (non-recursive loop to avoid stack overflow)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return 0, nil
			}
			// Mark connection as closed to prevent further read attempts
			w.closed = true
			return 0, err
		}

		// The bridge relays raw line bytes in either frame type
		if messageType != websocket.BinaryMessage && messageType != websocket.TextMessage {
			continue
		}

		// Buffer the message and return what fits
		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketConn) Write(p []byte) (int, error) {
	err := w.conn.WriteMessage(websocket.BinaryMessage, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConn) Close() error {
	return w.conn.Close()
}

// OpenSerialConn opens the serial port described by the session config
func OpenSerialConn(cfg scpi.Config) (scpi.Conn, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
	}

	switch cfg.Parity {
	case "None":
		mode.Parity = serial.NoParity
	case "Even":
		mode.Parity = serial.EvenParity
	case "Odd":
		mode.Parity = serial.OddParity
	case "Mark":
		mode.Parity = serial.MarkParity
	case "Space":
		mode.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("invalid parity: %q", cfg.Parity)
	}

	switch cfg.StopBits {
	case "1":
		mode.StopBits = serial.OneStopBit
	case "1.5":
		mode.StopBits = serial.OnePointFiveStopBits
	case "2":
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("invalid stop bits: %q", cfg.StopBits)
	}

	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", cfg.Port, err)
	}

	return &SerialConn{port: port}, nil
}

// OpenWebSocketConn opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConn(wsURL, username, password string, skipSSLVerify bool) (scpi.Conn, error) {
	// Parse and validate URL
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	// Validate scheme
	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	// Create dialer with timeout
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	// Configure TLS for wss://
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	// Build HTTP headers with Basic auth
	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	// Connect
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return &WebSocketConn{conn: conn}, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("SCPITERM_PASSWORD"); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// OpenAdapter opens either a serial or WebSocket session based on flags and
// wraps it in an adapter carrying the effective session config.
func OpenAdapter() (*scpi.Adapter, string, error) {
	cfg, err := sessionConfig()
	if err != nil {
		return nil, "", err
	}

	if wsURL != "" {
		// WebSocket mode
		password := ""
		if wsUsername != "" {
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConn(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}

		return scpi.NewAdapter(conn, cfg), fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if cfg.Port != "" {
		// Serial mode
		conn, err := OpenSerialConn(cfg)
		if err != nil {
			return nil, "", err
		}

		info := fmt.Sprintf("Serial: %s @ %d baud %s %s %s",
			cfg.Port, cfg.BaudRate, cfg.Framing(), cfg.Encoding, cfg.LineEnding)
		return scpi.NewAdapter(conn, cfg), info, nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}
