//go:build linux

package reactor

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/reactord/internal/config"
)

// startReactor boots a Reactor on an ephemeral loopback port and returns it
// alongside that port's address. Shutdown is registered with t.Cleanup.
func startReactor(t *testing.T, mutate func(*config.Config)) (*Reactor, string) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.CheckInterval = 50 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	// Port 0 means "pick one"; resolve it up front so the test can dial,
	// since newListener binds synchronously inside New.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	cfg.ListenAddr = addr

	log := logrus.NewEntry(logrus.New())
	log.Logger.SetLevel(logrus.PanicLevel) // keep test output quiet

	r, err := New(cfg, log)
	if err != nil {
		t.Fatalf("reactor.New() error = %v", err)
	}

	go r.Run()
	time.Sleep(20 * time.Millisecond) // let the loop reach epoll_wait

	t.Cleanup(r.Shutdown)
	return r, addr
}

func TestE2E_SingleGETClosesAfterHTTP10(t *testing.T) {
	_, addr := startReactor(t, nil)

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GET / HTTP/1.0\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	resp, err := readAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if !strings.HasPrefix(resp, "HTTP/1.1 200 OK") {
		t.Fatalf("response = %q, want 200 OK prefix", resp)
	}
	if !strings.HasSuffix(resp, "Processed in thread pool. Path: /") {
		t.Fatalf("response body = %q", resp)
	}
}

func TestE2E_KeepAliveTwoRequestsThenClose(t *testing.T) {
	_, addr := startReactor(t, nil)

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(conn)

	if _, err := conn.Write([]byte("GET /a HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("write first request: %v", err)
	}
	first, err := readOneResponse(r)
	if err != nil {
		t.Fatalf("read first response: %v", err)
	}
	if !strings.HasSuffix(first, "/a") {
		t.Fatalf("first response = %q, want body ending in /a", first)
	}

	if _, err := conn.Write([]byte("GET /b HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatalf("write second request: %v", err)
	}
	second, err := readOneResponse(r)
	if err != nil {
		t.Fatalf("read second response: %v", err)
	}
	if !strings.HasSuffix(second, "/b") {
		t.Fatalf("second response = %q, want body ending in /b", second)
	}

	// The server must close after the Connection: close response.
	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 16)
	if n, err := conn.Read(buf); err == nil && n > 0 {
		t.Fatalf("expected EOF after Connection: close, got %d more bytes", n)
	}
}

func TestE2E_UnsupportedMethodGets400(t *testing.T) {
	_, addr := startReactor(t, nil)

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("PUT / HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(time.Second))
	resp, err := readAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(resp, "HTTP/1.1 400 Bad Request") {
		t.Fatalf("response = %q, want 400 Bad Request prefix", resp)
	}
}

func TestE2E_ConnectionCapRejectsExcessAccepts(t *testing.T) {
	_, addr := startReactor(t, func(c *config.Config) { c.MaxConnections = 1 })

	held, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial held: %v", err)
	}
	defer held.Close()
	time.Sleep(30 * time.Millisecond) // let the reactor register it

	rejected, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial rejected: %v", err)
	}
	defer rejected.Close()

	rejected.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 16)
	n, err := rejected.Read(buf)
	if n != 0 || err == nil {
		t.Fatalf("connection accepted over the cap should be closed with no bytes sent, got n=%d err=%v", n, err)
	}
}

func TestE2E_IdleTimeoutClosesAfterSweep(t *testing.T) {
	_, addr := startReactor(t, func(c *config.Config) {
		c.DefaultKeepAliveTimeout = 80 * time.Millisecond
		c.CheckInterval = 20 * time.Millisecond
	})

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(conn)

	if _, err := conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := readOneResponse(r); err != nil {
		t.Fatalf("read response: %v", err)
	}

	// Idle past the configured keep-alive timeout; the next sweep tick must close us
	// even though the client never sent Connection: close.
	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 16)
	if n, err := conn.Read(buf); err == nil && n > 0 {
		t.Fatalf("expected EOF after idle timeout elapsed, got %d more bytes", n)
	}
}

func TestE2E_MaxRequestsClosesAfterLastResponse(t *testing.T) {
	_, addr := startReactor(t, func(c *config.Config) { c.DefaultMaxRequests = 2 })

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(conn)

	if _, err := conn.Write([]byte("GET /a HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("write first request: %v", err)
	}
	first, err := readOneResponse(r)
	if err != nil {
		t.Fatalf("read first response: %v", err)
	}
	if !strings.HasSuffix(first, "/a") {
		t.Fatalf("first response = %q, want body ending in /a", first)
	}

	if _, err := conn.Write([]byte("GET /b HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("write second request: %v", err)
	}
	second, err := readOneResponse(r)
	if err != nil {
		t.Fatalf("read second response: %v", err)
	}
	if !strings.HasSuffix(second, "/b") {
		t.Fatalf("second response = %q, want body ending in /b", second)
	}

	// The request budget is now exhausted; the connection must close on
	// its own even though neither request sent Connection: close. A third
	// request must never be parsed or answered — the server closes before
	// reading it.
	if _, err := conn.Write([]byte("GET /c HTTP/1.1\r\nHost: x\r\n\r\n")); err == nil {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		buf := make([]byte, 16)
		if n, err := conn.Read(buf); err == nil && n > 0 {
			t.Fatalf("got %d response bytes to a request past the max_requests budget, want EOF", n)
		}
	}
}

func readAll(conn net.Conn) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
		}
		if err != nil {
			return sb.String(), nil
		}
	}
}

// readOneResponse reads exactly one HTTP response (headers + Content-Length
// body) off r, leaving any subsequent bytes for a later call.
func readOneResponse(r *bufio.Reader) (string, error) {
	var header strings.Builder
	contentLength := 0
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		header.WriteString(line)
		if strings.HasPrefix(strings.ToLower(line), "content-length:") {
			val := strings.TrimSpace(line[strings.Index(line, ":")+1:])
			if n, err := strconv.Atoi(val); err == nil {
				contentLength = n
			}
		}
		if line == "\r\n" {
			break
		}
	}
	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return "", err
	}
	return header.String() + string(body), nil
}
