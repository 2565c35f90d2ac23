package httpproto

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// ParseHeaders parses the request line and header block accumulated in
// the read buffer. It requires HeadersReceived() to already report true.
func (c *Connection) ParseHeaders() error {
	data := c.readBuf.Bytes()
	end := bytes.Index(data, crlfcrlf)
	if end < 0 {
		return ErrNoHeaderTerminator
	}

	head := data[:end]
	body := data[end+len(crlfcrlf):]
	if len(body) > 0 {
		c.Body = append([]byte(nil), body...)
	}

	lines := bytes.Split(head, []byte("\r\n"))
	if len(lines) == 0 || len(lines[0]) == 0 {
		return ErrMalformedRequestLine
	}

	tokens := bytes.Fields(lines[0])
	if len(tokens) != 3 {
		return ErrMalformedRequestLine
	}

	method := string(tokens[0])
	path := string(tokens[1])
	version := string(tokens[2])
	if path == "" {
		path = "/"
	}

	headers := make(map[string]string, len(lines)-1)
	for _, line := range lines[1:] {
		idx := bytes.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		name := strings.ToLower(string(bytes.TrimSpace(line[:idx])))
		value := string(bytes.TrimLeft(line[idx+1:], " \t"))
		headers[name] = value
	}

	c.Method = method
	c.Path = path
	c.HTTPVersion = version
	c.Headers = headers

	// Connection params are negotiated even for a method this server
	// won't serve: a 400 still honors the keep-alive the request asked
	// for, so the method check comes after.
	c.parseConnectionParams()

	if method != "GET" && method != "POST" {
		return ErrUnsupportedMethod
	}
	return nil
}

// parseConnectionParams derives KeepAlive, KeepAliveTimeout, and
// MaxRequests from the HTTP version and the parsed header map.
func (c *Connection) parseConnectionParams() {
	connHdr := strings.ToLower(c.Headers["connection"])

	switch c.HTTPVersion {
	case "HTTP/1.0":
		c.KeepAlive = hasToken(connHdr, "keep-alive")
	default: // HTTP/1.1 and anything else defaults to the 1.1 rule
		c.KeepAlive = !hasToken(connHdr, "close")
	}

	if ka, ok := c.Headers["keep-alive"]; ok {
		if n, ok := scanKeepAliveParam(ka, "timeout"); ok {
			c.KeepAliveTimeout = clampDuration(n)
		}
		if n, ok := scanKeepAliveParam(ka, "max"); ok {
			c.MaxRequests = clampInt(n)
		}
	}
}

// hasToken reports whether comma/space-separated value v contains token,
// matched case-insensitively as a whole token (not a substring).
func hasToken(v, token string) bool {
	for _, part := range strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' '
	}) {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// scanKeepAliveParam finds "<key>=<n>" in a Keep-Alive header value, where
// n is terminated by ',', a space, or end-of-string. Malformed numerics
// report ok=false so the caller retains the default.
func scanKeepAliveParam(v, key string) (n int, ok bool) {
	prefix := key + "="
	idx := strings.Index(strings.ToLower(v), prefix)
	if idx < 0 {
		return 0, false
	}
	rest := v[idx+len(prefix):]
	end := strings.IndexAny(rest, ", ")
	if end >= 0 {
		rest = rest[:end]
	}
	val, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, false
	}
	return val, true
}

func clampInt(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func clampDuration(n int) time.Duration {
	return time.Duration(clampInt(n)) * time.Second
}
