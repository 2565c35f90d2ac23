package httpproto

import "errors"

// Parse errors. ParseHeaders returns them to the request pipeline, which
// always resolves them to a synthesized 400; they propagate no further.
var (
	// ErrNoHeaderTerminator means ParseHeaders was called before
	// HeadersReceived() reported true; callers should not do this.
	ErrNoHeaderTerminator = errors.New("httpproto: read buffer has no CRLF CRLF yet")

	// ErrMalformedRequestLine covers a missing, empty, or not-exactly-three-token
	// request line.
	ErrMalformedRequestLine = errors.New("httpproto: malformed request line")

	// ErrUnsupportedMethod covers any method other than GET or POST.
	ErrUnsupportedMethod = errors.New("httpproto: unsupported method")
)
