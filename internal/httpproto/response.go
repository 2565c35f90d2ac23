package httpproto

import "fmt"

// BadRequest is the response synthesized when ParseHeaders fails.
func BadRequest() []byte {
	const body = "Bad Request"
	return []byte(fmt.Sprintf(
		"HTTP/1.1 400 Bad Request\r\nContent-Type: text/plain\r\nContent-Length: %d\r\n\r\n%s",
		len(body), body,
	))
}

// OK builds the default pipeline's 200 response, echoing the request
// path.
func OK(path string) []byte {
	body := "Processed in thread pool. Path: " + path
	return []byte(fmt.Sprintf(
		"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: %d\r\n\r\n%s",
		len(body), body,
	))
}
