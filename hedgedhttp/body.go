package hedgedhttp

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// bufferBody drains req.Body into memory and restores req.Body to a fresh
// reader over the buffered bytes, so the original request is still usable
// after buffering and every attempt can read its own copy of the body
// without racing the others, grounded in hedge_transport.go's
// buffer-and-replay handling of the request body.
func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// cloneRequestWithBody clones req for one attempt, bound to ctx, with a
// fresh reader over body so concurrent attempts never share an io.Reader.
func cloneRequestWithBody(ctx context.Context, req *http.Request, body []byte) *http.Request {
	clone := req.Clone(ctx)
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.ContentLength = int64(len(body))
	}
	return clone
}
