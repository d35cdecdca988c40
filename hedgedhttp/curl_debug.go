package hedgedhttp

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// debugLogger is the package-level logger used when a Client's Debug flag
// is set, constructed the same way as hedge/log.go's debugLogger.
var debugLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// logCurlEquivalent logs the curl-equivalent of req, the way the teacher's
// request.go stamps resp.curlCommand onto every request when debugging is
// enabled -- here emitted once per Do call, before attempts are launched,
// since every attempt is a clone of the same original request.
func logCurlEquivalent(debug bool, req *http.Request, body []byte) {
	if !debug {
		return
	}
	debugLogger.Debug().
		Str("curl", generateCurlCommand(req, body)).
		Msg("hedgedhttp: request")
}

// generateCurlCommand renders req and its buffered body as an
// approximately-equivalent curl invocation, for debug logging. Grounded in
// the teacher's debug.go, which builds the same kind of line for its
// non-hedged request path.
func generateCurlCommand(req *http.Request, body []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "curl -X %s '%s'", req.Method, req.URL.String())
	for key, values := range req.Header {
		for _, v := range values {
			fmt.Fprintf(&b, " -H '%s: %s'", key, v)
		}
	}
	if len(body) > 0 {
		fmt.Fprintf(&b, " -d '%s'", prettyJSONBody(body))
	}
	return b.String()
}

// prettyJSONBody pretty-prints body if it's valid JSON, using goccy/go-json
// (the teacher's own encoder of choice) rather than encoding/json. Bodies
// that aren't JSON are returned unchanged.
func prettyJSONBody(body []byte) string {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(body)
	}
	return string(out)
}
