package logx

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/requester/middleware"
	"github.com/samber/lo"
	"golang.org/x/exp/slog"
)

// RoundTripperOpts contains options for client logger.
type RoundTripperOpts struct {
	Level         slog.Level
	SecretHeaders []string
	// BodyLimit is the number of response body bytes to put into the log,
	// zero disables body logging.
	BodyLimit int64
}

// LoggingRoundTripper logs every page request made by the client.
func LoggingRoundTripper(lg *slog.Logger, opts RoundTripperOpts) middleware.RoundTripperHandler {
	return func(next http.RoundTripper) http.RoundTripper {
		return middleware.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if !lg.Enabled(req.Context(), opts.Level) {
				return next.RoundTrip(req)
			}

			lg.LogAttrs(req.Context(), opts.Level, "request sent",
				slog.String("method", req.Method),
				slog.String("url", req.URL.String()),
				slog.Any("headers", headers(req.Header, opts.SecretHeaders)),
			)

			start := time.Now()
			resp, err := next.RoundTrip(req)
			elapsed := time.Since(start)

			if err != nil {
				lg.LogAttrs(req.Context(), opts.Level, "request failed",
					slog.String("url", req.URL.String()),
					slog.Duration("elapsed", elapsed),
					slog.Any("err", err),
				)
				return resp, err
			}

			attrs := []slog.Attr{
				slog.String("url", req.URL.String()),
				slog.Int("status", resp.StatusCode),
				slog.Any("headers", headers(resp.Header, opts.SecretHeaders)),
				slog.Duration("elapsed", elapsed),
			}

			if opts.BodyLimit > 0 {
				var body string
				resp.Body, body = copyAndTrim(resp.Body, opts.BodyLimit)
				attrs = append(attrs, slog.String("body", body))
			}

			lg.LogAttrs(req.Context(), opts.Level, "response received", attrs...)

			return resp, nil
		})
	}
}

func headers(h http.Header, secret []string) map[string]string {
	res := make(map[string]string, len(h))
	for k, vals := range h {
		if lo.Contains(secret, k) {
			res[k] = "***"
			continue
		}
		res[k] = strings.Join(vals, ",")
	}
	return res
}

func copyAndTrim(r io.ReadCloser, limit int64) (rd io.ReadCloser, result string) {
	if r == nil {
		return nil, ""
	}

	rd, result, read := readPortion(r, limit)
	if read == limit {
		result += "..."
	}
	result = strings.ReplaceAll(result, "\n", "")
	result = strings.ReplaceAll(result, "\t", "")

	return rd, result
}

func readPortion(src io.ReadCloser, limit int64) (rd io.ReadCloser, portion string, read int64) {
	buf := &bytes.Buffer{}

	read, err := io.CopyN(buf, src, limit)
	if err != nil {
		return &closer{rd: bytes.NewReader(buf.Bytes()), closeFn: src.Close}, buf.String(), read
	}

	return &closer{rd: io.MultiReader(bytes.NewReader(buf.Bytes()), src), closeFn: src.Close}, buf.String(), read
}

type closer struct {
	rd      io.Reader
	closeFn func() error
}

func (c *closer) Read(p []byte) (n int, err error) { return c.rd.Read(p) }
func (c *closer) Close() error                     { return c.closeFn() }
