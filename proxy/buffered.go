package proxy

import (
	"bytes"
	stdlibcontext "context"
	"io"
	"net/http"
	"strconv"
)

type stateBagKey struct{}

// StateBag returns the state bag of the request that the context belongs
// to. It is used by the in-process backends to read the values that the
// filters stored. It returns nil when the context doesn't belong to a
// request dispatched by the proxy.
func StateBag(ctx stdlibcontext.Context) map[string]interface{} {
	sb, _ := ctx.Value(stateBagKey{}).(map[string]interface{})
	return sb
}

// bufferedWriter records the response of an in-process backend.
type bufferedWriter struct {
	header http.Header
	code   int
	body   bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header)}
}

func (w *bufferedWriter) Header() http.Header { return w.header }

func (w *bufferedWriter) WriteHeader(code int) {
	if w.code == 0 {
		w.code = code
	}
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if w.code == 0 {
		w.code = http.StatusOK
	}

	return w.body.Write(b)
}

func (w *bufferedWriter) response(r *http.Request) *http.Response {
	code := w.code
	if code == 0 {
		code = http.StatusOK
	}

	h := w.header.Clone()
	if h.Get("Content-Type") == "" && w.body.Len() > 0 {
		h.Set("Content-Type", http.DetectContentType(w.body.Bytes()))
	}

	h.Set("Content-Length", strconv.Itoa(w.body.Len()))
	return &http.Response{
		Status:        strconv.Itoa(code) + " " + http.StatusText(code),
		StatusCode:    code,
		Proto:         r.Proto,
		ProtoMajor:    r.ProtoMajor,
		ProtoMinor:    r.ProtoMinor,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(w.body.Bytes())),
		ContentLength: int64(w.body.Len()),
		Request:       r,
	}
}
