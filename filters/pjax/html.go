package pjax

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/andybalholm/cascadia"
	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/net/html"

	"github.com/pjaxgate/pjaxgate/annotation"
)

type outcome string

const (
	outcomeFiltered         outcome = "filtered"
	outcomeNotFiltered      outcome = "not_filtered"
	outcomeNoContainer      outcome = "no_container"
	outcomeInvalidSelector  outcome = "invalid_selector"
	outcomeNoMatch          outcome = "no_match"
	outcomeEncoding         outcome = "unsupported_encoding"
	outcomeTooLarge         outcome = "too_large"
	outcomeReadError        outcome = "read_error"
	outcomeBodyError        outcome = "body_error"
	outcomeSkipped          outcome = "skipped"
	outcomeReservedKeyError outcome = "reserved_key_error"
)

var titleSelector = cascadia.MustCompile("title")

// body that was partially read, and needs to be returned as is
type replayBody struct {
	io.Reader
	io.Closer
}

func getEncodings(header string) []string {
	var encs []string
	for _, e := range strings.Split(header, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && e != "identity" {
			encs = append(encs, e)
		}
	}

	return encs
}

func encodingsSupported(encs []string) bool {
	for _, e := range encs {
		switch e {
		case "gzip", "deflate", "br":
		default:
			return false
		}
	}

	return true
}

// decode applies the decoders in the reverse order of the encodings.
func decode(b []byte, encs []string) ([]byte, error) {
	for i := len(encs) - 1; i >= 0; i-- {
		var r io.ReadCloser
		switch encs[i] {
		case "gzip":
			gr, err := gzip.NewReader(bytes.NewReader(b))
			if err != nil {
				return nil, err
			}

			r = gr
		case "br":
			r = io.NopCloser(brotli.NewReader(bytes.NewReader(b)))
		default:
			r = flate.NewReader(bytes.NewReader(b))
		}

		d, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s content: %w", encs[i], err)
		}

		b = d
	}

	return b, nil
}

func innerHTML(n *html.Node) ([]byte, error) {
	var b bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return nil, err
		}
	}

	return b.Bytes(), nil
}

// fragment returns the outer HTML of the document title followed by the inner
// HTML of the first element matching the selector. When nothing matches, it
// returns false.
func fragment(doc []byte, sel cascadia.Selector) ([]byte, bool, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, false, err
	}

	container := sel.MatchFirst(root)
	if container == nil {
		return nil, false, nil
	}

	var b bytes.Buffer
	if title := titleSelector.MatchFirst(root); title != nil {
		if err := html.Render(&b, title); err != nil {
			return nil, false, err
		}
	}

	inner, err := innerHTML(container)
	if err != nil {
		return nil, false, err
	}

	b.Write(inner)
	return b.Bytes(), true, nil
}

func addVary(h http.Header, name string) {
	for _, v := range h.Values("Vary") {
		for _, vi := range strings.Split(v, ",") {
			vi = strings.TrimSpace(vi)
			if vi == "*" || strings.EqualFold(vi, name) {
				return
			}
		}
	}

	h.Add("Vary", name)
}

func setBody(rsp *http.Response, b []byte) {
	rsp.Body = io.NopCloser(bytes.NewReader(b))
	rsp.ContentLength = int64(len(b))
	rsp.Header.Set("Content-Length", strconv.Itoa(len(b)))
	rsp.Header.Del("Content-Encoding")
	if rsp.Header.Get("ETag") != "" {
		rsp.Header.Set("ETag", fmt.Sprintf(`W/"%x"`, xxhash.Sum64(b)))
	}

	addVary(rsp.Header, HeaderPjax)
}

// readBody reads the body up to maxSize bytes. When the body is larger, it
// returns false, and the response body is restored.
func readBody(rsp *http.Response, maxSize int64) ([]byte, bool, error) {
	if rsp.Body == nil {
		return nil, true, nil
	}

	var r io.Reader = rsp.Body
	if maxSize > 0 {
		r = io.LimitReader(rsp.Body, maxSize+1)
	}

	b, err := io.ReadAll(r)
	if err != nil {
		rsp.Body.Close()
		return nil, false, err
	}

	if maxSize > 0 && int64(len(b)) > maxSize {
		rsp.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(b), rsp.Body), Closer: rsp.Body}
		return nil, false, nil
	}

	rsp.Body.Close()
	return b, true, nil
}

// filterBody replaces the body of the response with the container fragment,
// when the annotation requires it and the container can be found.
func filterBody(rsp *http.Response, p *annotation.Pjax, maxSize int64) (outcome, error) {
	if f, ok := p.FilterValue(); !ok || !f {
		return outcomeNotFiltered, nil
	}

	container, ok := p.ContainerValue()
	if !ok || container == "" {
		return outcomeNoContainer, nil
	}

	sel, err := cascadia.Compile(container)
	if err != nil {
		return outcomeInvalidSelector, err
	}

	encs := getEncodings(rsp.Header.Get("Content-Encoding"))
	if !encodingsSupported(encs) {
		return outcomeEncoding, nil
	}

	raw, complete, err := readBody(rsp, maxSize)
	if err != nil {
		rsp.Body = io.NopCloser(bytes.NewReader(nil))
		rsp.ContentLength = 0
		rsp.Header.Del("Content-Length")
		return outcomeBodyError, err
	}

	if !complete {
		return outcomeTooLarge, nil
	}

	// from here, the original bytes are kept unless the fragment is found
	rsp.Body = io.NopCloser(bytes.NewReader(raw))

	doc, err := decode(raw, encs)
	if err != nil {
		return outcomeReadError, err
	}

	frag, found, err := fragment(doc, sel)
	if err != nil {
		return outcomeReadError, err
	}

	if !found {
		return outcomeNoMatch, nil
	}

	setBody(rsp, frag)
	return outcomeFiltered, nil
}
