// Package extract recovers a candidate verification code from what a public
// verifier hands in: a scanned QR payload, a pasted URL, an uploaded file.
// It never decides validity; the verification engine does.
package extract

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// anyPrefix is used when no issuing prefix is configured.
const anyPrefix = `[A-Z][A-Z0-9]{0,9}`

var verifyPattern = regexp.MustCompile(`/verify/([^/?#\s"'<>()\[\]]+)`)

// ErrUnsupported is returned by a TextDecoder that cannot read the content.
var ErrUnsupported = errors.New("extract: unsupported content")

// TextDecoder turns file content into text, e.g. a QR image into its payload
// or a PDF into its text layer.
type TextDecoder interface {
	Decode(content []byte, contentType string) (string, error)
}

// Extractor finds codes issued under one prefix in text, filenames and files.
type Extractor struct {
	code     *regexp.Regexp
	decoders []TextDecoder
}

// New returns an Extractor for codes under prefix that consults decoders in
// order after the cheap checks. An empty prefix accepts any short alphanumeric one.
func New(prefix string, decoders ...TextDecoder) *Extractor {
	p := anyPrefix
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		p = regexp.QuoteMeta(strings.ToUpper(prefix))
	}
	// The code must not be glued to further letters or digits on either side.
	pattern := fmt.Sprintf(`(?i)(?:^|[^A-Z0-9])(%s-DOC-[0-9]{4}-[A-Z0-9]{8})(?:$|[^A-Z0-9])`, p)
	return &Extractor{code: regexp.MustCompile(pattern), decoders: decoders}
}

// FromText returns the code carried by text. A /verify/{code} URL wins over a
// bare code; the URL segment is returned even when malformed so the caller can
// report it as such.
func (e *Extractor) FromText(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	if m := verifyPattern.FindStringSubmatch(text); m != nil {
		seg, err := url.PathUnescape(m[1])
		if err != nil {
			seg = m[1]
		}
		return normalize(seg), true
	}
	return e.find(text)
}

// FromFilename looks for a code in the base name of filename.
func (e *Extractor) FromFilename(filename string) (string, bool) {
	base := filepath.Base(filename)
	return e.find(strings.TrimSuffix(base, filepath.Ext(base)))
}

// FromFile tries the filename, then any bare code visible in the raw bytes
// (plain text, uncompressed PDF), then each decoder.
func (e *Extractor) FromFile(filename, contentType string, content []byte) (string, bool) {
	if code, ok := e.FromFilename(filename); ok {
		return code, true
	}
	if m := e.code.FindSubmatch(content); m != nil {
		return normalize(string(m[1])), true
	}
	for _, d := range e.decoders {
		text, err := d.Decode(content, contentType)
		if err != nil {
			continue
		}
		if code, ok := e.FromText(text); ok {
			return code, true
		}
	}
	return "", false
}

func (e *Extractor) find(s string) (string, bool) {
	if m := e.code.FindStringSubmatch(s); m != nil {
		return normalize(m[1]), true
	}
	return "", false
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
