package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

const (
	codeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeRandomLen = 8
	// largest multiple of len(codeAlphabet) that fits in a byte; higher bytes are resampled
	codeRejectAbove = 256 - 256%len(codeAlphabet)
)

// CodeGenerator produces candidate verification codes. Uniqueness is enforced
// by the document store, not by the generator.
type CodeGenerator interface {
	Generate(issuedAt time.Time) (string, error)
}

type randomCodeGenerator struct {
	prefix string
	rand   io.Reader
}

// NewCodeGenerator returns a generator of PREFIX-DOC-YYYY-XXXXXXXX codes whose
// random part is drawn uniformly from A-Z0-9 using crypto/rand.
func NewCodeGenerator(prefix string) CodeGenerator {
	return &randomCodeGenerator{prefix: strings.ToUpper(prefix), rand: rand.Reader}
}

func (g *randomCodeGenerator) Generate(issuedAt time.Time) (string, error) {
	suffix := make([]byte, 0, codeRandomLen)
	buf := make([]byte, codeRandomLen*2)
	for len(suffix) < codeRandomLen {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= codeRejectAbove {
				continue
			}
			suffix = append(suffix, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(suffix) == codeRandomLen {
				break
			}
		}
	}
	return fmt.Sprintf("%s-DOC-%04d-%s", g.prefix, issuedAt.UTC().Year(), suffix), nil
}

// CodeFormat matches verification codes issued under one prefix.
type CodeFormat struct {
	re *regexp.Regexp
}

// NewCodeFormat builds the matcher for prefix.
func NewCodeFormat(prefix string) *CodeFormat {
	pattern := fmt.Sprintf(`^%s-DOC-[0-9]{4}-[A-Z0-9]{%d}$`, regexp.QuoteMeta(strings.ToUpper(prefix)), codeRandomLen)
	return &CodeFormat{re: regexp.MustCompile(pattern)}
}

// Match reports whether code is well formed. code must already be normalized.
func (f *CodeFormat) Match(code string) bool {
	return f.re.MatchString(code)
}

// NormalizeCode trims surrounding whitespace and upper-cases code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
