// Package recipients extracts receiver addresses from plain-text receiver lists.
package recipients

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// addressPattern is the loose "xxx@xxx.xxx" filter. It is deliberately
// unanchored and matched against the raw line including its terminator.
var addressPattern = regexp.MustCompile(`[^@]+@[^@]+\.[^@]+`)

// lineEndings maps CRLF and lone CR terminators to LF.
var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// IsCandidate reports whether a raw receiver line contains an address.
func IsCandidate(line string) bool {
	return addressPattern.MatchString(line)
}

// Parse returns the accepted addresses of a receivers file, in file order.
// "\r\n" and "\r" terminate lines like "\n" does. Empty lines and lines
// without an address-like substring are skipped; accepted lines are trimmed
// of surrounding whitespace. Duplicates are kept.
func Parse(content string) []string {
	var list []string
	for _, line := range strings.SplitAfter(lineEndings.Replace(content), "\n") {
		if line == "" || line == "\n" || !IsCandidate(line) {
			continue
		}
		list = append(list, strings.TrimSpace(line))
	}
	return list
}

// ReadFile decodes the receivers file at path from the given charset and
// returns its accepted addresses. A leading byte order mark is dropped.
func ReadFile(path, charset string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open receivers file: %w", err)
	}
	defer f.Close()

	r, err := decoder(f, charset)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read receivers file: %w", err)
	}
	return Parse(string(data)), nil
}

// decoder wraps r so that it yields UTF-8 text.
func decoder(r io.Reader, charset string) (io.Reader, error) {
	if charset == "" {
		charset = "utf-8"
	}
	enc, err := ianaindex.IANA.Encoding(strings.ToLower(charset))
	if err != nil {
		return nil, fmt.Errorf("unknown receivers charset %q: %w", charset, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported receivers charset %q", charset)
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}
