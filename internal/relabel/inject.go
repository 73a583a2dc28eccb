package relabel

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// minTimestampDigits is the shortest trailing digit run treated as an
// existing unix timestamp on a sample line. Unix seconds have had ten
// digits since 2001 and will until 2286.
const minTimestampDigits = 10

// Injector rewrites exposition text so that every sample line carries
// the fixed identity label set. Injected values always win over
// colliding scraped labels; comment lines pass through byte-identical.
type Injector struct {
	// labels maps label name to its already-escaped value text, ready
	// to be placed between quotes during serialization.
	labels map[string]string
}

// NewInjector builds an Injector for the given fixed label set. Values
// are escaped once here; the caller passes plain strings.
func NewInjector(fixed map[string]string) *Injector {
	labels := make(map[string]string, len(fixed))
	for k, v := range fixed {
		labels[k] = escapeValue(v)
	}
	return &Injector{labels: labels}
}

// Apply transforms raw exposition text in a single pass. Sample lines
// are rewritten with the merged label set in sorted key order; lines
// whose value segment does not already end in a unix timestamp get the
// current time in seconds appended. Comment and blank lines are
// preserved verbatim at their original positions.
//
// Re-applying Apply to its own output is a no-op: labels merge to the
// same values and the appended timestamp suppresses further appends.
func (in *Injector) Apply(raw string, now time.Time) (string, error) {
	lines := strings.Split(raw, "\n")
	ts := now.Unix()

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		out, err := in.applyLine(line, ts)
		if err != nil {
			return "", fmt.Errorf("relabel: line %d: %w", i+1, err)
		}
		lines[i] = out
	}
	return strings.Join(lines, "\n"), nil
}

// applyLine rewrites one sample line.
func (in *Injector) applyLine(line string, ts int64) (string, error) {
	name, set, value, err := parseSample(line)
	if err != nil {
		return "", err
	}

	for k, v := range in.labels {
		set[k] = v
	}

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(set[k])
		b.WriteByte('"')
	}
	b.WriteByte('}')
	b.WriteByte(' ')
	b.WriteString(value)

	if !hasTimestamp(value) {
		fmt.Fprintf(&b, " %d", ts)
	}
	return b.String(), nil
}

// parseSample splits a sample line into metric name, label set, and the
// value segment (value plus optional timestamp). Label values are kept
// as their raw quoted text with escape sequences untouched, so
// re-serialization cannot mangle them.
func parseSample(line string) (string, map[string]string, string, error) {
	s := strings.TrimSpace(line)

	// Metric name runs to the first '{' or whitespace.
	end := strings.IndexAny(s, "{ \t")
	if end <= 0 {
		return "", nil, "", fmt.Errorf("no value segment in %q", s)
	}
	name := s[:end]
	rest := s[end:]

	set := make(map[string]string)
	if rest[0] == '{' {
		var err error
		rest, err = parseLabels(rest[1:], set)
		if err != nil {
			return "", nil, "", err
		}
	}

	value := strings.TrimSpace(rest)
	if value == "" {
		return "", nil, "", fmt.Errorf("no value segment in %q", s)
	}
	return name, set, value, nil
}

// parseLabels consumes a label block (after the opening brace) into
// set and returns the remainder of the line past the closing brace.
func parseLabels(s string, set map[string]string) (string, error) {
	for {
		s = strings.TrimLeft(s, " \t,")
		if s == "" {
			return "", fmt.Errorf("unterminated label block")
		}
		if s[0] == '}' {
			return s[1:], nil
		}

		eq := strings.IndexByte(s, '=')
		if eq <= 0 {
			return "", fmt.Errorf("malformed label pair near %q", s)
		}
		key := strings.TrimSpace(s[:eq])
		s = strings.TrimLeft(s[eq+1:], " \t")
		if s == "" || s[0] != '"' {
			return "", fmt.Errorf("label %q: value is not quoted", key)
		}

		// Scan the quoted value, honoring backslash escapes.
		i, closed := 1, -1
		for i < len(s) && closed < 0 {
			switch s[i] {
			case '\\':
				i += 2
			case '"':
				closed = i
			default:
				i++
			}
		}
		if closed < 0 {
			return "", fmt.Errorf("label %q: unterminated quote", key)
		}
		set[key] = s[1:closed]
		s = s[closed+1:]
	}
}

// hasTimestamp reports whether the value segment already ends in a run
// of at least minTimestampDigits digits, i.e. an existing unix
// timestamp that must be left unchanged.
func hasTimestamp(value string) bool {
	n := 0
	for i := len(value) - 1; i >= 0; i-- {
		if value[i] < '0' || value[i] > '9' {
			break
		}
		n++
	}
	return n >= minTimestampDigits
}

// escapeValue escapes a plain string for placement between the quotes
// of a label value: backslash, double quote, and newline.
func escapeValue(v string) string {
	var b strings.Builder
	for _, r := range v {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
