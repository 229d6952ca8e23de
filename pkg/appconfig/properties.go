/*
Copyright 2026 The Faros Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package appconfig

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf16"
)

// rawLine is one physical line; NL is "\n", "\r\n" or "" for a final line
// without a terminator.
type rawLine struct {
	Text string
	NL   string
}

// entry is a logical key/value line spanning lines[start:end+1].
type entry struct {
	start, end int
	key        string
	// lead is the text of the first physical line up to where the value starts.
	lead  string
	value string
}

// propertiesSource edits a flat properties file line by line so untouched
// lines are written back byte for byte.
type propertiesSource struct {
	lines     []rawLine
	defaultNL string
}

func parseProperties(data []byte) *propertiesSource {
	lines := splitRawLines(data)
	nl := "\n"
	for _, l := range lines {
		if l.NL != "" {
			nl = l.NL
			break
		}
	}
	return &propertiesSource{lines: lines, defaultNL: nl}
}

func (p *propertiesSource) Format() Format { return FormatProperties }

func (p *propertiesSource) Get(key string) (string, bool) {
	e, ok := p.find(key)
	if !ok {
		return "", false
	}
	return unescape(e.value), true
}

func (p *propertiesSource) Keys() []string {
	seen := map[string]bool{}
	var keys []string
	for _, e := range p.entries() {
		if seen[e.key] {
			continue
		}
		seen[e.key] = true
		keys = append(keys, e.key)
	}
	return keys
}

func (p *propertiesSource) Merge(entries map[string]string) (bool, error) {
	changed := false
	for _, key := range sortedKeys(entries) {
		if p.set(key, entries[key]) {
			changed = true
		}
	}
	return changed, nil
}

// CanMerge always succeeds; any key can be appended to a flat list.
func (p *propertiesSource) CanMerge([]string) error { return nil }

func (p *propertiesSource) Encode() ([]byte, error) {
	var buf bytes.Buffer
	for _, l := range p.lines {
		buf.WriteString(l.Text)
		buf.WriteString(l.NL)
	}
	return buf.Bytes(), nil
}

func (p *propertiesSource) set(key, value string) bool {
	if e, ok := p.find(key); ok {
		if unescape(e.value) == value {
			return false
		}
		line := rawLine{Text: e.lead + escapeValue(value), NL: p.lines[e.end].NL}
		updated := make([]rawLine, 0, len(p.lines)-(e.end-e.start))
		updated = append(updated, p.lines[:e.start]...)
		updated = append(updated, line)
		updated = append(updated, p.lines[e.end+1:]...)
		p.lines = updated
		return true
	}

	if n := len(p.lines); n > 0 && p.lines[n-1].NL == "" {
		p.lines[n-1].NL = p.defaultNL
	}
	p.lines = append(p.lines, rawLine{Text: escapeKey(key) + "=" + escapeValue(value), NL: p.defaultNL})
	return true
}

// find returns the last entry for key; later definitions win.
func (p *propertiesSource) find(key string) (entry, bool) {
	var (
		found entry
		ok    bool
	)
	for _, e := range p.entries() {
		if e.key == key {
			found, ok = e, true
		}
	}
	return found, ok
}

func (p *propertiesSource) entries() []entry {
	var out []entry
	for i := 0; i < len(p.lines); i++ {
		text := p.lines[i].Text
		trimmed := strings.TrimLeft(text, " \t\f")
		if trimmed == "" || trimmed[0] == '#' || trimmed[0] == '!' {
			continue
		}
		start := i
		logical := text
		for continues(p.lines[i].Text) && i+1 < len(p.lines) {
			i++
			logical = logical[:len(logical)-1] + strings.TrimLeft(p.lines[i].Text, " \t\f")
		}
		if continues(logical) {
			logical = logical[:len(logical)-1]
		}
		key, valueAt, separated := splitKeyValue(logical)
		lead := logical[:valueAt]
		if !separated {
			// A bare key has no separator to reuse.
			lead += "="
		}
		out = append(out, entry{
			start: start,
			end:   i,
			key:   unescape(key),
			lead:  lead,
			value: logical[valueAt:],
		})
	}
	return out
}

// splitKeyValue returns the raw key and the offset where the value begins.
// The key ends at the first unescaped '=', ':' or whitespace; one separator
// and the whitespace around it belong to neither side. separated is false
// for a bare key with nothing after it.
func splitKeyValue(line string) (key string, valueAt int, separated bool) {
	i := len(line) - len(strings.TrimLeft(line, " \t\f"))
	keyStart := i
	for i < len(line) {
		c := line[i]
		if c == '\\' {
			i += 2
			continue
		}
		if c == '=' || c == ':' || c == ' ' || c == '\t' || c == '\f' {
			break
		}
		i++
	}
	if i > len(line) {
		i = len(line)
	}
	key = line[keyStart:i]
	keyEnd := i
	for i < len(line) && (line[i] == ' ' || line[i] == '\t' || line[i] == '\f') {
		i++
	}
	if i < len(line) && (line[i] == '=' || line[i] == ':') {
		i++
		for i < len(line) && (line[i] == ' ' || line[i] == '\t' || line[i] == '\f') {
			i++
		}
	}
	return key, i, i > keyEnd
}

// continues reports whether a line ends with an odd number of backslashes.
func continues(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case 'u':
			r, n, ok := unicodeEscape(s[i+1:])
			if !ok {
				b.WriteByte('u')
				continue
			}
			b.WriteRune(r)
			i += n
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// unicodeEscape decodes the four hex digits following a \u escape, joining
// a UTF-16 surrogate pair written as two escapes. n is the number of bytes
// consumed after the 'u'.
func unicodeEscape(s string) (r rune, n int, ok bool) {
	hex4 := func(s string) (rune, bool) {
		if len(s) < 4 {
			return 0, false
		}
		v, err := strconv.ParseUint(s[:4], 16, 16)
		return rune(v), err == nil
	}
	r, ok = hex4(s)
	if !ok {
		return 0, 0, false
	}
	if utf16.IsSurrogate(r) && len(s) >= 10 && s[4:6] == `\u` {
		if low, ok := hex4(s[6:]); ok {
			if pair := utf16.DecodeRune(r, low); pair != '\uFFFD' {
				return pair, 10, true
			}
		}
	}
	return r, 4, true
}

func escapeValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case ' ':
			if i == 0 {
				b.WriteString(`\ `)
			} else {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func escapeKey(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '=', ':', ' ', '#', '!', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func splitRawLines(data []byte) []rawLine {
	if len(data) == 0 {
		return nil
	}
	var out []rawLine
	start := 0
	for start < len(data) {
		idx := bytes.IndexByte(data[start:], '\n')
		if idx < 0 {
			out = append(out, rawLine{Text: string(data[start:])})
			break
		}
		idx += start
		line := data[start:idx]
		nl := "\n"
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
			nl = "\r\n"
		}
		out = append(out, rawLine{Text: string(line), NL: nl})
		start = idx + 1
	}
	return out
}
