// Package gettext rewrites the header entry of a PO translation catalog.
// Everything outside the header's msgstr is kept byte for byte.
package gettext

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO 8601 layout used for the catalog date headers.
const DateLayout = "2006-01-02T15:04:05-07:00"

// Header names set when a theme is scaffolded.
const (
	ProjectIDVersion  = "Project-Id-Version"
	ReportMsgidBugsTo = "Report-Msgid-Bugs-To"
	POTCreationDate   = "POT-Creation-Date"
	PORevisionDate    = "PO-Revision-Date"
)

// nowFunc is overridable in tests.
var nowFunc = time.Now

// Now returns the current time formatted with DateLayout.
func Now() string {
	return nowFunc().Format(DateLayout)
}

type Header struct {
	Name  string
	Value string
}

// Catalog is a parsed PO file.
type Catalog struct {
	lines []string
	// msgstr span of the header entry, [start, end) over lines
	start, end int
	found      bool
	headers    []Header
}

// Parse reads a PO catalog. A catalog without a header entry is valid; one
// is inserted when the catalog is rendered.
func Parse(data []byte) (*Catalog, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	c := &Catalog{lines: strings.Split(text, "\n")}

	i := 0
	for i < len(c.lines) {
		line := strings.TrimSpace(c.lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			i++
			continue
		}
		break
	}
	if i >= len(c.lines) || strings.TrimSpace(c.lines[i]) != `msgid ""` {
		return c, nil
	}

	// a header msgid has no continuation content
	j := i + 1
	for j < len(c.lines) && isContinuation(c.lines[j]) {
		s, err := unquote(c.lines[j], j)
		if err != nil {
			return nil, err
		}
		if s != "" {
			return c, nil
		}
		j++
	}

	if j >= len(c.lines) {
		return c, nil
	}
	first := strings.TrimSpace(c.lines[j])
	if !strings.HasPrefix(first, "msgstr ") {
		return c, nil
	}

	var body strings.Builder
	s, err := unquote(strings.TrimSpace(strings.TrimPrefix(first, "msgstr")), j)
	if err != nil {
		return nil, err
	}
	body.WriteString(s)

	c.start = j
	j++
	for j < len(c.lines) && isContinuation(c.lines[j]) {
		s, err := unquote(c.lines[j], j)
		if err != nil {
			return nil, err
		}
		body.WriteString(s)
		j++
	}
	c.end = j
	c.found = true

	for _, entry := range strings.Split(body.String(), "\n") {
		name, value, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		c.headers = append(c.headers, Header{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}

	return c, nil
}

func isContinuation(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), `"`)
}

func unquote(line string, n int) (string, error) {
	s, err := strconv.Unquote(strings.TrimSpace(line))
	if err != nil {
		return "", fmt.Errorf("line %d: malformed string %s", n+1, strings.TrimSpace(line))
	}
	return s, nil
}

// HasHeaderEntry reports whether the parsed catalog contained a header.
func (c *Catalog) HasHeaderEntry() bool {
	return c.found
}

func (c *Catalog) Headers() []Header {
	return append([]Header(nil), c.headers...)
}

// Header returns the value of the named header. Names compare
// case-insensitively.
func (c *Catalog) Header(name string) (string, bool) {
	for _, h := range c.headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// SetHeader replaces the named header in place or appends it.
func (c *Catalog) SetHeader(name, value string) {
	for i, h := range c.headers {
		if strings.EqualFold(h.Name, name) {
			c.headers[i].Value = value
			return
		}
	}
	c.headers = append(c.headers, Header{Name: name, Value: value})
}

// Bytes renders the catalog.
func (c *Catalog) Bytes() []byte {
	header := c.renderHeader()

	var out []string
	if c.found {
		out = append(out, c.lines[:c.start]...)
		out = append(out, header...)
		out = append(out, c.lines[c.end:]...)
	} else {
		out = append(out, `msgid ""`)
		out = append(out, header...)
		if len(c.lines) > 0 && !(len(c.lines) == 1 && c.lines[0] == "") {
			out = append(out, "")
		}
		out = append(out, c.lines...)
	}
	return []byte(strings.Join(out, "\n"))
}

func (c *Catalog) renderHeader() []string {
	lines := []string{`msgstr ""`}
	for _, h := range c.headers {
		lines = append(lines, quote(h.Name+": "+h.Value+"\n"))
	}
	return lines
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}
