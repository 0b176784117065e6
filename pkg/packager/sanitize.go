package packager

import (
	"regexp"
	"strings"
)

// Characters trimmed from a domain and from each of its labels.
const (
	domainTrim = " \t\n\r\x00\x0B."
	labelTrim  = " \t\n\r\x00\x0B-"
)

var (
	localInvalid = regexp.MustCompile("[^a-zA-Z0-9!#$%&'*+/=?^_`{|}~.-]")
	localValid   = regexp.MustCompile("^[a-zA-Z0-9!#$%&'*+/=?^_`{|}~.-]+$")
	labelInvalid = regexp.MustCompile(`(?i)[^a-z0-9-]+`)
	labelValid   = regexp.MustCompile(`(?i)^[a-z0-9-]+$`)
	phpFile      = regexp.MustCompile(`(?i)^[a-z0-9-]+?\.php`)
)

// allowedProtocols are the URL schemes EscapeURL lets through.
var allowedProtocols = map[string]bool{
	"http": true, "https": true, "ftp": true, "ftps": true, "mailto": true,
	"news": true, "irc": true, "irc6": true, "ircs": true, "gopher": true,
	"nntp": true, "feed": true, "telnet": true, "mms": true, "rtsp": true,
	"sms": true, "svn": true, "tel": true, "fax": true, "xmpp": true,
	"webcal": true, "urn": true,
}

// splitEmail splits at the first '@', which must not be the first byte.
func splitEmail(email string) (local, domain string, ok bool) {
	if len(email) < 6 {
		return "", "", false
	}
	at := strings.IndexByte(email[1:], '@')
	if at < 0 {
		return "", "", false
	}
	at++
	return email[:at], email[at+1:], true
}

// SanitizeEmail strips characters that are not allowed in an email address.
// It returns "" when nothing usable remains.
func SanitizeEmail(email string) string {
	local, domain, ok := splitEmail(email)
	if !ok {
		return ""
	}

	local = localInvalid.ReplaceAllString(local, "")
	if local == "" {
		return ""
	}

	if strings.Contains(domain, "..") {
		return ""
	}

	domain = strings.Trim(domain, domainTrim)
	if domain == "" {
		return ""
	}

	subs := strings.Split(domain, ".")
	if len(subs) < 2 {
		return ""
	}

	var labels []string
	for _, sub := range subs {
		sub = strings.Trim(sub, labelTrim)
		sub = labelInvalid.ReplaceAllString(sub, "")
		if sub != "" {
			labels = append(labels, sub)
		}
	}
	if len(labels) < 2 {
		return ""
	}

	return local + "@" + strings.Join(labels, ".")
}

// IsEmail reports whether email is a plausible address.
func IsEmail(email string) bool {
	local, domain, ok := splitEmail(email)
	if !ok {
		return false
	}

	if !localValid.MatchString(local) {
		return false
	}

	if strings.Contains(domain, "..") {
		return false
	}

	if strings.Trim(domain, domainTrim) != domain {
		return false
	}

	subs := strings.Split(domain, ".")
	if len(subs) < 2 {
		return false
	}

	for _, sub := range subs {
		if strings.Trim(sub, labelTrim) != sub {
			return false
		}
		if !labelValid.MatchString(sub) {
			return false
		}
	}

	return true
}

// EscapeURL cleans a URL for inclusion in a manifest. Disallowed characters
// are stripped, scheme-less hosts get "http://" and URLs using a protocol
// outside the allowed list collapse to "".
func EscapeURL(raw string) string {
	u := strings.TrimLeft(raw, " \t\n\r\x00\x0B")
	if u == "" {
		return ""
	}

	u = strings.ReplaceAll(u, " ", "%20")
	u = stripURLChars(u)
	if u == "" {
		return ""
	}

	if !strings.HasPrefix(strings.ToLower(u), "mailto:") {
		u = deepReplace(u, "%0d", "%0a", "%0D", "%0A")
	}

	u = strings.ReplaceAll(u, ";//", "://")

	if !strings.Contains(u, ":") && !strings.ContainsAny(u[:1], "/#?") && !phpFile.MatchString(u) {
		u = "http://" + u
	}

	if strings.HasPrefix(u, "/") || strings.HasPrefix(u, "#") || strings.HasPrefix(u, "?") {
		return u
	}

	scheme, _, found := strings.Cut(u, ":")
	if found && !allowedProtocols[strings.ToLower(scheme)] {
		return ""
	}

	return u
}

func stripURLChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c >= 0x80:
			b.WriteByte(c)
		case strings.IndexByte("-~+_.?#=!&;,/:%@$|*'()[]", c) >= 0:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// deepReplace removes every needle until none is left, so that nested
// sequences such as "%0%0dd" cannot reassemble one.
func deepReplace(s string, needles ...string) string {
	for {
		found := false
		for _, n := range needles {
			if strings.Contains(s, n) {
				found = true
				s = strings.ReplaceAll(s, n, "")
			}
		}
		if !found {
			return s
		}
	}
}
