// Package packager holds the contributor identity that is injected into the
// composer.json authors list and the package.json contributors list of a
// generated theme.
package packager

import "strings"

// Field is a single key/value pair of a serialized packager view.
type Field struct {
	Key   string
	Value string
}

// Fields is an ordered set of packager fields. Order is significant: it is
// the order keys are written to the generated manifests.
type Fields []Field

// Get returns the value stored under key.
func (f Fields) Get(key string) (string, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return "", false
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Keys returns the keys in order.
func (f Fields) Keys() []string {
	keys := make([]string, len(f))
	for i, field := range f {
		keys[i] = field.Key
	}
	return keys
}

// Len returns the number of fields.
func (f Fields) Len() int {
	return len(f)
}

// Packager is a contributor identity. Name and URL are normalized when read,
// email is sanitized when written and validated when read. Invalid values
// are never reported as errors; they are simply omitted from every view.
type Packager struct {
	name  string
	email string
	url   string
}

// New returns an empty packager.
func New() *Packager {
	return &Packager{}
}

func (p *Packager) Name() string {
	return p.name
}

func (p *Packager) SetName(name string) {
	p.name = strings.TrimSpace(name)
}

// Email returns the stored address if it is a valid email, otherwise "".
func (p *Packager) Email() string {
	if !IsEmail(p.email) {
		return ""
	}
	return p.email
}

func (p *Packager) SetEmail(email string) {
	p.email = SanitizeEmail(email)
}

// URL returns the stored homepage escaped for output.
func (p *Packager) URL() string {
	return EscapeURL(p.url)
}

func (p *Packager) SetURL(url string) {
	p.url = strings.TrimSpace(url)
}

// ToPlainMap returns name, email and url, in that order, skipping any whose
// getter yields an empty string.
func (p *Packager) ToPlainMap() Fields {
	var fields Fields
	for _, f := range []Field{
		{Key: "name", Value: p.Name()},
		{Key: "email", Value: p.Email()},
		{Key: "url", Value: p.URL()},
	} {
		if f.Value != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// ManifestAuthor returns the composer.json author shape, where the homepage
// is stored under "homepage" instead of "url".
func (p *Packager) ManifestAuthor() Fields {
	fields := p.ToPlainMap()
	for i := range fields {
		if fields[i].Key == "url" {
			fields[i].Key = "homepage"
		}
	}
	return fields
}

// Contributor returns the package.json contributor shape.
func (p *Packager) Contributor() Fields {
	return p.ToPlainMap()
}
