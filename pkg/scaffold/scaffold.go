// Package scaffold turns a skeleton archive into a new WordPress theme: it
// unpacks the archive into the themes directory and rewrites the theme's
// manifests, headers and translation catalogs for the new slug.
package scaffold

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
	"strings"
	"text/template"

	"github.com/charmbracelet/log"

	"github.com/innocode-digital/scaffold-theme/pkg/gettext"
	"github.com/innocode-digital/scaffold-theme/pkg/jsondoc"
	"github.com/innocode-digital/scaffold-theme/pkg/packager"
	"github.com/innocode-digital/scaffold-theme/pkg/source"
	"github.com/innocode-digital/scaffold-theme/pkg/store"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// ErrDecompress wraps any failure to unpack the skeleton archive.
var ErrDecompress = errors.New("could not decompress your theme files")

// Files rewritten or removed in the generated theme.
const (
	composerFile  = "composer.json"
	packageFile   = "package.json"
	styleFile     = "style.css"
	readmeFile    = "README.md"
	functionsFile = "functions.php"
	languagesDir  = "languages"
)

var lockFiles = []string{"composer.lock", "package-lock.json"}

const (
	textDomainPlaceholder = "const TEXT_DOMAIN = '';"
	textDomainConst       = "const TEXT_DOMAIN = '%s';"
)

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// Scaffolder creates themes inside Store, which is rooted at the themes
// directory.
type Scaffolder struct {
	Store    store.Store
	Source   source.ArchiveSource
	Prompter Prompter
	Logger   *log.Logger

	// Force overwrites a non-empty theme directory without asking.
	Force bool
	// ComposerRepositories are appended to composer.json as composer
	// repositories unless already listed.
	ComposerRepositories []string
}

// Result describes a finished run.
type Result struct {
	// Created is false when the user declined to overwrite.
	Created bool
	Dir     string
	Theme   *Theme
}

// Run scaffolds theme. Declining the overwrite prompt is not an error; Run
// returns a Result with Created unset.
func (s *Scaffolder) Run(ctx context.Context, theme *Theme) (*Result, error) {
	logger := s.logger()
	res := &Result{Dir: s.Store.Path(theme.Slug), Theme: theme}

	ok, err := s.confirmOverwrite(theme.Slug)
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Info("No files created")
		return res, nil
	}

	data, err := s.Source.Archive(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching skeleton: %w", err)
	}

	if err := s.unpack(data, theme.Slug); err != nil {
		return nil, err
	}

	p := packager.New()
	if ps, ok := s.Source.(source.PackagerSource); ok {
		p = ps.CreatePackager(ctx)
	}

	steps := []struct {
		name string
		fn   func(*Theme, *packager.Packager) error
	}{
		{composerFile, s.patchComposer},
		{packageFile, s.patchPackage},
		{styleFile, s.writeStyle},
		{readmeFile, s.writeReadme},
		{languagesDir, s.patchCatalogs},
		{functionsFile, s.patchFunctions},
	}
	for _, step := range steps {
		logger.Debug("updating theme file", "file", step.name)
		if err := step.fn(theme, p); err != nil {
			return nil, fmt.Errorf("updating %s: %w", step.name, err)
		}
	}

	for _, name := range lockFiles {
		if err := s.Store.RemoveFile(theme.Slug, name); err != nil {
			return nil, fmt.Errorf("removing %s: %w", name, err)
		}
	}

	res.Created = true
	return res, nil
}

func (s *Scaffolder) logger() *log.Logger {
	if s.Logger == nil {
		return log.New(io.Discard)
	}
	return s.Logger
}

// confirmOverwrite reports whether files may be written into the theme
// directory. An empty or missing directory never prompts.
func (s *Scaffolder) confirmOverwrite(slug string) (bool, error) {
	entries, err := s.Store.ReadDir(slug)
	if err != nil {
		return false, fmt.Errorf("reading theme directory: %w", err)
	}
	if len(entries) == 0 || s.Force {
		return true, nil
	}
	if s.Prompter == nil {
		return false, nil
	}

	ok, err := s.Prompter.Confirm(fmt.Sprintf("The '%s' directory already exists. Do you want to overwrite it?", s.Store.Path(slug)))
	if err != nil {
		return false, fmt.Errorf("prompting for overwrite: %w", err)
	}
	return ok, nil
}

// unpack extracts the archive into the theme directory and lifts the
// contents of every directory the archive added up into it.
func (s *Scaffolder) unpack(data []byte, slug string) error {
	if err := s.Store.EnsureDir(); err != nil {
		return fmt.Errorf("creating themes directory: %w", err)
	}

	tmp, err := s.Store.WriteTemp(data, "scaffold-theme-*.zip")
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	existing, err := s.Store.ReadDir(slug)
	if err != nil {
		return fmt.Errorf("reading theme directory: %w", err)
	}

	if err := s.Store.Extract(tmp, slug); err != nil {
		return fmt.Errorf("%w ('%s') at '%s': %w", ErrDecompress, tmp, s.Store.Path(slug), err)
	}

	return s.flatten(slug, existing)
}

func (s *Scaffolder) flatten(slug string, existing []string) error {
	names, err := s.Store.ReadDir(slug)
	if err != nil {
		return fmt.Errorf("reading theme directory: %w", err)
	}

	for _, name := range names {
		if strings.HasPrefix(name, ".") || slices.Contains(existing, name) || !s.Store.IsDir(slug, name) {
			continue
		}

		sub := path.Join(slug, name)
		if err := s.Store.CopyDir(sub, slug); err != nil {
			return fmt.Errorf("copying %s: %w", sub, err)
		}
		if err := s.Store.Remove(slug, name); err != nil {
			s.logger().Warn(fmt.Sprintf("Could not fully remove the theme subdirectory '%s'.", s.Store.Path(slug, name)), "err", err)
		}
	}
	return nil
}

// editJSON rewrites a JSON manifest of the theme. A missing file is left
// alone.
func (s *Scaffolder) editJSON(slug, name string, edit func(*jsondoc.Object)) error {
	ok, err := s.Store.Exists(slug, name)
	if err != nil || !ok {
		return err
	}

	data, err := s.Store.ReadFile(slug, name)
	if err != nil {
		return err
	}
	doc, err := jsondoc.Parse(data)
	if err != nil {
		return err
	}

	edit(doc)

	out, err := jsondoc.Encode(doc)
	if err != nil {
		return err
	}
	return s.Store.WriteFile(out, 0, slug, name)
}

func (s *Scaffolder) patchComposer(t *Theme, p *packager.Packager) error {
	return s.editJSON(t.Slug, composerFile, func(doc *jsondoc.Object) {
		doc.Set("name", t.Repo)
		doc.Set("version", t.Version)
		doc.Set("description", t.Description)
		doc.Set("homepage", t.URI)
		doc.Set("readme", t.Readme)
		doc.Set("support", jsondoc.FromPairs("issues", t.Issues, "source", t.URI))
		doc.Set("keywords", t.Keywords)

		for _, u := range s.ComposerRepositories {
			jsondoc.AppendUnique(doc, "repositories", jsondoc.FromPairs("type", "composer", "url", u), "url")
		}

		jsondoc.AppendUnique(doc, "authors", fieldsObject(p.ManifestAuthor()), "name", "email")
	})
}

func (s *Scaffolder) patchPackage(t *Theme, p *packager.Packager) error {
	return s.editJSON(t.Slug, packageFile, func(doc *jsondoc.Object) {
		doc.Set("name", t.Slug)
		doc.Set("version", t.Version)
		doc.Set("description", t.Description)
		doc.Set("homepage", t.Readme)
		doc.Set("bugs", jsondoc.FromPairs("url", t.Issues))
		doc.Set("repository", "github:"+t.Repo)
		doc.Set("keywords", t.Keywords)

		jsondoc.AppendUnique(doc, "contributors", fieldsObject(p.Contributor()), "name", "email")
	})
}

func (s *Scaffolder) writeStyle(t *Theme, _ *packager.Packager) error {
	return s.render(t, "style.css.tmpl", styleFile)
}

func (s *Scaffolder) writeReadme(t *Theme, _ *packager.Packager) error {
	return s.render(t, "README.md.tmpl", readmeFile)
}

func (s *Scaffolder) render(t *Theme, tmpl, name string) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, tmpl, t); err != nil {
		return err
	}
	return s.Store.WriteFile(buf.Bytes(), 0, t.Slug, name)
}

// patchCatalogs rewrites the header of every languages/*.po catalog.
func (s *Scaffolder) patchCatalogs(t *Theme, _ *packager.Packager) error {
	names, err := s.Store.ReadDir(t.Slug, languagesDir)
	if err != nil {
		return err
	}

	now := gettext.Now()
	for _, name := range names {
		if path.Ext(name) != ".po" || s.Store.IsDir(t.Slug, languagesDir, name) {
			continue
		}

		data, err := s.Store.ReadFile(t.Slug, languagesDir, name)
		if err != nil {
			return err
		}
		cat, err := gettext.Parse(data)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", name, err)
		}

		cat.SetHeader(gettext.ProjectIDVersion, t.Slug+" "+t.Version)
		cat.SetHeader(gettext.ReportMsgidBugsTo, t.Issues)
		cat.SetHeader(gettext.POTCreationDate, now)
		cat.SetHeader(gettext.PORevisionDate, now)

		if err := s.Store.WriteFile(cat.Bytes(), 0, t.Slug, languagesDir, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scaffolder) patchFunctions(t *Theme, _ *packager.Packager) error {
	ok, err := s.Store.Exists(t.Slug, functionsFile)
	if err != nil || !ok {
		return err
	}

	data, err := s.Store.ReadFile(t.Slug, functionsFile)
	if err != nil {
		return err
	}
	out := strings.ReplaceAll(string(data), textDomainPlaceholder, fmt.Sprintf(textDomainConst, t.TextDomain))
	return s.Store.WriteFile([]byte(out), 0, t.Slug, functionsFile)
}

func fieldsObject(fields packager.Fields) *jsondoc.Object {
	obj := jsondoc.NewObject()
	for _, f := range fields {
		obj.Set(f.Key, f.Value)
	}
	return obj
}
