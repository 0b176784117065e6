package scaffold

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innocode-digital/scaffold-theme/pkg/config"
	"github.com/innocode-digital/scaffold-theme/pkg/gettext"
	"github.com/innocode-digital/scaffold-theme/pkg/jsondoc"
	"github.com/innocode-digital/scaffold-theme/pkg/packager"
	"github.com/innocode-digital/scaffold-theme/pkg/source"
	"github.com/innocode-digital/scaffold-theme/pkg/store"
)

const skeletonComposer = `{
    "name": "innocode-digital/wp-theme-skeleton",
    "type": "wordpress-theme",
    "description": "Skeleton",
    "authors": [
        {
            "name": "Innocode",
            "email": "post@innocode.no"
        }
    ],
    "require": {
        "php": ">=7.4"
    }
}
`

const skeletonPackage = `{
    "name": "wp-theme-skeleton",
    "private": true,
    "scripts": {
        "build": "webpack"
    }
}
`

const skeletonPO = `# Skeleton translations
msgid ""
msgstr ""
"Project-Id-Version: Skeleton 0.0.0\n"
"Report-Msgid-Bugs-To: https://example.com\n"
"POT-Creation-Date: 2020-01-01T00:00:00+00:00\n"
"PO-Revision-Date: 2020-01-01T00:00:00+00:00\n"
"Content-Type: text/plain; charset=UTF-8\n"

msgid "Hello"
msgstr "Hei"
`

const skeletonFunctions = `<?php

namespace Theme;

const TEXT_DOMAIN = '';
`

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func skeletonZip(t *testing.T) []byte {
	return buildZip(t, map[string]string{
		"skel-main/":                  "",
		"skel-main/composer.json":     skeletonComposer,
		"skel-main/composer.lock":     "{}",
		"skel-main/package.json":      skeletonPackage,
		"skel-main/package-lock.json": "{}",
		"skel-main/style.css":         "/* old */",
		"skel-main/functions.php":     skeletonFunctions,
		"skel-main/languages/nb.po":   skeletonPO,
		"skel-main/languages/x.pot":   "untouched",
		"skel-main/inc/setup.php":     "<?php",
	})
}

type fakeSource struct {
	data []byte
	err  error
	p    *packager.Packager
	hits int
}

func (f *fakeSource) Archive(context.Context) ([]byte, error) {
	f.hits++
	return f.data, f.err
}

func (f *fakeSource) CreatePackager(context.Context) *packager.Packager {
	if f.p == nil {
		return packager.New()
	}
	return f.p
}

// archiveOnly hides CreatePackager.
type archiveOnly struct{ src source.ArchiveSource }

func (a archiveOnly) Archive(ctx context.Context) ([]byte, error) {
	return a.src.Archive(ctx)
}

type staticPrompter struct {
	answer bool
	asked  int
}

func (p *staticPrompter) Confirm(string) (bool, error) {
	p.asked++
	return p.answer, nil
}

func jane() *packager.Packager {
	p := packager.New()
	p.SetName("Jane Doe")
	p.SetEmail("jane@acme.dev")
	p.SetURL("https://acme.dev")
	return p
}

func newTheme(t *testing.T) *Theme {
	t.Helper()
	theme, err := NewTheme("acme", config.ThemeValues{Description: "Acme theme"}, Defaults{
		Author:    "Innocode",
		AuthorURI: "https://innocode.com/",
		RepoOwner: "innocode-digital",
		WPVersion: "6.4.2",
	})
	require.NoError(t, err)
	return theme
}

func readJSON(t *testing.T, s store.Store, segs ...string) *jsondoc.Object {
	t.Helper()
	data, err := s.ReadFile(segs...)
	require.NoError(t, err)
	doc, err := jsondoc.Parse(data)
	require.NoError(t, err)
	return doc
}

func asObject(t *testing.T, v any) *jsondoc.Object {
	t.Helper()
	obj, ok := jsondoc.AsObject(v)
	require.True(t, ok, "%T is not a JSON object", v)
	return obj
}

func readString(t *testing.T, s store.Store, segs ...string) string {
	t.Helper()
	data, err := s.ReadFile(segs...)
	require.NoError(t, err)
	return string(data)
}

func TestRun(t *testing.T) {
	st := store.New(t.TempDir())
	src := &fakeSource{data: skeletonZip(t), p: jane()}
	sc := &Scaffolder{
		Store:                st,
		Source:               src,
		ComposerRepositories: []string{"https://satis.example.com"},
	}

	res, err := sc.Run(context.Background(), newTheme(t))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, st.Path("acme"), res.Dir)

	t.Run("archive directory is flattened", func(t *testing.T) {
		assert.False(t, st.IsDir("acme", "skel-main"))
		ok, err := st.Exists("acme", "inc", "setup.php")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, _ = st.Exists("acme", "languages", "x.pot")
		assert.True(t, ok)
	})

	t.Run("lock files are removed", func(t *testing.T) {
		for _, f := range []string{"composer.lock", "package-lock.json"} {
			ok, err := st.Exists("acme", f)
			require.NoError(t, err)
			assert.False(t, ok, "%s still exists", f)
		}
	})

	t.Run("composer.json", func(t *testing.T) {
		doc := readJSON(t, st, "acme", "composer.json")
		assert.Equal(t, []string{
			"name", "type", "description", "authors", "require",
			"version", "homepage", "readme", "support", "keywords", "repositories",
		}, doc.Keys())

		name, _ := jsondoc.String(doc, "name")
		assert.Equal(t, "innocode-digital/acme", name)
		desc, _ := jsondoc.String(doc, "description")
		assert.Equal(t, "Acme theme", desc)
		homepage, _ := jsondoc.String(doc, "homepage")
		assert.Equal(t, "https://github.com/innocode-digital/acme", homepage)

		support, ok := doc.Get("support")
		require.True(t, ok)
		issues, _ := jsondoc.String(asObject(t, support), "issues")
		assert.Equal(t, "https://github.com/innocode-digital/acme/issues", issues)

		authors := jsondoc.Array(doc, "authors")
		require.Len(t, authors, 2)
		added := asObject(t, authors[1])
		assert.Equal(t, []string{"name", "email", "homepage"}, added.Keys())
		email, _ := jsondoc.String(added, "email")
		assert.Equal(t, "jane@acme.dev", email)

		repos := jsondoc.Array(doc, "repositories")
		require.Len(t, repos, 1)
		u, _ := jsondoc.String(asObject(t, repos[0]), "url")
		assert.Equal(t, "https://satis.example.com", u)

		raw := readString(t, st, "acme", "composer.json")
		assert.Contains(t, raw, `"homepage": "https://github.com/innocode-digital/acme"`)
		assert.True(t, strings.HasPrefix(raw, "{\n    \"name\""))
	})

	t.Run("package.json", func(t *testing.T) {
		doc := readJSON(t, st, "acme", "package.json")
		name, _ := jsondoc.String(doc, "name")
		assert.Equal(t, "acme", name)
		homepage, _ := jsondoc.String(doc, "homepage")
		assert.Equal(t, "https://github.com/innocode-digital/acme#readme", homepage)
		repo, _ := jsondoc.String(doc, "repository")
		assert.Equal(t, "github:innocode-digital/acme", repo)

		bugs, ok := doc.Get("bugs")
		require.True(t, ok)
		bugsURL, _ := jsondoc.String(asObject(t, bugs), "url")
		assert.Equal(t, "https://github.com/innocode-digital/acme/issues", bugsURL)

		contributors := jsondoc.Array(doc, "contributors")
		require.Len(t, contributors, 1)
		assert.Equal(t, []string{"name", "email", "url"}, asObject(t, contributors[0]).Keys())

		private, _ := doc.Get("private")
		assert.Equal(t, true, private)
	})

	t.Run("style.css", func(t *testing.T) {
		want := `@charset "UTF-8";
/*
Theme Name: Acme
Theme URI: https://github.com/innocode-digital/acme
Author: Innocode
Author URI: https://innocode.com/
Description: Acme theme
Requires at least: WordPress 6.4.2
Version: 1.0.0
Text Domain: acme
Tags: wordpress, wp, theme, wordpress-theme, wp-theme, acme, innocode-digital
*/
`
		assert.Equal(t, want, readString(t, st, "acme", "style.css"))
	})

	t.Run("README.md", func(t *testing.T) {
		want := "# Acme\n\nAcme theme\n\nRequires at least: WordPress 6.4.2.\n"
		assert.Equal(t, want, readString(t, st, "acme", "README.md"))
	})

	t.Run("translation catalog", func(t *testing.T) {
		raw := readString(t, st, "acme", "languages", "nb.po")
		cat, err := gettext.Parse([]byte(raw))
		require.NoError(t, err)

		v, _ := cat.Header(gettext.ProjectIDVersion)
		assert.Equal(t, "acme 1.0.0", v)
		v, _ = cat.Header(gettext.ReportMsgidBugsTo)
		assert.Equal(t, "https://github.com/innocode-digital/acme/issues", v)

		date := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[+-]\d{2}:\d{2}$`)
		created, _ := cat.Header(gettext.POTCreationDate)
		revised, _ := cat.Header(gettext.PORevisionDate)
		assert.Regexp(t, date, created)
		assert.Equal(t, created, revised)

		v, _ = cat.Header("Content-Type")
		assert.Equal(t, "text/plain; charset=UTF-8", v)
		assert.Contains(t, raw, "msgid \"Hello\"\nmsgstr \"Hei\"\n")

		assert.Equal(t, "untouched", readString(t, st, "acme", "languages", "x.pot"))
	})

	t.Run("functions.php", func(t *testing.T) {
		raw := readString(t, st, "acme", "functions.php")
		assert.Contains(t, raw, "const TEXT_DOMAIN = 'acme';")
		assert.NotContains(t, raw, "const TEXT_DOMAIN = '';")
	})
}

func TestRunWithoutWPVersion(t *testing.T) {
	st := store.New(t.TempDir())
	theme, err := NewTheme("acme", config.ThemeValues{}, Defaults{RepoOwner: "innocode-digital"})
	require.NoError(t, err)

	sc := &Scaffolder{Store: st, Source: &fakeSource{data: skeletonZip(t)}}
	_, err = sc.Run(context.Background(), theme)
	require.NoError(t, err)

	assert.NotContains(t, readString(t, st, "acme", "style.css"), "Requires at least")
	assert.Equal(t, "# Acme\n\n\n", readString(t, st, "acme", "README.md"))
}

func TestRunAuthorDeduplication(t *testing.T) {
	tests := map[string]struct {
		p           *packager.Packager
		wantAuthors int
	}{
		"same email": {
			p: func() *packager.Packager {
				p := packager.New()
				p.SetName("Someone Else")
				p.SetEmail("post@innocode.no")
				return p
			}(),
			wantAuthors: 1,
		},
		"same name": {
			p: func() *packager.Packager {
				p := packager.New()
				p.SetName("Innocode")
				return p
			}(),
			wantAuthors: 1,
		},
		"new author": {
			p:           jane(),
			wantAuthors: 2,
		},
		"empty packager": {
			p:           packager.New(),
			wantAuthors: 1,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			st := store.New(t.TempDir())
			sc := &Scaffolder{Store: st, Source: &fakeSource{data: skeletonZip(t), p: tc.p}}
			_, err := sc.Run(context.Background(), newTheme(t))
			require.NoError(t, err)

			doc := readJSON(t, st, "acme", "composer.json")
			assert.Len(t, jsondoc.Array(doc, "authors"), tc.wantAuthors)
		})
	}
}

func TestRunSourceWithoutPackager(t *testing.T) {
	st := store.New(t.TempDir())
	sc := &Scaffolder{Store: st, Source: archiveOnly{src: &fakeSource{data: skeletonZip(t), p: jane()}}}
	_, err := sc.Run(context.Background(), newTheme(t))
	require.NoError(t, err)

	doc := readJSON(t, st, "acme", "package.json")
	_, ok := doc.Get("contributors")
	require.True(t, ok)
	assert.Empty(t, jsondoc.Array(doc, "contributors"))
	assert.Len(t, jsondoc.Array(readJSON(t, st, "acme", "composer.json"), "authors"), 1)
}

func TestRunEmptyPackagerCreatesPeopleArrays(t *testing.T) {
	st := store.New(t.TempDir())
	src := &fakeSource{
		data: buildZip(t, map[string]string{
			"skel/composer.json": `{"name": "x"}`,
			"skel/package.json":  `{"name": "x"}`,
		}),
		p: packager.New(),
	}
	sc := &Scaffolder{Store: st, Source: src}
	_, err := sc.Run(context.Background(), newTheme(t))
	require.NoError(t, err)

	tests := map[string]struct {
		file string
		key  string
	}{
		"composer authors":     {file: "composer.json", key: "authors"},
		"package contributors": {file: "package.json", key: "contributors"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, readString(t, st, "acme", tc.file), `"`+tc.key+`": []`)
			assert.Empty(t, jsondoc.Array(readJSON(t, st, "acme", tc.file), tc.key))
		})
	}
}

func TestRunComposerRepositoryAlreadyListed(t *testing.T) {
	composer := `{"name": "x", "repositories": [{"type": "composer", "url": "https://satis.example.com"}]}`
	st := store.New(t.TempDir())
	sc := &Scaffolder{
		Store:                st,
		Source:               &fakeSource{data: buildZip(t, map[string]string{"skel/composer.json": composer})},
		ComposerRepositories: []string{"https://satis.example.com", "https://wpackagist.org"},
	}
	_, err := sc.Run(context.Background(), newTheme(t))
	require.NoError(t, err)

	repos := jsondoc.Array(readJSON(t, st, "acme", "composer.json"), "repositories")
	require.Len(t, repos, 2)
	u, _ := jsondoc.String(asObject(t, repos[1]), "url")
	assert.Equal(t, "https://wpackagist.org", u)
}

func TestRunOverwritePrompt(t *testing.T) {
	tests := map[string]struct {
		force       bool
		answer      bool
		prompter    bool
		wantCreated bool
		wantAsked   int
	}{
		"declined": {
			prompter: true, answer: false,
			wantCreated: false, wantAsked: 1,
		},
		"accepted": {
			prompter: true, answer: true,
			wantCreated: true, wantAsked: 1,
		},
		"forced": {
			force: true, prompter: true,
			wantCreated: true, wantAsked: 0,
		},
		"no prompter": {
			wantCreated: false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			st := store.New(t.TempDir())
			require.NoError(t, st.EnsureDir("acme"))
			require.NoError(t, st.WriteFile([]byte("keep"), 0, "acme", "notes.txt"))

			src := &fakeSource{data: skeletonZip(t)}
			p := &staticPrompter{answer: tc.answer}
			sc := &Scaffolder{Store: st, Source: src, Force: tc.force}
			if tc.prompter {
				sc.Prompter = p
			}

			res, err := sc.Run(context.Background(), newTheme(t))
			require.NoError(t, err)
			assert.Equal(t, tc.wantCreated, res.Created)
			assert.Equal(t, tc.wantAsked, p.asked)

			if !tc.wantCreated {
				assert.Equal(t, 0, src.hits, "archive fetched although nothing is written")
				return
			}
			// entries that existed before are kept
			assert.Equal(t, "keep", readString(t, st, "acme", "notes.txt"))
			ok, _ := st.Exists("acme", "style.css")
			assert.True(t, ok)
		})
	}
}

func TestRunExistingSubdirectoryIsNotFlattened(t *testing.T) {
	st := store.New(t.TempDir())
	require.NoError(t, st.EnsureDir("acme", "skel-main"))
	require.NoError(t, st.WriteFile([]byte("old"), 0, "acme", "skel-main", "old.txt"))

	sc := &Scaffolder{Store: st, Source: &fakeSource{data: skeletonZip(t)}, Force: true}
	_, err := sc.Run(context.Background(), newTheme(t))
	require.NoError(t, err)

	assert.True(t, st.IsDir("acme", "skel-main"))
	for _, f := range []string{"old.txt", "composer.json"} {
		ok, err := st.Exists("acme", "skel-main", f)
		require.NoError(t, err)
		assert.True(t, ok, "skel-main/%s is missing", f)
	}
	ok, _ := st.Exists("acme", "composer.json")
	assert.False(t, ok, "pre-existing directory was flattened")
}

func TestRunErrors(t *testing.T) {
	fetchErr := errors.New("fetch failed")

	tests := map[string]struct {
		src    *fakeSource
		target error
	}{
		"archive fetch fails": {
			src:    &fakeSource{err: fetchErr},
			target: fetchErr,
		},
		"empty archive": {
			src:    &fakeSource{data: []byte{}},
			target: ErrDecompress,
		},
		"not a zip": {
			src:    &fakeSource{data: []byte("<html>not found</html>")},
			target: ErrDecompress,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			sc := &Scaffolder{Store: store.New(t.TempDir()), Source: tc.src}
			_, err := sc.Run(context.Background(), newTheme(t))
			require.ErrorIs(t, err, tc.target)
		})
	}
}

func TestRunMalformedManifest(t *testing.T) {
	sc := &Scaffolder{
		Store:  store.New(t.TempDir()),
		Source: &fakeSource{data: buildZip(t, map[string]string{"skel/package.json": "{not json"})},
	}
	_, err := sc.Run(context.Background(), newTheme(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package.json")
}

func TestRunHostedRepoEndToEnd(t *testing.T) {
	archive := skeletonZip(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/rate_limit", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"resources": {}}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "Jane Doe", "email": "jane@acme.dev"}`))
	})
	mux.HandleFunc("/repos/acme/skel/zipball", func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	src, err := source.New(context.Background(), source.Config{
		Kind:            source.KindHostedRepo,
		Username:        "acme",
		Repo:            "skel",
		Token:           "good-token",
		APIURL:          srv.URL,
		CredentialStore: filepath.Join(t.TempDir(), "auth.json"),
	})
	require.NoError(t, err)

	st := store.New(t.TempDir())
	sc := &Scaffolder{Store: st, Source: src}
	res, err := sc.Run(context.Background(), newTheme(t))
	require.NoError(t, err)
	require.True(t, res.Created)

	authors := jsondoc.Array(readJSON(t, st, "acme", "composer.json"), "authors")
	require.Len(t, authors, 2)
	added := asObject(t, authors[1])
	assert.Equal(t, []string{"name", "email"}, added.Keys())
	name, _ := jsondoc.String(added, "name")
	assert.Equal(t, "Jane Doe", name)
}
