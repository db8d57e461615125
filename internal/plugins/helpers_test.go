package plugins

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/deps"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

func TestPageURL(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"index.md", "/"},
		{"about.md", "/about/"},
		{"posts/_index.md", "/posts/"},
		{"posts/hello.md", "/posts/hello/"},
		{"docs/guide/index.html", "/docs/guide/"},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, PageURL(tt.rel))
		})
	}
}

func TestSectionOf(t *testing.T) {
	assert.Empty(t, SectionOf("about.md"))
	assert.Equal(t, "posts", SectionOf("posts/hello.md"))
	assert.Equal(t, "docs", SectionOf("docs/guide/index.md"))
}

func TestMinifyCSS(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "rules",
			in:   "body {\n  color: red;\n  margin: 0 auto;\n}\n/* c */\na > b , c { color: red }",
			want: "body{color:red;margin:0 auto}a>b,c{color:red}",
		},
		{
			name: "descendant pseudo class",
			in:   "nav :hover { color: blue }",
			want: "nav :hover{color:blue}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MinifyCSS([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestMinifyCSS_KeepsLicenseComment(t *testing.T) {
	out, err := MinifyCSS([]byte("/*! keep */\n/* drop */\np { color: red; }\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "/*! keep */")
	assert.NotContains(t, string(out), "drop")
	assert.Contains(t, string(out), "p{color:red}")
}

func TestApplyEdits(t *testing.T) {
	src := []byte("<a href=\"x.md\">x</a> and <a href=\"y.md\">y</a>")
	out, err := ApplyEdits(src, []Edit{
		{Start: 0, End: 15, Replacement: []byte(`<a href="/x/">`)},
		{Start: 25, End: 40, Replacement: []byte(`<a href="/y/">`)},
	})
	require.NoError(t, err)
	assert.Equal(t, `<a href="/x/">x</a> and <a href="/y/">y</a>`, string(out))

	_, err = ApplyEdits(src, []Edit{{Start: 0, End: 10}, {Start: 5, End: 12}})
	require.Error(t, err)

	_, err = ApplyEdits(src, []Edit{{Start: 3, End: 100}})
	require.Error(t, err)
}

func TestFingerprint_IgnoresVolatileFields(t *testing.T) {
	fields := content.NewBindings()
	fields.Set("title", content.String("Hello"))
	base, err := Fingerprint(fields, []byte("body\n"))
	require.NoError(t, err)
	require.NotEmpty(t, base)

	fields.Set("lastmod", content.String("2024-01-01"))
	fields.Set("fingerprint", content.String("stale"))
	same, err := Fingerprint(fields, []byte("body\n"))
	require.NoError(t, err)
	assert.Equal(t, base, same)

	changed, err := Fingerprint(fields, []byte("other\n"))
	require.NoError(t, err)
	assert.NotEqual(t, base, changed)
}

func TestGitInfo_SetsLastCommit(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "content"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "content", "a.md"), []byte("a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "content", "b.md"), []byte("---\nlastmod: 2020-01-01\n---\nb\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("content")
	require.NoError(t, err)
	when := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	hash, err := wt.Commit("add content", &git.CommitOptions{
		Author: &object.Signature{Name: "Site", Email: "site@example.org", When: when},
	})
	require.NoError(t, err)

	src := source.NewDirs(dir)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := pipeline.NewBuild("git", pipeline.Full, 1, content.NewStore(), deps.NewTracker(), src, content.DefaultTypes(), logger)
	a := content.NewFileItem(content.Pages, "/a/", "content/a.md", content.Markdown, readFrom(src, "content/a.md"))
	other := content.NewFileItem(content.Pages, "/b/", "content/b.md", content.Markdown, readFrom(src, "content/b.md"))
	other.Bindings.Set("lastmod", content.String("2020-01-01"))
	require.NoError(t, b.Add(a))
	require.NoError(t, b.Add(other))

	require.NoError(t, (&GitInfo{}).Process(t.Context(), b, pipeline.BeforeInit))

	assert.Equal(t, "2024-05-06T07:08:09Z", a.Bindings.GetString("lastmod"))
	assert.Equal(t, hash.String(), a.Bindings.GetString("commit"))
	assert.Equal(t, "2020-01-01", other.Bindings.GetString("lastmod"))
	assert.Empty(t, other.Bindings.GetString("commit"))
}

func TestGitInfo_OutsideRepositoryIsIgnored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("a\n"), 0o644))

	src := source.NewDirs(dir)
	b := pipeline.NewBuild("git", pipeline.Full, 1, content.NewStore(), deps.NewTracker(), src, content.DefaultTypes(), nil)
	a := content.NewFileItem(content.Pages, "/a/", "a.md", content.Markdown, readFrom(src, "a.md"))
	require.NoError(t, b.Add(a))

	require.NoError(t, (&GitInfo{}).Process(t.Context(), b, pipeline.BeforeInit))
	_, ok := a.Bindings.Get("lastmod")
	assert.False(t, ok)
}
