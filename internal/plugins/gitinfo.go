package plugins

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
)

var errFound = stderrors.New("found")

// GitInfo sets lastmod and commit bindings on pages from the last commit
// that touched their source file. Pages outside a git work tree, or whose
// front matter already sets lastmod, are left alone.
type GitInfo struct {
	repos map[string]*repoInfo
}

type repoInfo struct {
	repo *git.Repository
	root string
}

func (g *GitInfo) Name() string { return "git-info" }

func (g *GitInfo) Process(ctx context.Context, b *pipeline.Build, stage pipeline.Stage) error {
	if stage != pipeline.BeforeInit {
		return nil
	}
	if g.repos == nil {
		g.repos = make(map[string]*repoInfo)
	}
	for _, it := range b.Store.Pages() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if it.Kind != content.FileItem || !b.Current(it) {
			continue
		}
		if _, ok := it.Bindings.Get("lastmod"); ok {
			continue
		}
		root, ok := b.Source.Resolve(it.SourcePath)
		if !ok || root.Dir == "" {
			continue
		}
		info := g.open(b, root.Dir)
		if info == nil {
			continue
		}
		rel, err := filepath.Rel(info.root, filepath.Join(root.Dir, filepath.FromSlash(it.SourcePath)))
		if err != nil {
			continue
		}
		c, err := lastCommit(info.repo, filepath.ToSlash(rel))
		if err != nil || c == nil {
			continue
		}
		it.Bindings.Set("lastmod", content.String(c.Committer.When.UTC().Format(time.RFC3339)))
		it.Bindings.Set("commit", content.String(c.Hash.String()))
	}
	return nil
}

// open returns the repository containing dir, remembering misses.
func (g *GitInfo) open(b *pipeline.Build, dir string) *repoInfo {
	if info, ok := g.repos[dir]; ok {
		return info
	}
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		b.Logger.Debug("No git repository for source root", logfields.Path(dir), logfields.Error(err))
		g.repos[dir] = nil
		return nil
	}
	wt, err := repo.Worktree()
	if err != nil {
		g.repos[dir] = nil
		return nil
	}
	info := &repoInfo{repo: repo, root: wt.Filesystem.Root()}
	g.repos[dir] = info
	return info
}

func lastCommit(repo *git.Repository, rel string) (*object.Commit, error) {
	head, err := repo.Head()
	if err != nil {
		return nil, err
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), FileName: &rel})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var found *object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		found = c
		return errFound
	})
	if err != nil && !stderrors.Is(err, errFound) {
		return nil, err
	}
	return found, nil
}
