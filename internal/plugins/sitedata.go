package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
)

// SiteData publishes the site configuration and the files of the data
// directory into the site scope. data/authors.yaml is reachable as
// data.authors; nested directories nest maps. Data files are global
// dependencies: a change to one rebuilds everything.
type SiteData struct {
	DataDir string
	// Site holds the configured site bindings (title, base_url, params).
	Site *content.Bindings
}

func (s *SiteData) Name() string { return "site-data" }

func (s *SiteData) Process(ctx context.Context, b *pipeline.Build, stage pipeline.Stage) error {
	if stage != pipeline.BeforeInit {
		return nil
	}
	b.Site.CopyDefaults(s.Site)
	if s.DataDir == "" {
		return nil
	}

	files, err := b.Source.Walk(s.DataDir)
	if err != nil {
		return errors.IOError("cannot enumerate data files").WithCause(err).WithContext("dir", s.DataDir).Build()
	}
	data := content.NewBindings()
	for _, p := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.Deps.MarkGlobal(p)
		v, ok, err := s.decode(b, p)
		if err != nil {
			b.Log.Error(stage, s.Name(), errors.ContentError("invalid data file").WithCause(err).WithContext("path", p).Build())
			continue
		}
		if !ok {
			continue
		}
		rel := strings.TrimPrefix(p, strings.Trim(s.DataDir, "/")+"/")
		keys := strings.Split(strings.TrimSuffix(rel, path.Ext(rel)), "/")
		setNested(data, keys, v)
	}
	b.Site.Set("data", content.Map(data))
	return nil
}

func (s *SiteData) decode(b *pipeline.Build, p string) (content.Value, bool, error) {
	var raw any
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		buf, err := b.Source.Read(p)
		if err != nil {
			return content.Value{}, false, err
		}
		if err := yaml.Unmarshal(buf, &raw); err != nil {
			return content.Value{}, false, fmt.Errorf("yaml: %w", err)
		}
	case ".json", ".jsonc":
		buf, err := b.Source.Read(p)
		if err != nil {
			return content.Value{}, false, err
		}
		if err := json.Unmarshal(jsonc.ToJSON(buf), &raw); err != nil {
			return content.Value{}, false, fmt.Errorf("json: %w", err)
		}
	default:
		return content.Value{}, false, nil
	}
	return content.FromAny(raw), true, nil
}

func setNested(b *content.Bindings, keys []string, v content.Value) {
	for _, k := range keys[:len(keys)-1] {
		next, ok := b.Get(k)
		m, isMap := next.AsMap()
		if !ok || !isMap {
			m = content.NewBindings()
			b.Set(k, content.Map(m))
		}
		b = m
	}
	b.Set(keys[len(keys)-1], v)
}
