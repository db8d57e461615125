package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output  string `short:"o" help:"Override paths.output"`
	BaseURL string `name:"base-url" help:"Override site.base_url"`
	Drafts  bool   `short:"D" help:"Include draft pages"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	b.apply(cfg)

	st, err := openState(cfg)
	if err != nil {
		return err
	}
	defer closeState(st)

	recorder, _ := newRecorder(cfg)
	s, err := site.New(ctx, cfg,
		site.WithLogger(g.Logger),
		site.WithRecorder(recorder),
		site.WithState(st))
	if err != nil {
		return err
	}

	report, err := s.Full(ctx)
	if report != nil {
		fmt.Fprint(os.Stdout, report.Summary())
	}
	if err != nil {
		return err
	}
	if report.Failed() {
		return errors.ContentError("build failed").
			WithContext("errors", len(report.Errors)).
			WithContext("build_id", report.BuildID).
			Build()
	}
	return nil
}

func (b *BuildCmd) apply(cfg *config.Config) {
	if b.Output != "" {
		cfg.Paths.Output = b.Output
	}
	if b.BaseURL != "" {
		cfg.Site.BaseURL = b.BaseURL
	}
	if b.Drafts {
		cfg.Build.Drafts = true
	}
}
