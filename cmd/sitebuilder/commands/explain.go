package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// ExplainCmd implements the 'explain' command.
type ExplainCmd struct {
	Path string `arg:"" help:"Source path relative to the site root, e.g. content/posts/a.md"`
}

func (e *ExplainCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	st, err := openState(cfg)
	if err != nil {
		return err
	}
	if st == nil {
		return errors.ConfigError("explain needs paths.state_db to be set").Build()
	}
	defer closeState(st)

	path := filepath.ToSlash(e.Path)
	if filepath.IsAbs(e.Path) {
		if rel, err := filepath.Rel(cfg.Root, e.Path); err == nil {
			path = filepath.ToSlash(rel)
		}
	}

	out, err := st.Explain(context.Background(), path)
	if err != nil {
		return errors.IOError("cannot read state database").WithCause(err).Build()
	}
	if len(out) == 0 {
		fmt.Fprintf(os.Stdout, "No published output depends on %s\n", path)
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tVIA")
	for _, x := range out {
		fmt.Fprintf(tw, "%s\t%s\n", x.URL, x.Via)
	}
	return tw.Flush()
}
