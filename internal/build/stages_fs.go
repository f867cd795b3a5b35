package build

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitegen/internal/hooks"
)

// stagePrepareOutput clears and recreates the output directory. Every
// build regenerates the whole tree.
func (b *Builder) stagePrepareOutput(_ context.Context, _ *state) error {
	if _, err := os.Stat(b.cfg.OutputDir); err == nil {
		slog.Info("Clearing output directory", "dir", b.cfg.OutputDir)
		if err := os.RemoveAll(b.cfg.OutputDir); err != nil {
			return fmt.Errorf("clear output directory: %w", err)
		}
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// stageCopyStatic copies the static root into {output}/static.
func (b *Builder) stageCopyStatic(_ context.Context, st *state) error {
	st.registry.Run(hooks.BeforeCopyStatic, st.hookCtx)
	defer st.registry.Run(hooks.AfterCopyStatic, st.hookCtx)

	dest := filepath.Join(b.cfg.OutputDir, "static")
	if _, err := os.Stat(b.cfg.StaticDir); err != nil {
		slog.Warn("Static directory not found, skipping static file copy", "dir", b.cfg.StaticDir)
		return nil
	}
	slog.Info("Copying static files", "from", b.cfg.StaticDir, "to", dest)
	return copyTree(b.cfg.StaticDir, dest)
}

// stageCopyAssets copies the assets root flat into the output directory.
func (b *Builder) stageCopyAssets(_ context.Context, st *state) error {
	st.registry.Run(hooks.BeforeCopyAssets, st.hookCtx)
	defer st.registry.Run(hooks.AfterCopyAssets, st.hookCtx)

	if _, err := os.Stat(b.cfg.AssetsDir); err != nil {
		slog.Warn("Assets directory not found, skipping asset copy", "dir", b.cfg.AssetsDir)
		return nil
	}
	slog.Info("Copying assets", "from", b.cfg.AssetsDir, "to", b.cfg.OutputDir)
	return copyTree(b.cfg.AssetsDir, b.cfg.OutputDir)
}

// copyTree recursively copies src into dest, creating directories as
// needed and overwriting existing files.
func copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
