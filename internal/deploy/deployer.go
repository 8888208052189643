package deploy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"dotdeploy/internal/core/config"
	coreerrors "dotdeploy/internal/core/errors"
	"dotdeploy/internal/shared/observability"
	"dotdeploy/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FileDeployer copies every [files] entry from the watch root to its target.
// Each file is staged under the cache directory first; the cache file is
// rewritten after a fully successful run.
type FileDeployer struct {
	logger *slog.Logger
}

func NewFileDeployer(logger *slog.Logger) *FileDeployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileDeployer{logger: logger}
}

// Deploy stops at the first failing entry. Sources are processed in sorted
// order so a failure is reproducible.
func (d *FileDeployer) Deploy(ctx context.Context, cfg *config.Config) error {
	ctx, span := observability.Tracer.Start(ctx, "deploy.Deploy",
		trace.WithAttributes(attribute.Int("dotdeploy.files", len(cfg.Files))))
	defer span.End()

	root := cfg.Watch.Root
	cache := &Cache{}

	for _, source := range util.SortedStringKeys(cfg.Files) {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := resolveTarget(root, cfg.Files[source])
		if err != nil {
			return coreerrors.AddContext(
				coreerrors.Wrap(err, coreerrors.CodeValidationError, "invalid target"),
				coreerrors.CtxPath, cfg.Files[source],
			)
		}

		entries, err := d.deployEntry(root, cfg.Cache.Dir, source, target)
		if err != nil {
			return err
		}
		cache.Deployed = append(cache.Deployed, entries...)
	}

	if err := cache.Save(cfg.Cache.File); err != nil {
		return coreerrors.AddContext(
			coreerrors.Wrap(err, coreerrors.CodeInternal, "write cache file"),
			coreerrors.CtxPath, cfg.Cache.File,
		)
	}
	d.logger.Info("deployment complete", "files", len(cache.Deployed))
	return nil
}

func (d *FileDeployer) deployEntry(root, cacheDir, source, target string) ([]Entry, error) {
	src := filepath.Join(root, filepath.FromSlash(source))
	info, err := os.Stat(src)
	if os.IsNotExist(err) {
		return nil, coreerrors.AddContext(
			coreerrors.New(coreerrors.CodeNotFound, "source not found"),
			coreerrors.CtxPath, src,
		)
	}
	if err != nil {
		return nil, coreerrors.AddContext(
			coreerrors.Wrap(err, coreerrors.CodeInternal, "stat source"),
			coreerrors.CtxPath, src,
		)
	}

	if !info.IsDir() {
		entry, err := d.deployFile(src, filepath.Join(cacheDir, filepath.FromSlash(source)), target, source)
		if err != nil {
			return nil, err
		}
		return []Entry{entry}, nil
	}

	var entries []Entry
	err = filepath.Walk(src, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		name := util.ToSlash(filepath.Join(filepath.FromSlash(source), rel))
		entry, err := d.deployFile(path, filepath.Join(cacheDir, filepath.FromSlash(name)), filepath.Join(target, rel), name)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil && coreerrors.CodeOf(err) == "" {
		err = coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeInternal, "walk source"), coreerrors.CtxPath, src)
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (d *FileDeployer) deployFile(src, staged, target, name string) (Entry, error) {
	if err := copyFile(src, staged); err != nil {
		return Entry{}, coreerrors.AddContext(
			coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeInternal, "stage file"), coreerrors.CtxPath, staged),
			coreerrors.CtxOperation, "stage",
		)
	}
	if err := copyFile(staged, target); err != nil {
		return Entry{}, coreerrors.AddContext(
			coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeInternal, "install file"), coreerrors.CtxPath, target),
			coreerrors.CtxOperation, "install",
		)
	}

	info, err := os.Stat(target)
	if err != nil {
		return Entry{}, coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeInternal, "stat target"), coreerrors.CtxPath, target)
	}
	sum, err := fileSHA256(target)
	if err != nil {
		return Entry{}, coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeInternal, "hash target"), coreerrors.CtxPath, target)
	}
	d.logger.Debug("deployed file", "source", name, "target", target)
	return Entry{Source: name, Target: target, Size: info.Size(), SHA256: sum}, nil
}

func resolveTarget(root, target string) (string, error) {
	expanded, err := config.ExpandHome(target)
	if err != nil {
		return "", err
	}
	if expanded == "" {
		return "", fmt.Errorf("empty target")
	}
	return config.ResolveRelative(root, expanded), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
