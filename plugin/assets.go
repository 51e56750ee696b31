package plugin

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ledgewood/folio/errors"
)

// MaterializeAssets copies the subtree rooted at root inside fsys into
// destDir, preserving the relative layout. Built-in plugins ship prompts
// and templates via go:embed and materialize them on first use so the
// generator can read them like any on-disk plugin asset.
//
// Existing files under destDir are overwritten, so a version upgrade
// refreshes stale assets in place.
func MaterializeAssets(fsys fs.FS, root, destDir string) error {
	sub, err := fs.Sub(fsys, root)
	if err != nil {
		return errors.Wrapf(err, "asset root %q", root)
	}

	return fs.WalkDir(sub, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		dest := filepath.Join(destDir, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(dest, 0o755)
		}
		data, err := fs.ReadFile(sub, path)
		if err != nil {
			return errors.Wrapf(err, "reading embedded asset %q", path)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return errors.Wrapf(err, "writing asset %q", dest)
		}
		return nil
	})
}
