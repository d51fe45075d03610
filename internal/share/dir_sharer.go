// Package share implements the export side of the scan log: copying it
// somewhere another party can pick it up.
package share

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DirSharer copies the shared file into an outbox directory under a
// timestamped name.  It is unavailable when no directory is configured.
type DirSharer struct {
	dir string
	now func() time.Time
}

func NewDirSharer(dir string) *DirSharer {
	return &DirSharer{dir: strings.TrimSpace(dir), now: time.Now}
}

func (s *DirSharer) Available(_ context.Context) bool {
	if s.dir == "" {
		return false
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return false
	}
	return true
}

// Share copies src to <dir>/<base>-<UTC stamp><ext> and returns once the
// copy is synced.
func (s *DirSharer) Share(ctx context.Context, src string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	dst := filepath.Join(s.dir, s.targetName(src))
	tmp := dst + ".partial"

	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("copy to %s: %w", tmp, err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish %s: %w", dst, err)
	}
	return nil
}

func (s *DirSharer) targetName(src string) string {
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s-%s%s", stem, s.now().UTC().Format("20060102T150405Z"), ext)
}
