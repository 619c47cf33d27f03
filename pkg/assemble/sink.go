package assemble

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"
)

// Sink receives a finished document.
type Sink interface {
	WriteDocument(ctx context.Context, doc io.WriterTo) error
}

// FileSink writes a document to Path. Output is staged in a temporary file
// in the same directory and renamed into place, so Path either holds a
// complete document or is untouched.
type FileSink struct {
	Path string
	// Perm is the mode of the written file; zero means 0o644.
	Perm os.FileMode
}

const defaultPerm os.FileMode = 0o644

// WriteDocument implements Sink.
func (s FileSink) WriteDocument(ctx context.Context, doc io.WriterTo) (err error) {
	dir := filepath.Dir(s.Path)
	f, err := os.CreateTemp(dir, ".pic2pdf-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	tmp := f.Name()

	defer func() {
		if err != nil {
			f.Close()
			if rerr := os.Remove(tmp); rerr != nil && !os.IsNotExist(rerr) {
				klog.Warningf("unable to remove %s: %v", tmp, rerr)
			}
		}
	}()

	bw := bufio.NewWriter(f)
	n, err := doc.WriteTo(bw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrOutputWrite, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %w", ErrOutputWrite, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrOutputWrite, err)
	}

	perm := s.Perm
	if perm == 0 {
		perm = defaultPerm
	}
	if err = os.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("%w: chmod: %w", ErrOutputWrite, err)
	}

	if err = ctx.Err(); err != nil {
		return err
	}
	if err = os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}

	klog.V(1).Infof("wrote %d bytes to %s", n, s.Path)
	return nil
}
