package fetcher

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// HistoryDir holds prior revisions in a remote. It is only fetched on request.
const HistoryDir = ".history"

type plan struct {
	dirs     []string
	files    []planFile
	total    int64
	warnings []string
}

type planFile struct {
	rel  string
	size int64
	mode fs.FileMode
}

// scan lists what a fetch of source will copy. Non-regular files are left
// out with a warning.
func scan(source string, withHistory bool) (*plan, error) {
	p := &plan{}
	err := filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if rel == HistoryDir && !withHistory {
				return filepath.SkipDir
			}
			p.dirs = append(p.dirs, rel)
			return nil
		}
		if rel == MarkerFile {
			return nil
		}
		if !d.Type().IsRegular() {
			p.warnings = append(p.warnings, fmt.Sprintf("skipped %s: not a regular file", filepath.ToSlash(rel)))
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		p.files = append(p.files, planFile{rel: rel, size: info.Size(), mode: info.Mode().Perm()})
		p.total += info.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", source, err)
	}
	return p, nil
}

type progressFunc func(percentage float64, speed string)

// copyTree copies the planned files from source into target with at most
// workers files in flight, reporting progress every interval.
func copyTree(ctx context.Context, source, target string, p *plan, workers int, interval time.Duration, report progressFunc) error {
	for _, dir := range p.dirs {
		if err := os.MkdirAll(filepath.Join(target, dir), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	var copied atomic.Int64
	start := time.Now()
	stop := make(chan struct{})
	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				report(percent(copied.Load(), p.total), speed(copied.Load(), time.Since(start)))
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for _, f := range p.files {
		g.Go(func() error {
			return copyFile(gctx, filepath.Join(source, f.rel), filepath.Join(target, f.rel), f.mode, &copied)
		})
	}
	err := g.Wait()
	close(stop)
	<-reporterDone
	if err != nil {
		return err
	}

	report(100, speed(copied.Load(), time.Since(start)))
	return nil
}

func copyFile(ctx context.Context, src, dst string, mode fs.FileMode, copied *atomic.Int64) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0200)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}

	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			out.Close()
			return err
		}
		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				return fmt.Errorf("writing %s: %w", dst, werr)
			}
			copied.Add(int64(n))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			out.Close()
			return fmt.Errorf("reading %s: %w", src, rerr)
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dst, err)
	}
	return nil
}

func percent(done, total int64) float64 {
	if total <= 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}

func speed(bytes int64, elapsed time.Duration) string {
	secs := elapsed.Seconds()
	if secs <= 0 || bytes <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(float64(bytes)/secs)) + "/s"
}
