package platform

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/channelkit/channelkit/pkg/errors"
)

// Deployment is a channel version accepted by the platform.
type Deployment struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Version   string    `json:"version"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// DeployChannel packs the bundle directory into a tar.gz archive and
// uploads it as a new version of the named channel. Hidden files and
// directories are skipped.
func (c *Client) DeployChannel(ctx context.Context, name, bundleDir string) (*Deployment, error) {
	if err := errors.ValidateName(name); err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(writeArchive(pw, bundleDir))
	}()

	var dep Deployment
	if err := c.Upload(ctx, "/api/channels/"+name+"/deployments", "application/gzip", pr, &dep); err != nil {
		return nil, err
	}
	return &dep, nil
}

func writeArchive(w io.Writer, dir string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if name != "." && name[0] == '.' {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		f.Close()
		return err
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}
