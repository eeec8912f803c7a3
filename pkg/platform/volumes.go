package platform

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/channelkit/channelkit/pkg/errors"
	"github.com/channelkit/channelkit/pkg/httputil"
)

// Volume is a platform asset volume channels mount for node content.
type Volume struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
	FileCount   int    `json:"file_count"`
}

// VolumeFile is one entry of a volume manifest.
type VolumeFile struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	Hash      string `json:"hash"`
	URL       string `json:"url"`
}

// VolumeManifest lists a volume's files with their download URLs.
type VolumeManifest struct {
	Name    string       `json:"name"`
	Version string       `json:"version"`
	Files   []VolumeFile `json:"files"`
}

// ListVolumes returns the volumes visible to the authenticated workspace.
// Results are cached; pass refresh to bypass the cache.
func (c *Client) ListVolumes(ctx context.Context, refresh bool) ([]Volume, error) {
	var volumes []Volume
	err := c.Cached(ctx, c.keyer.HTTPKey("volumes", "list"), refresh, &volumes, func() error {
		return c.Get(ctx, "/api/volumes", &volumes)
	})
	return volumes, err
}

// GetVolumeManifest retrieves a volume's file manifest. The manifest is
// cached; pass refresh to bypass the cache.
func (c *Client) GetVolumeManifest(ctx context.Context, name string, refresh bool) (*VolumeManifest, error) {
	if err := errors.ValidateVolumeName(name); err != nil {
		return nil, err
	}
	var m VolumeManifest
	err := c.Cached(ctx, c.keyer.VolumeKey(name, "latest"), refresh, &m, func() error {
		return c.Get(ctx, "/api/volumes/"+url.PathEscape(name)+"/manifest", &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DownloadVolume mirrors a volume into destDir following its manifest.
// Existing files are overwritten. onFile, if non-nil, is called before
// each file downloads, for progress display.
func (c *Client) DownloadVolume(ctx context.Context, m *VolumeManifest, destDir string, onFile func(VolumeFile)) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", destDir)
	}

	for _, f := range m.Files {
		if err := errors.ValidatePath(f.Path); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "volume %s", m.Name)
		}
		if onFile != nil {
			onFile(f)
		}
		if err := c.downloadFile(ctx, f, filepath.Join(destDir, filepath.FromSlash(f.Path))); err != nil {
			return errors.Wrap(errors.ErrCodeNetwork, err, "volume %s: file %s", m.Name, f.Path)
		}
	}
	return nil
}

func (c *Client) downloadFile(ctx context.Context, f VolumeFile, dest string) error {
	return httputil.RetryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
		if err != nil {
			return err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return &httputil.RetryableError{Err: err}
		}
		defer resp.Body.Close()
		if err := checkStatus(resp); err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		out, err := os.Create(dest)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, resp.Body)
		return err
	})
}
