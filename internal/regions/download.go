package regions

import (
	"archive/zip"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terrastat/landcover-cli/internal/resilience"
)

// DownloadBoundaries fetches a boundary ZIP archive over HTTP or FTP,
// extracts it under dataDir, and returns the path to the extracted .shp
// file. An archive already present on disk is not re-downloaded.
func DownloadBoundaries(ctx context.Context, rawURL, dataDir string) (string, error) {
	log := zap.L().With(
		zap.String("component", "regions.download"),
		zap.String("url", rawURL),
	)

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", eris.Wrap(err, "regions: create data dir")
	}

	parts := strings.Split(rawURL, "/")
	zipName := parts[len(parts)-1]
	if zipName == "" || !strings.HasSuffix(strings.ToLower(zipName), ".zip") {
		return "", eris.Errorf("regions: boundary url %s does not name a zip archive", rawURL)
	}
	zipPath := filepath.Join(dataDir, zipName)

	if info, err := os.Stat(zipPath); err == nil && info.Size() > 0 {
		log.Debug("archive already on disk, skipping download", zap.String("path", zipPath))
	} else {
		log.Info("downloading boundary archive")

		retryCfg := resilience.DefaultRetryConfig()
		retryCfg.OnRetry = resilience.RetryLogger("boundaries", "download")

		err := resilience.Do(ctx, retryCfg, func(ctx context.Context) error {
			if strings.HasPrefix(rawURL, "ftp://") {
				return downloadFTP(ctx, rawURL, zipPath)
			}
			return downloadHTTP(ctx, rawURL, zipPath)
		})
		if err != nil {
			return "", eris.Wrap(err, "regions: download boundary archive")
		}
	}

	extractDir := filepath.Join(dataDir, strings.TrimSuffix(zipName, ".zip"))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrap(err, "regions: create extract dir")
	}
	if err := extractZIP(zipPath, extractDir); err != nil {
		return "", eris.Wrap(err, "regions: extract archive")
	}

	shpPath, err := findFileByExt(extractDir, ".shp")
	if err != nil {
		return "", eris.Wrap(err, "regions: locate shapefile")
	}
	return shpPath, nil
}

func downloadHTTP(ctx context.Context, rawURL, dest string) error {
	client := &http.Client{Timeout: 10 * time.Minute}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return resilience.NewTransientError(err, 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("download returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	return writeFile(dest, resp.Body)
}

func downloadFTP(ctx context.Context, rawURL, dest string) error {
	host, path, err := parseFTPURL(rawURL)
	if err != nil {
		return err
	}

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(30*time.Second), ftp.DialWithContext(ctx))
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "ftp dial"), 0)
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		return eris.Wrap(err, "ftp login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "ftp retrieve"), 0)
	}
	defer resp.Close() //nolint:errcheck

	return writeFile(dest, resp)
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	if u.Path == "" {
		return "", "", eris.New("empty path in ftp url")
	}
	return host, u.Path, nil
}

func writeFile(dest string, r io.Reader) error {
	f, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "create file")
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(f, r); err != nil {
		return eris.Wrap(err, "write file")
	}
	return nil
}

// extractZIP flattens a ZIP archive into destDir. Boundary products nest
// their shapefiles one level deep, so entry paths are reduced to basenames.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(f.Name))

		rc, err := f.Open()
		if err != nil {
			return eris.Wrapf(err, "open zip entry %s", f.Name)
		}

		if err := writeFile(destPath, rc); err != nil {
			_ = rc.Close()
			return eris.Wrapf(err, "extract %s", f.Name)
		}
		_ = rc.Close()
	}
	return nil
}

func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}
