package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/mokala/veldscan/internal/region"
)

// FTPArchive reads scenes from an anonymous FTP mirror carrying one JSON file
// per scene under a fixed directory.
type FTPArchive struct {
	Host string // host:port
	Dir  string
}

// NewFTPArchive returns an archive over the given mirror directory.
func NewFTPArchive(host, dir string) *FTPArchive {
	return &FTPArchive{Host: host, Dir: dir}
}

// Query lists the mirror directory and retrieves matching scenes.
func (a *FTPArchive) Query(ctx context.Context, geom *region.Geometry, start, end time.Time, maxCloudPct float64) ([]Scene, error) {
	conn, err := ftp.Dial(a.Host, ftp.DialWithTimeout(30*time.Second), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	entries, err := conn.List(a.Dir)
	if err != nil {
		return nil, fmt.Errorf("ftp list %s: %w", a.Dir, err)
	}

	var scenes []Scene
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile || !strings.HasSuffix(e.Name, ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := conn.Retr(path.Join(a.Dir, e.Name))
		if err != nil {
			return nil, fmt.Errorf("ftp retr %s: %w", e.Name, err)
		}
		body, err := io.ReadAll(resp)
		resp.Close()
		if err != nil {
			return nil, fmt.Errorf("read scene %s: %w", e.Name, err)
		}
		var s Scene
		if err := json.Unmarshal(body, &s); err != nil {
			return nil, fmt.Errorf("parse scene %s: %w", e.Name, err)
		}
		if Matches(&s, geom, start, end, maxCloudPct) {
			scenes = append(scenes, s)
		}
	}
	return scenes, nil
}
