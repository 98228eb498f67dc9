package ingest

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/mokala/veldscan/internal/models"
)

// FTPSource pulls survey CSV drops from the field-server mirror where survey
// teams upload their readings.
type FTPSource struct {
	Host string // host:port
	Dir  string
}

// NewFTPSource returns a source over the given mirror directory.
func NewFTPSource(host, dir string) *FTPSource {
	return &FTPSource{Host: host, Dir: dir}
}

// Fetch retrieves and parses every *.csv drop in the mirror directory.
func (s *FTPSource) Fetch() ([]models.FieldObservation, error) {
	conn, err := ftp.Dial(s.Host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	entries, err := conn.List(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("ftp list %s: %w", s.Dir, err)
	}

	var all []models.FieldObservation
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile || !strings.HasSuffix(e.Name, ".csv") {
			continue
		}
		resp, err := conn.Retr(path.Join(s.Dir, e.Name))
		if err != nil {
			return nil, fmt.Errorf("ftp retr %s: %w", e.Name, err)
		}
		body, err := io.ReadAll(resp)
		resp.Close()
		if err != nil {
			return nil, fmt.Errorf("read drop %s: %w", e.Name, err)
		}
		obs, err := ParseSurvey(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parse drop %s: %w", e.Name, err)
		}
		all = append(all, obs...)
	}
	return all, nil
}
