package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mokala/veldscan/internal/region"
)

// DirArchive reads scenes from a local directory of scene JSON files, one
// scene per file. Used for offline runs and tests.
type DirArchive struct {
	Dir string
}

// NewDirArchive returns an archive over the given directory.
func NewDirArchive(dir string) *DirArchive {
	return &DirArchive{Dir: dir}
}

// Query loads every *.json scene and filters by the standard predicate.
func (a *DirArchive) Query(ctx context.Context, geom *region.Geometry, start, end time.Time, maxCloudPct float64) ([]Scene, error) {
	entries, err := os.ReadDir(a.Dir)
	if err != nil {
		return nil, fmt.Errorf("read scene dir: %w", err)
	}

	var scenes []Scene
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(a.Dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read scene %s: %w", e.Name(), err)
		}
		var s Scene
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse scene %s: %w", e.Name(), err)
		}
		if Matches(&s, geom, start, end, maxCloudPct) {
			scenes = append(scenes, s)
		}
	}
	return scenes, nil
}
