package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/mokala/veldscan/internal/archive"
	"github.com/mokala/veldscan/internal/composite"
	"github.com/mokala/veldscan/internal/config"
	"github.com/mokala/veldscan/internal/export"
	"github.com/mokala/veldscan/internal/ingest"
	"github.com/mokala/veldscan/internal/models"
	"github.com/mokala/veldscan/internal/region"
	"github.com/mokala/veldscan/internal/report"
	"github.com/mokala/veldscan/internal/runner"
	"github.com/mokala/veldscan/internal/store"
)

type globals struct {
	Config      string `help:"Path to run configuration YAML." default:"config/veldscan.yaml"`
	DB          string `help:"Path to sqlite database." default:"data/veldscan.db" env:"VELDSCAN_DB"`
	RegionFile  string `help:"Path to region catalog GeoJSON." default:"config/regions.geojson" env:"VELDSCAN_REGIONS"`
	SceneDir    string `help:"Local scene directory; used instead of the archive service when set." env:"VELDSCAN_SCENE_DIR"`
	ArchiveURL  string `help:"Scene archive service base URL." env:"VELDSCAN_ARCHIVE_URL"`
	ArchiveKey  string `help:"Scene archive API key." env:"VELDSCAN_ARCHIVE_KEY"`
	ArchiveFTP  string `help:"Scene mirror FTP host:port; used when no archive URL is set." env:"VELDSCAN_ARCHIVE_FTP"`
	ArchiveDir  string `help:"Scene directory on the FTP mirror." default:"/scenes"`
	OutDir      string `help:"Directory for exported rasters and tables." default:"out"`
	MetricsAddr string `help:"Serve Prometheus metrics on this address for the run's duration."`
}

type cli struct {
	globals

	Run     runCmd     `cmd:"" help:"Calibrate, validate, map, and project the biomass time series."`
	Series  seriesCmd  `cmd:"" help:"Recalibrate and emit only the yearly time series."`
	Ingest  ingestCmd  `cmd:"" help:"Load survey CSV drops into the database."`
	Regions regionsCmd `cmd:"" help:"List the region catalog."`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var c cli
	ktx := kong.Parse(&c,
		kong.Name("veldscan"),
		kong.Description("Rangeland biomass mapping from satellite reflectance and disc-pasture surveys."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Bind(&c.globals),
	)

	if c.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Printf("metrics listening on %s", c.MetricsAddr)
			if err := http.ListenAndServe(c.MetricsAddr, mux); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	if err := ktx.Run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func openStore(g *globals) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(g.DB), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", g.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

func newArchive(g *globals) (archive.Archive, error) {
	if g.SceneDir != "" {
		return archive.NewDirArchive(g.SceneDir), nil
	}
	if g.ArchiveURL != "" {
		return archive.NewHTTPArchive(g.ArchiveURL, g.ArchiveKey), nil
	}
	if g.ArchiveFTP != "" {
		return archive.NewFTPArchive(g.ArchiveFTP, g.ArchiveDir), nil
	}
	return nil, fmt.Errorf("no scene source: set --scene-dir, --archive-url, or --archive-ftp")
}

func newRunner(g *globals, cfg config.Config, withExports bool) (*runner.Runner, *store.Store, error) {
	regions, err := region.Load(g.RegionFile)
	if err != nil {
		return nil, nil, err
	}
	arch, err := newArchive(g)
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(g)
	if err != nil {
		return nil, nil, err
	}

	r := &runner.Runner{
		Regions:  regions,
		Builder:  composite.New(arch, cfg.CloudCeilingPct),
		Store:    st,
		Reporter: report.LogReporter{},
		Cfg:      cfg,
	}
	if withExports {
		r.Exports = export.NewFileSink(g.OutDir)
	}
	return r, st, nil
}

func loadObservations(st *store.Store, dbPath, surveyPath string) ([]models.FieldObservation, error) {
	if surveyPath != "" {
		f, err := os.Open(surveyPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ingest.ParseSurvey(f)
	}
	obs, err := st.GetObservations()
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("no observations in %s; run 'veldscan ingest' first or pass --survey", dbPath)
	}
	return obs, nil
}

type runCmd struct {
	Survey    string `help:"Survey CSV to use instead of stored observations."`
	Narrative bool   `help:"Generate a prose summary of the series (needs OPENAI_API_KEY)."`
}

func (c *runCmd) Run(ctx context.Context, g *globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	r, st, err := newRunner(g, cfg, true)
	if err != nil {
		return err
	}
	observations, err := loadObservations(st, g.DB, c.Survey)
	if err != nil {
		return err
	}

	summary, err := r.Run(ctx, observations)
	if err != nil {
		return err
	}
	printSummary(summary)

	if c.Narrative {
		narrate(ctx, summary)
	}
	return nil
}

type seriesCmd struct {
	Survey string `help:"Survey CSV to use instead of stored observations."`
}

func (c *seriesCmd) Run(ctx context.Context, g *globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	r, st, err := newRunner(g, cfg, false)
	if err != nil {
		return err
	}
	observations, err := loadObservations(st, g.DB, c.Survey)
	if err != nil {
		return err
	}

	summary, err := r.Run(ctx, observations)
	if err != nil {
		return err
	}
	printSummary(summary)
	return nil
}

type ingestCmd struct {
	Survey  string `arg:"" optional:"" help:"Survey CSV file to load."`
	FTPHost string `help:"Field-server FTP host:port to pull drops from."`
	FTPDir  string `help:"FTP directory holding survey CSV drops." default:"/surveys"`
}

func (c *ingestCmd) Run(g *globals) error {
	var observations []models.FieldObservation
	switch {
	case c.Survey != "":
		f, err := os.Open(c.Survey)
		if err != nil {
			return err
		}
		defer f.Close()
		observations, err = ingest.ParseSurvey(f)
		if err != nil {
			return err
		}
	case c.FTPHost != "":
		var err error
		observations, err = ingest.NewFTPSource(c.FTPHost, c.FTPDir).Fetch()
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("pass a survey CSV path or --ftp-host")
	}

	st, err := openStore(g)
	if err != nil {
		return err
	}
	for _, obs := range observations {
		if err := st.UpsertObservation(obs); err != nil {
			return fmt.Errorf("store %s: %w", obs.ID, err)
		}
	}
	log.Printf("ingest: stored %d observations", len(observations))
	return nil
}

type regionsCmd struct{}

func (c *regionsCmd) Run(g *globals) error {
	src, err := region.Load(g.RegionFile)
	if err != nil {
		return err
	}
	for _, name := range src.Names() {
		fmt.Println(name)
	}
	return nil
}

func printSummary(s *models.RunSummary) {
	fmt.Printf("run %s: %s %d\n", s.RunID, s.Region, s.BaselineYear)
	fmt.Printf("  samples %d (dropped %d)\n", s.Samples, s.Dropped)
	fmt.Printf("  RMSE %.2f  MAE %.2f  R2 %.3f\n", s.Metrics.RMSE, s.Metrics.MAE, s.Metrics.R2)
	for _, yr := range s.Years {
		switch {
		case yr.MeanBiomass != nil:
			fmt.Printf("  %d  %.1f kg/ha (%d scenes)\n", yr.Year, *yr.MeanBiomass, yr.Scenes)
		default:
			fmt.Printf("  %d  %s %s\n", yr.Year, yr.Status, yr.Err)
		}
	}
}

func narrate(ctx context.Context, s *models.RunSummary) {
	n, err := report.NewNarrator()
	if err != nil {
		log.Printf("narrative disabled: %v", err)
		return
	}
	text, err := n.Summarize(ctx, s.Region, s.Metrics, s.Years)
	if err != nil {
		log.Printf("narrative: %v", err)
		return
	}
	fmt.Println()
	fmt.Println(text)
}
