package pipeline

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-geo/landcover.report/internal/config"
	"github.com/meridian-geo/landcover.report/internal/model"
	"github.com/meridian-geo/landcover.report/internal/raster"
	"github.com/meridian-geo/landcover.report/internal/rasterize"
	"github.com/meridian-geo/landcover.report/internal/report"
	"github.com/meridian-geo/landcover.report/internal/sample"
	"github.com/meridian-geo/landcover.report/internal/store"
	"github.com/meridian-geo/landcover.report/internal/tiling"
	"github.com/meridian-geo/landcover.report/internal/vector"
	"github.com/meridian-geo/landcover.report/internal/writer"
)

// Result summarises a completed run and the paths its artifacts actually
// landed at (escalation may move them away from the requested paths).
type Result struct {
	RunID    string
	Rows     int
	Cols     int
	Bands    int
	Accuracy float64

	LabelPath     string
	GeoRefPath    string
	StatsPath     string
	ConfusionPath string
	PlotPath      string
	ReportPath    string

	SampleCounts map[int]int
	ClassShares  map[int]float64
}

// Pipeline runs classification end to end from a validated RunConfig.
type Pipeline struct {
	cfg   *config.RunConfig
	st    *store.Store
	openR func(path string) (raster.Raster, error)
}

// New returns a Pipeline for the given configuration.
func New(cfg *config.RunConfig) *Pipeline {
	return &Pipeline{
		cfg: cfg,
		openR: func(path string) (raster.Raster, error) {
			return raster.OpenGrid(path)
		},
	}
}

// WithStore attaches a run history store. Without one, step 9 is skipped.
func (p *Pipeline) WithStore(s *store.Store) *Pipeline {
	p.st = s
	return p
}

// WithRasterOpener overrides how the input raster is opened.
func (p *Pipeline) WithRasterOpener(open func(path string) (raster.Raster, error)) *Pipeline {
	p.openR = open
	return p
}

// Run executes the pipeline. Per-class failures are logged and skipped;
// only a mandatory class ending up with zero samples, an empty training
// set, or exhaustion of every artifact write location aborts the run.
func (p *Pipeline) Run() (*Result, error) {
	cfg := p.cfg
	runID := uuid.New().String()
	log.Printf("[Pipeline] run %s: opening raster %s", runID, cfg.RasterPath)

	r, err := p.openR(cfg.RasterPath)
	if err != nil {
		return nil, fmt.Errorf("open raster: %w", err)
	}
	defer r.Close()

	rows, cols, bands := r.Rows(), r.Cols(), r.Bands()
	rng := rand.New(rand.NewSource(cfg.GetSeed()))

	rz := rasterize.New().
		WithChunkSize(cfg.GetChunkRows(), cfg.GetChunkCols()).
		WithMemoryBudget(int(cfg.GetMemoryBudgetBytes()))
	smp := &sample.Sampler{Cap: cfg.GetSampleCap(), BatchSize: cfg.GetSampleBatch()}

	var features [][]float64
	var labels []int
	combined := make([]uint8, rows*cols)
	counts := make(map[int]int, len(cfg.Classes))

	for _, cls := range cfg.Classes {
		f, l, mask, err := p.sampleClass(r, rz, smp, cls, rng)
		if err != nil {
			log.Printf("[Pipeline] class %q contributed nothing: %v", cls.Name, err)
			continue
		}
		features = append(features, f...)
		labels = append(labels, l...)
		counts[cls.Label] += len(f)
		rasterize.Merge(combined, mask)
		log.Printf("[Pipeline] class %q: %d training samples", cls.Name, len(f))
	}

	names := cfg.ClassNames()
	if bg := cfg.GetBackgroundLabel(); bg != 0 {
		coords := sample.MaskCoords(combined, 0, cols)
		f, l, err := smp.SampleCoords(r, coords, bg, rng)
		if err != nil {
			log.Printf("[Pipeline] background class contributed nothing: %v", err)
		} else {
			features = append(features, f...)
			labels = append(labels, l...)
			counts[bg] += len(f)
			names[bg] = cfg.GetBackgroundName()
			log.Printf("[Pipeline] background: %d training samples", len(f))
		}
	}

	for _, cls := range cfg.Classes {
		if cls.Mandatory && counts[cls.Label] == 0 {
			return nil, fmt.Errorf("mandatory class %q has no training samples", cls.Name)
		}
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("no class contributed training samples")
	}

	// Stats come from the raw samples; scaling below mutates the rows.
	stats := report.ComputeClassStats(features, labels, names)

	balF, balL := model.Balance(features, labels, rng)
	holdout := 1 - cfg.GetTrainFraction()
	trainF, trainL, testF, testL := model.Split(balF, balL, holdout, rng)
	if len(trainF) == 0 {
		return nil, fmt.Errorf("training split is empty")
	}

	scaler, err := model.FitScaler(model.DenseFromRows(trainF))
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	if err := scaler.TransformRows(trainF); err != nil {
		return nil, fmt.Errorf("scale training set: %w", err)
	}
	if err := scaler.TransformRows(testF); err != nil {
		return nil, fmt.Errorf("scale hold-out set: %w", err)
	}

	clf, err := model.NewClassifier(cfg.GetClassifier(), cfg.GetNeighbors())
	if err != nil {
		return nil, err
	}
	if err := clf.Fit(trainF, trainL); err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}
	log.Printf("[Pipeline] fitted %s on %d samples (%d held out)", cfg.GetClassifier(), len(trainF), len(testF))

	progress := func(stage string, done, total int) {
		if done == total {
			log.Printf("[Pipeline] %s pass complete (%d tiles)", stage, total)
		}
	}
	tf := tiling.NewTransformer()
	tf.TileRows, tf.TileCols, tf.Progress = cfg.GetTileRows(), cfg.GetTileCols(), progress
	volume, err := tf.Run(r, scaler)
	if err != nil {
		return nil, fmt.Errorf("transform pass: %w", err)
	}

	tc := tiling.NewClassifier()
	tc.TileRows, tc.TileCols, tc.Progress = cfg.GetTileRows(), cfg.GetTileCols(), progress
	grid, err := tc.Run(volume, rows, cols, clf)
	if err != nil {
		return nil, fmt.Errorf("classification pass: %w", err)
	}

	var conf *report.Confusion
	accuracy := 0.0
	if len(testF) > 0 {
		pred, err := clf.Predict(testF)
		if err != nil {
			return nil, fmt.Errorf("hold-out prediction: %w", err)
		}
		conf, err = report.NewConfusion(testL, pred)
		if err != nil {
			return nil, err
		}
		accuracy = conf.Accuracy()
	}

	res := &Result{
		RunID:        runID,
		Rows:         rows,
		Cols:         cols,
		Bands:        bands,
		Accuracy:     accuracy,
		SampleCounts: counts,
		ClassShares:  classShares(grid),
	}
	if err := p.writeArtifacts(res, r, grid, stats, conf, names); err != nil {
		return nil, err
	}

	if p.st != nil {
		params, _ := json.Marshal(struct {
			Config       *config.RunConfig `json:"config"`
			SampleCounts map[int]int       `json:"sample_counts"`
		}{cfg, counts})
		rec := &store.Run{
			RunID:      runID,
			RasterPath: cfg.RasterPath,
			Rows:       rows,
			Cols:       cols,
			Bands:      bands,
			Classifier: cfg.GetClassifier(),
			Accuracy:   accuracy,
			LabelPath:  res.LabelPath,
			ReportPath: res.ReportPath,
			ParamsJSON: params,
		}
		if err := p.st.Insert(rec); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
	}

	log.Printf("[Pipeline] run %s complete, accuracy %.3f", runID, accuracy)
	return res, nil
}

// sampleClass loads, rasterizes and samples one class. Any failure is
// reported to the caller, which treats it as a zero contribution.
func (p *Pipeline) sampleClass(r raster.Raster, rz *rasterize.Rasterizer, smp *sample.Sampler, cls config.ClassConfig, rng *rand.Rand) ([][]float64, []int, []uint8, error) {
	regions, skipped, err := vector.LoadRegions(cls.GeoJSON, uint8(cls.Label))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load regions: %w", err)
	}
	if skipped > 0 {
		log.Printf("[Pipeline] class %q: skipped %d unsupported geometries", cls.Name, skipped)
	}

	mask, err := rz.Rasterize(regions, uint8(cls.Label), r.Rows(), r.Cols(), r.Transform())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("rasterize: %w", err)
	}

	f, l, err := smp.SampleMask(r, mask, uint8(cls.Label), rng)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sample: %w", err)
	}
	return f, l, mask, nil
}

func (p *Pipeline) writeArtifacts(res *Result, r raster.Raster, grid []uint8, stats []report.ClassStats, conf *report.Confusion, names map[int]string) error {
	cfg := p.cfg
	outDir := cfg.GetOutputDir()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Printf("[Pipeline] cannot create %s: %v", outDir, err)
	}

	rw := writer.New().WithRetryPolicy(cfg.GetWriteAttempts(), cfg.GetRetryDelay())
	fsys := writer.OSFileSystem{}
	colors := classColors(cfg, names)

	var err error
	res.LabelPath, err = rw.Write(filepath.Join(outDir, "labels.png"), func(path string) error {
		return raster.WriteLabelPNG(path, grid, res.Rows, res.Cols, colors)
	})
	if err != nil {
		return fmt.Errorf("write label raster: %w", err)
	}

	ref := raster.GeoRef{
		Transform: r.Transform(),
		CRS:       r.CRS(),
		Rows:      res.Rows,
		Cols:      res.Cols,
		Classes:   colors,
	}
	res.GeoRefPath, err = rw.Write(filepath.Join(outDir, "labels.georef.json"), func(path string) error {
		return raster.WriteGeoRef(path, ref)
	})
	if err != nil {
		return fmt.Errorf("write georeference sidecar: %w", err)
	}

	statsCSV, err := report.RenderStatsCSV(stats)
	if err != nil {
		return fmt.Errorf("render stats: %w", err)
	}
	res.StatsPath, err = rw.Write(filepath.Join(outDir, "class_stats.csv"), writer.BytesOp(fsys, statsCSV))
	if err != nil {
		return fmt.Errorf("write stats: %w", err)
	}

	if conf != nil {
		confCSV, err := conf.RenderCSV(names)
		if err != nil {
			return fmt.Errorf("render confusion matrix: %w", err)
		}
		res.ConfusionPath, err = rw.Write(filepath.Join(outDir, "confusion.csv"), writer.BytesOp(fsys, confCSV))
		if err != nil {
			return fmt.Errorf("write confusion matrix: %w", err)
		}
	}

	res.PlotPath, err = rw.Write(filepath.Join(outDir, "signatures.png"), func(path string) error {
		return report.SaveSignaturePlot(path, stats)
	})
	if err != nil {
		return fmt.Errorf("write signature plot: %w", err)
	}

	html, err := report.RenderHTML(report.RunSummary{
		RunID:       res.RunID,
		RasterPath:  cfg.RasterPath,
		Rows:        res.Rows,
		Cols:        res.Cols,
		Bands:       res.Bands,
		Accuracy:    res.Accuracy,
		ClassShares: res.ClassShares,
	}, conf, names)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	res.ReportPath, err = rw.Write(filepath.Join(outDir, "report.html"), writer.BytesOp(fsys, html))
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// classShares returns each nonzero label's fraction of classified pixels.
func classShares(grid []uint8) map[int]float64 {
	total := 0
	byLabel := make(map[int]int)
	for _, l := range grid {
		if l == 0 {
			continue
		}
		byLabel[int(l)]++
		total++
	}
	shares := make(map[int]float64, len(byLabel))
	for l, n := range byLabel {
		shares[l] = float64(n) / float64(total)
	}
	return shares
}

// classColors builds the label palette from configured colors, falling
// back to a fixed cycle for classes without one.
func classColors(cfg *config.RunConfig, names map[int]string) []raster.ClassColor {
	fallback := [][3]uint8{
		{31, 119, 180}, {255, 127, 14}, {44, 160, 44}, {214, 39, 40},
		{148, 103, 189}, {140, 86, 75}, {227, 119, 194}, {127, 127, 127},
	}

	var colors []raster.ClassColor
	for i, cls := range cfg.Classes {
		r, g, b, ok := parseHexColor(cls.Color)
		if !ok {
			c := fallback[i%len(fallback)]
			r, g, b = c[0], c[1], c[2]
		}
		colors = append(colors, raster.ClassColor{
			Label: uint8(cls.Label), Name: cls.Name, R: r, G: g, B: b, A: 255,
		})
	}
	if bg := cfg.GetBackgroundLabel(); bg != 0 {
		c := fallback[len(cfg.Classes)%len(fallback)]
		colors = append(colors, raster.ClassColor{
			Label: uint8(bg), Name: names[bg], R: c[0], G: c[1], B: c[2], A: 255,
		})
	}
	return colors
}

func parseHexColor(s string) (r, g, b uint8, ok bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	var v [3]uint8
	for i := 0; i < 3; i++ {
		var n int
		if _, err := fmt.Sscanf(s[i*2:i*2+2], "%02x", &n); err != nil {
			return 0, 0, 0, false
		}
		v[i] = uint8(n)
	}
	return v[0], v[1], v[2], true
}
