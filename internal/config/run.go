package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ClassConfig declares one land cover class: its display name, the
// label burned into the classification output, and the GeoJSON file
// holding its training regions. Mandatory classes must yield at least
// one training sample or the run fails.
type ClassConfig struct {
	Name      string `json:"name"`
	Label     int    `json:"label"`
	GeoJSON   string `json:"geojson"`
	Color     string `json:"color,omitempty"` // hex like "#1f77b4"
	Mandatory bool   `json:"mandatory,omitempty"`
}

// RunConfig is the root configuration for a classification run. All
// tunable fields are pointers so a partial JSON file only overrides
// what it mentions; the Get* accessors supply defaults for the rest.
type RunConfig struct {
	// Inputs
	RasterPath string        `json:"raster_path"`
	Classes    []ClassConfig `json:"classes"`

	// Sampling params
	SampleCap     *int     `json:"sample_cap,omitempty"`
	SampleBatch   *int     `json:"sample_batch,omitempty"`
	Seed          *int64   `json:"seed,omitempty"`
	TrainFraction *float64 `json:"train_fraction,omitempty"`

	// Optional background class, sampled from pixels no declared class
	// covers. Label 0 (or omission) disables it.
	BackgroundLabel *int    `json:"background_label,omitempty"`
	BackgroundName  *string `json:"background_name,omitempty"`

	// Classifier params
	Classifier *string `json:"classifier,omitempty"` // "knn" or "centroid"
	Neighbors  *int    `json:"neighbors,omitempty"`

	// Tiling params
	TileRows *int `json:"tile_rows,omitempty"`
	TileCols *int `json:"tile_cols,omitempty"`

	// Rasterization params
	ChunkRows         *int   `json:"chunk_rows,omitempty"`
	ChunkCols         *int   `json:"chunk_cols,omitempty"`
	MemoryBudgetBytes *int64 `json:"memory_budget_bytes,omitempty"`

	// Output params
	OutputDir     *string `json:"output_dir,omitempty"`
	HistoryDB     *string `json:"history_db,omitempty"`
	WriteAttempts *int    `json:"write_attempts,omitempty"`
	RetryDelay    *string `json:"retry_delay,omitempty"` // duration string like "1s"
}

// Load reads a RunConfig from a JSON file. Fields omitted from the
// file keep their defaults, so partial configs are safe.
func Load(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *RunConfig) Validate() error {
	if c.RasterPath == "" {
		return fmt.Errorf("raster_path is required")
	}
	if len(c.Classes) == 0 {
		return fmt.Errorf("at least one class is required")
	}

	seen := make(map[int]string, len(c.Classes))
	for i, cls := range c.Classes {
		if cls.Name == "" {
			return fmt.Errorf("class %d: name is required", i)
		}
		if cls.Label < 1 || cls.Label > 255 {
			return fmt.Errorf("class %q: label must be in 1..255, got %d", cls.Name, cls.Label)
		}
		if cls.GeoJSON == "" {
			return fmt.Errorf("class %q: geojson path is required", cls.Name)
		}
		if prev, dup := seen[cls.Label]; dup {
			return fmt.Errorf("classes %q and %q share label %d", prev, cls.Name, cls.Label)
		}
		seen[cls.Label] = cls.Name
	}

	if c.BackgroundLabel != nil && *c.BackgroundLabel != 0 {
		if *c.BackgroundLabel < 1 || *c.BackgroundLabel > 255 {
			return fmt.Errorf("background_label must be in 1..255, got %d", *c.BackgroundLabel)
		}
		if prev, dup := seen[*c.BackgroundLabel]; dup {
			return fmt.Errorf("background_label %d collides with class %q", *c.BackgroundLabel, prev)
		}
	}

	if c.Classifier != nil {
		switch *c.Classifier {
		case "knn", "centroid":
		default:
			return fmt.Errorf("unknown classifier %q", *c.Classifier)
		}
	}
	if c.Neighbors != nil && *c.Neighbors < 1 {
		return fmt.Errorf("neighbors must be positive, got %d", *c.Neighbors)
	}
	if c.SampleCap != nil && *c.SampleCap < 1 {
		return fmt.Errorf("sample_cap must be positive, got %d", *c.SampleCap)
	}
	if c.TrainFraction != nil {
		if *c.TrainFraction <= 0 || *c.TrainFraction >= 1 {
			return fmt.Errorf("train_fraction must be in (0, 1), got %f", *c.TrainFraction)
		}
	}
	if c.TileRows != nil && *c.TileRows < 1 {
		return fmt.Errorf("tile_rows must be positive, got %d", *c.TileRows)
	}
	if c.TileCols != nil && *c.TileCols < 1 {
		return fmt.Errorf("tile_cols must be positive, got %d", *c.TileCols)
	}
	if c.WriteAttempts != nil && *c.WriteAttempts < 1 {
		return fmt.Errorf("write_attempts must be positive, got %d", *c.WriteAttempts)
	}
	if c.RetryDelay != nil && *c.RetryDelay != "" {
		if _, err := time.ParseDuration(*c.RetryDelay); err != nil {
			return fmt.Errorf("invalid retry_delay '%s': %w", *c.RetryDelay, err)
		}
	}
	return nil
}

// GetBackgroundLabel returns the background class label, or 0 when no
// background class is configured.
func (c *RunConfig) GetBackgroundLabel() int {
	if c.BackgroundLabel == nil {
		return 0
	}
	return *c.BackgroundLabel
}

// GetBackgroundName returns the background class display name.
func (c *RunConfig) GetBackgroundName() string {
	if c.BackgroundName == nil || *c.BackgroundName == "" {
		return "background"
	}
	return *c.BackgroundName
}

// GetClassifier returns the classifier name or the default.
func (c *RunConfig) GetClassifier() string {
	if c.Classifier == nil || *c.Classifier == "" {
		return "knn"
	}
	return *c.Classifier
}

// GetNeighbors returns the kNN neighbor count or the default.
func (c *RunConfig) GetNeighbors() int {
	if c.Neighbors == nil {
		return 5
	}
	return *c.Neighbors
}

// GetSampleCap returns the per-class sample cap or the default.
func (c *RunConfig) GetSampleCap() int {
	if c.SampleCap == nil {
		return 50000
	}
	return *c.SampleCap
}

// GetSampleBatch returns the sampling read batch size or the default.
func (c *RunConfig) GetSampleBatch() int {
	if c.SampleBatch == nil || *c.SampleBatch < 1 {
		return 1000
	}
	return *c.SampleBatch
}

// GetSeed returns the RNG seed or the default.
func (c *RunConfig) GetSeed() int64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetTrainFraction returns the training split fraction or the default.
func (c *RunConfig) GetTrainFraction() float64 {
	if c.TrainFraction == nil {
		return 0.8
	}
	return *c.TrainFraction
}

// GetTileRows returns the processing tile height or the default.
func (c *RunConfig) GetTileRows() int {
	if c.TileRows == nil {
		return 200
	}
	return *c.TileRows
}

// GetTileCols returns the processing tile width or the default.
func (c *RunConfig) GetTileCols() int {
	if c.TileCols == nil {
		return 200
	}
	return *c.TileCols
}

// GetChunkRows returns the rasterization chunk height or the default.
func (c *RunConfig) GetChunkRows() int {
	if c.ChunkRows == nil || *c.ChunkRows < 1 {
		return 1000
	}
	return *c.ChunkRows
}

// GetChunkCols returns the rasterization chunk width or the default.
func (c *RunConfig) GetChunkCols() int {
	if c.ChunkCols == nil || *c.ChunkCols < 1 {
		return 1000
	}
	return *c.ChunkCols
}

// GetMemoryBudgetBytes returns the direct-rasterization memory budget
// or the default.
func (c *RunConfig) GetMemoryBudgetBytes() int64 {
	if c.MemoryBudgetBytes == nil {
		return 256 << 20
	}
	return *c.MemoryBudgetBytes
}

// GetOutputDir returns the artifact output directory or the default.
func (c *RunConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "out"
	}
	return *c.OutputDir
}

// GetHistoryDB returns the run history database path or the default.
func (c *RunConfig) GetHistoryDB() string {
	if c.HistoryDB == nil || *c.HistoryDB == "" {
		return "runs.db"
	}
	return *c.HistoryDB
}

// GetWriteAttempts returns the artifact write attempt count or the default.
func (c *RunConfig) GetWriteAttempts() int {
	if c.WriteAttempts == nil {
		return 3
	}
	return *c.WriteAttempts
}

// GetRetryDelay parses and returns the RetryDelay as a time.Duration.
func (c *RunConfig) GetRetryDelay() time.Duration {
	if c.RetryDelay == nil || *c.RetryDelay == "" {
		return time.Second
	}
	d, err := time.ParseDuration(*c.RetryDelay)
	if err != nil {
		return time.Second
	}
	return d
}

// ClassNames returns a label-to-name map for the declared classes.
func (c *RunConfig) ClassNames() map[int]string {
	names := make(map[int]string, len(c.Classes))
	for _, cls := range c.Classes {
		names[cls.Label] = cls.Name
	}
	return names
}
