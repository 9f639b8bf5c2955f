package stats

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// LoaderConfig holds the source, cache and column settings of a Loader.
type LoaderConfig struct {
	StatsPath         string
	StatsColumns      TableColumns
	Geometry          GeometrySource
	CachePath         string
	SimplifyTolerance float64
	// Rebuild ignores an existing cache artifact.
	Rebuild bool
}

// Loader produces the merged dataset, from the cache artifact when one
// exists and from the two sources otherwise.
type Loader struct {
	cfg    LoaderConfig
	logger *zap.Logger
}

func NewLoader(cfg LoaderConfig, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{cfg: cfg, logger: logger}
}

func (l *Loader) schema() Schema {
	return Schema{
		NameField:     l.cfg.Geometry.NameField,
		CountColumn:   l.cfg.StatsColumns.Count,
		AverageColumn: l.cfg.StatsColumns.Average,
	}
}

// Load returns the merged dataset with derived columns filled in.
//
// An existing cache is used as is. It is never rebuilt because the
// sources changed; a fingerprint mismatch is only logged.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	if !l.cfg.Rebuild {
		ds, found, err := LoadIfExists(l.cfg.CachePath, l.schema())
		if err != nil {
			return nil, err
		}
		if found {
			l.logger.Info("Loaded merged dataset from cache",
				zap.String("path", l.cfg.CachePath),
				zap.Int("regions", len(ds.Regions)))
			l.checkFingerprint()
			ds.Derive()
			return ds, nil
		}
	}

	ds, err := l.Build(ctx)
	if err != nil {
		return nil, err
	}

	if err := ds.Save(l.cfg.CachePath); err != nil {
		return nil, fmt.Errorf("write cache %s: %w", l.cfg.CachePath, err)
	}
	l.recordFingerprint()
	l.logger.Info("Wrote merged dataset cache", zap.String("path", l.cfg.CachePath))

	ds.Derive()
	return ds, nil
}

// Build reads both sources, simplifies the boundaries and joins them.
// It does not touch the cache.
func (l *Loader) Build(ctx context.Context) (*Dataset, error) {
	l.logger.Info("Processing statistics and geometry sources",
		zap.String("stats", l.cfg.StatsPath),
		zap.String("geometry", l.cfg.Geometry.Path))

	rows, err := ReadStatistics(l.cfg.StatsPath, l.cfg.StatsColumns)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	features, err := ReadGeometry(l.cfg.Geometry)
	if err != nil {
		return nil, err
	}

	for _, f := range features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Geometry, err = Simplify(f.Geometry, l.cfg.SimplifyTolerance); err != nil {
			return nil, fmt.Errorf("simplify %s: %w", f.Name, err)
		}
	}

	regions, report := LeftJoin(features, rows)
	if len(report.UnmatchedStats) > 0 {
		l.logger.Warn("Statistics rows without a matching boundary were dropped",
			zap.Strings("keys", report.UnmatchedStats))
	}
	if len(report.UnmatchedRegions) > 0 {
		l.logger.Warn("Boundaries without statistics",
			zap.Strings("keys", report.UnmatchedRegions))
	}
	if len(report.DuplicateStats) > 0 {
		l.logger.Warn("Duplicate statistics rows ignored",
			zap.Strings("keys", report.DuplicateStats))
	}

	return &Dataset{Schema: l.schema(), Regions: regions}, nil
}

func (l *Loader) recordFingerprint() {
	sum, err := Fingerprint(l.cfg.StatsPath, l.cfg.Geometry.Path)
	if err != nil {
		l.logger.Warn("Could not fingerprint cache sources", zap.Error(err))
		return
	}
	if err := saveFingerprint(l.cfg.CachePath, sum); err != nil {
		l.logger.Warn("Could not write cache fingerprint", zap.Error(err))
	}
}

func (l *Loader) checkFingerprint() {
	want, err := loadFingerprint(l.cfg.CachePath)
	if errors.Is(err, os.ErrNotExist) {
		l.logger.Warn("Cache has no source fingerprint, staleness cannot be checked",
			zap.String("path", l.cfg.CachePath))
		return
	}
	if err != nil {
		l.logger.Warn("Could not read cache fingerprint", zap.Error(err))
		return
	}

	got, err := Fingerprint(l.cfg.StatsPath, l.cfg.Geometry.Path)
	if err != nil {
		// Sources are optional once the cache exists.
		l.logger.Debug("Sources unavailable, skipping staleness check", zap.Error(err))
		return
	}
	if got != want {
		l.logger.Warn("Sources changed since the cache was written; delete it or set REBUILD_CACHE=true to rebuild",
			zap.String("path", l.cfg.CachePath))
	}
}
