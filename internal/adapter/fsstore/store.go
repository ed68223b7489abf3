package fsstore

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/glof-hydrograph/internal/domain"
)

// PlotOptions controls hydrograph image rendering.
type PlotOptions struct {
	Enabled bool
	Width   float64 // inches
	Height  float64 // inches
}

// Store writes one directory per lake holding the hydrograph table and plot.
// It implements pipeline.Loader.
type Store struct {
	root   string
	plot   PlotOptions
	logger *slog.Logger
}

// NewStore creates a Store rooted at dir. The directory is created on first use.
func NewStore(dir string, plot PlotOptions, logger *slog.Logger) *Store {
	return &Store{root: dir, plot: plot, logger: logger}
}

// LakeDir returns the directory that receives a lake's artifacts.
func (s *Store) LakeDir(name string) string {
	return filepath.Join(s.root, safeName(name))
}

// TablePath returns the path of a lake's tab-delimited series.
func (s *Store) TablePath(name string) string {
	return filepath.Join(s.LakeDir(name), safeName(name)+"_hydro.txt")
}

// PlotPath returns the path of a lake's hydrograph image.
func (s *Store) PlotPath(name string) string {
	return filepath.Join(s.LakeDir(name), safeName(name)+"_hydrograph.png")
}

// Load writes the table and, when enabled, the plot for h.
func (s *Store) Load(_ context.Context, h domain.Hydrograph) error {
	dir := s.LakeDir(h.Lake.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create lake directory: %w", err)
	}

	if s.plot.Enabled {
		path := s.PlotPath(h.Lake.Name)
		if err := renderPlot(h, s.plot, path); err != nil {
			return err
		}
		s.logger.Debug("hydrograph plot saved", "lake", h.Lake.Name, "path", path)
	}

	path := s.TablePath(h.Lake.Name)
	if err := writeTable(path, h.RetainedSamples()); err != nil {
		return err
	}
	s.logger.Debug("hydrograph data saved", "lake", h.Lake.Name, "path", path)
	return nil
}

// writeTable writes the T, Q, V columns tab-delimited with a header row.
func writeTable(path string, samples []domain.Sample) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create hydrograph table: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close hydrograph table: %w", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("T\tQ\tV\n"); err != nil {
		return fmt.Errorf("write hydrograph table: %w", err)
	}
	buf := make([]byte, 0, 96)
	for _, s := range samples {
		buf = buf[:0]
		buf = strconv.AppendFloat(buf, s.T, 'g', -1, 64)
		buf = append(buf, '\t')
		buf = strconv.AppendFloat(buf, s.Q, 'g', -1, 64)
		buf = append(buf, '\t')
		buf = strconv.AppendFloat(buf, s.V, 'g', -1, 64)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write hydrograph table: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write hydrograph table: %w", err)
	}
	return nil
}

// safeName keeps lake names from escaping the output directory.
func safeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}
