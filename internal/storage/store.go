package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/episim/internal/epidemic"
	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/reshape"
	"github.com/san-kum/episim/internal/scenario"
)

// Store persists batch runs under a base directory: one directory per run
// with metadata.json, a wide CSV per scenario, and a combined long-format
// CSV for plotting collaborators.
type Store struct {
	baseDir string
	log     *zap.Logger
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, log: zap.NewNop()}
}

// WithLogger routes storage diagnostics to log.
func (s *Store) WithLogger(log *zap.Logger) *Store {
	s.log = log
	return s
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type ScenarioMeta struct {
	Name    string          `json:"name"`
	Params  epidemic.Params `json:"params"`
	Init    []float64       `json:"init"`
	Horizon float64         `json:"horizon"`
	Points  int             `json:"points"`
	Drift   float64         `json:"drift"`
	Error   string          `json:"error,omitempty"`
}

type RunMetadata struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	AbsTol    float64        `json:"abs_tol"`
	RelTol    float64        `json:"rel_tol"`
	Scenarios []ScenarioMeta `json:"scenarios"`
}

// Save writes one batch run and returns its run id. Failed scenarios are
// recorded in the metadata with no trajectory files.
func (s *Store) Save(opts integrators.Options, batch *scenario.Batch) (string, error) {
	runID := fmt.Sprintf("batch_%d", time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Timestamp: time.Now(),
		AbsTol:    opts.AbsTol,
		RelTol:    opts.RelTol,
		Scenarios: make([]ScenarioMeta, 0, len(batch.Outcomes)),
	}

	for _, out := range batch.Outcomes {
		sm := ScenarioMeta{
			Name:    out.Scenario.Name,
			Params:  out.Scenario.Params,
			Init:    out.Scenario.Init,
			Horizon: out.Scenario.Horizon(),
			Points:  len(out.Scenario.Times),
			Drift:   out.Drift,
		}
		if out.Err != nil {
			sm.Error = out.Err.Error()
		}
		meta.Scenarios = append(meta.Scenarios, sm)
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	for _, out := range batch.Outcomes {
		if out.Err != nil {
			continue
		}
		if err := s.writeWide(runDir, out); err != nil {
			return "", err
		}
	}

	if err := s.writeLong(runDir, batch); err != nil {
		return "", err
	}

	return runID, nil
}

func (s *Store) writeWide(runDir string, out scenario.Outcome) error {
	f, err := os.Create(filepath.Join(runDir, out.Scenario.Name+".csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := append([]string{"time"}, epidemic.Compartments[:]...)
	if err := w.Write(header); err != nil {
		return err
	}

	for i, t := range out.Trajectory.Times {
		row := []string{strconv.FormatFloat(t, 'f', 6, 64)}
		for _, v := range out.Trajectory.States[i] {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

// writeLong emits the combined long-format table: scenario, time, variable,
// value.
func (s *Store) writeLong(runDir string, batch *scenario.Batch) error {
	f, err := os.Create(filepath.Join(runDir, "long.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"scenario", "time", "variable", "value"}); err != nil {
		return err
	}

	for _, out := range batch.Outcomes {
		if out.Err != nil {
			continue
		}
		for _, rec := range reshape.Melt(out.Trajectory) {
			row := []string{
				out.Scenario.Name,
				strconv.FormatFloat(rec.Time, 'f', 6, 64),
				rec.Variable,
				strconv.FormatFloat(rec.Value, 'g', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	return w.Error()
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			// Stray directories without metadata are not runs; anything
			// else is a damaged run worth surfacing.
			if !os.IsNotExist(err) {
				s.log.Warn("skipping unreadable run",
					zap.String("run", entry.Name()),
					zap.Error(err))
			}
			continue
		}
		runs = append(runs, *meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadStates reads one scenario's wide CSV back as times and state rows.
func (s *Store) LoadStates(runID, scenarioName string) ([]float64, [][]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, scenarioName+".csv"))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return []float64{}, [][]float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([][]float64, 0, len(records)-1)

	for _, record := range records[1:] {
		if len(record) < 2 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}

		state := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("run %s scenario %s: bad value %q", runID, scenarioName, field)
			}
			state = append(state, v)
		}

		times = append(times, t)
		states = append(states, state)
	}

	return times, states, nil
}

// LongRecord is one scenario-tagged row of the combined long-format table.
type LongRecord struct {
	Scenario string
	reshape.Record
}

// LoadLong reads a run's long.csv back as scenario-tagged records, in file
// order.
func (s *Store) LoadLong(runID string) ([]LongRecord, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "long.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return []LongRecord{}, nil
	}

	out := make([]LongRecord, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != 4 {
			continue
		}

		t, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad time %q in long.csv", runID, record[1])
		}
		v, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad value %q in long.csv", runID, record[3])
		}

		out = append(out, LongRecord{
			Scenario: record[0],
			Record:   reshape.Record{Time: t, Variable: record[2], Value: v},
		})
	}

	return out, nil
}

type TrajectoryData struct {
	Times  []float64   `json:"times"`
	States [][]float64 `json:"states"`
}

type ExportData struct {
	RunMetadata
	Trajectories map[string]TrajectoryData `json:"trajectories"`
}

// ExportJSON writes the whole stored run, metadata plus trajectories, as
// indented JSON.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		RunMetadata:  *meta,
		Trajectories: make(map[string]TrajectoryData),
	}

	for _, sm := range meta.Scenarios {
		if sm.Error != "" {
			continue
		}
		times, states, err := s.LoadStates(runID, sm.Name)
		if err != nil {
			return err
		}
		data.Trajectories[sm.Name] = TrajectoryData{Times: times, States: states}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
