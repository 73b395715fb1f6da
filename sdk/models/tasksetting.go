package models

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Analyzer is the base-pair annotation tool the service runs on every model
type Analyzer string

// Defines the analyzers known to the service
const (
	AnalyzerBarnaba    Analyzer = "BARNABA"
	AnalyzerBPNet      Analyzer = "BPNET"
	AnalyzerFR3D       Analyzer = "FR3D"
	AnalyzerMCAnnotate Analyzer = "MCANNOTATE"
	AnalyzerRNApolis   Analyzer = "RNAPOLIS"
	AnalyzerRNAView    Analyzer = "RNAVIEW"
)

// Analyzers lists every analyzer in the order the service declares them.
var Analyzers = []Analyzer{
	AnalyzerBarnaba, AnalyzerBPNet, AnalyzerFR3D, AnalyzerMCAnnotate, AnalyzerRNApolis, AnalyzerRNAView,
}

// VisualizationTool is the secondary-structure drawer used for the SVG artifact
type VisualizationTool string

// Defines the visualization tools known to the service
const (
	VisualizationPseudoViewer VisualizationTool = "PSEUDOVIEWER"
	VisualizationVARNA        VisualizationTool = "VARNA"
	VisualizationRChie        VisualizationTool = "RCHIE"
	VisualizationRNApuzzler   VisualizationTool = "RNAPUZZLER"
)

// VisualizationTools lists every visualization tool.
var VisualizationTools = []VisualizationTool{
	VisualizationPseudoViewer, VisualizationVARNA, VisualizationRChie, VisualizationRNApuzzler,
}

// ConsensusMode governs which interactions take part in the consensus vote
type ConsensusMode string

// Defines the consensus modes
const (
	ConsensusAll          ConsensusMode = "ALL"
	ConsensusCanonical    ConsensusMode = "CANONICAL"
	ConsensusNonCanonical ConsensusMode = "NON_CANONICAL"
	ConsensusStacking     ConsensusMode = "STACKING"
)

// ConsensusModes lists every consensus mode.
var ConsensusModes = []ConsensusMode{
	ConsensusAll, ConsensusCanonical, ConsensusNonCanonical, ConsensusStacking,
}

// MolProbityFilter is the structural-quality gate applied before consensus
type MolProbityFilter string

// Defines the MolProbity filter levels. ALL disables filtering.
const (
	MolProbityAll                   MolProbityFilter = "ALL"
	MolProbityClashscore            MolProbityFilter = "CLASHSCORE"
	MolProbityClashscoreBondsAngles MolProbityFilter = "CLASHSCORE_BONDS_ANGLES"
)

// MolProbityFilters lists every filter level.
var MolProbityFilters = []MolProbityFilter{
	MolProbityAll, MolProbityClashscore, MolProbityClashscoreBondsAngles,
}

// Enabled reports whether the filter excludes anything. It is the value sent
// to servers that model the filter as a boolean.
func (f MolProbityFilter) Enabled() bool {
	return f != MolProbityAll
}

// ParseAnalyzer resolves a case-insensitive analyzer name.
func ParseAnalyzer(s string) (Analyzer, error) {
	for _, a := range Analyzers {
		if strings.EqualFold(s, string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown analyzer %q (expected one of %s)", s, joinNames(Analyzers))
}

// ParseVisualizationTool resolves a case-insensitive visualization tool name.
func ParseVisualizationTool(s string) (VisualizationTool, error) {
	for _, v := range VisualizationTools {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown visualization tool %q (expected one of %s)", s, joinNames(VisualizationTools))
}

// ParseConsensusMode resolves a case-insensitive consensus mode name.
func ParseConsensusMode(s string) (ConsensusMode, error) {
	for _, m := range ConsensusModes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown consensus mode %q (expected one of %s)", s, joinNames(ConsensusModes))
}

// ParseMolProbityFilter resolves a case-insensitive filter name.
func ParseMolProbityFilter(s string) (MolProbityFilter, error) {
	for _, f := range MolProbityFilters {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown MolProbity filter %q (expected one of %s)", s, joinNames(MolProbityFilters))
}

func joinNames[T ~string](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}

// FileData is a named structure file carried verbatim in a submission
type FileData struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ReadFileData reads a structure file from disk. The content is kept byte for
// byte; the name is the base name of the path.
func ReadFileData(path string) (FileData, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileData{}, fmt.Errorf("unable to read %s: %w", path, err)
	}

	return FileData{Name: filepath.Base(path), Content: string(content)}, nil
}

// SubmissionRequest is the analysis request built once per invocation
type SubmissionRequest struct {
	Files             []FileData
	Analyzer          Analyzer
	VisualizationTool VisualizationTool
	ConsensusMode     ConsensusMode
	ConfidenceLevel   *float64 // nil means fuzzy thresholding
	MolProbityFilter  MolProbityFilter
	DotBracket        string // optional secondary-structure constraint
}

// Validation errors returned by SubmissionRequest.Validate
var (
	ErrNoFiles            = errors.New("at least one file is required")
	ErrDuplicateFileName  = errors.New("duplicate file name")
	ErrEmptyFileName      = errors.New("file name must not be empty")
	ErrConfidenceOutRange = errors.New("confidence level must be between 0.0 and 1.0")
)

// CheckConfidence accepts nil (fuzzy) or a level in [0,1].
func CheckConfidence(level *float64) error {
	if level == nil {
		return nil
	}
	if math.IsNaN(*level) || *level < 0 || *level > 1 {
		return fmt.Errorf("%w: got %v", ErrConfidenceOutRange, *level)
	}
	return nil
}

// Validate checks the request before it is sent and rewrites the enum fields
// to the names the service expects. Duplicate names are rejected, never
// silently merged.
func (req *SubmissionRequest) Validate() error {
	if len(req.Files) == 0 {
		return ErrNoFiles
	}

	seen := make(map[string]struct{}, len(req.Files))
	for _, f := range req.Files {
		if f.Name == "" {
			return ErrEmptyFileName
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateFileName, f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	var err error
	if req.Analyzer, err = ParseAnalyzer(string(req.Analyzer)); err != nil {
		return err
	}
	if req.VisualizationTool, err = ParseVisualizationTool(string(req.VisualizationTool)); err != nil {
		return err
	}
	if req.ConsensusMode, err = ParseConsensusMode(string(req.ConsensusMode)); err != nil {
		return err
	}
	if req.MolProbityFilter, err = ParseMolProbityFilter(string(req.MolProbityFilter)); err != nil {
		return err
	}

	return CheckConfidence(req.ConfidenceLevel)
}

// FileNames returns the submitted names in submission order.
func (req *SubmissionRequest) FileNames() []string {
	names := make([]string, len(req.Files))
	for i, f := range req.Files {
		names[i] = f.Name
	}
	return names
}
