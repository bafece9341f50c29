package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Severity of a finding.
type Severity string

const (
	SeverityCritical       Severity = "critical"
	SeverityWarning        Severity = "warning"
	SeverityInfo           Severity = "info"
	SeverityRecommendation Severity = "recommendation"
)

// Rank orders severities for listing: critical first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 1
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 3
	case SeverityRecommendation:
		return 4
	default:
		return 5
	}
}

// Status is the triage state of a persisted finding.
type Status string

const (
	StatusNew           Status = "new"
	StatusAcknowledged  Status = "acknowledged"
	StatusInProgress    Status = "in_progress"
	StatusResolved      Status = "resolved"
	StatusWontFix       Status = "wont_fix"
	StatusFalsePositive Status = "false_positive"
)

// ValidStatuses enumerates all triage states.
var ValidStatuses = []Status{
	StatusNew, StatusAcknowledged, StatusInProgress,
	StatusResolved, StatusWontFix, StatusFalsePositive,
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	for _, v := range ValidStatuses {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Closed reports whether the status ends triage.
func (s Status) Closed() bool {
	return s == StatusResolved || s == StatusWontFix || s == StatusFalsePositive
}

// Finding categories.
const (
	CategoryDuplicate     = "duplicate"
	CategoryOrphan        = "orphan"
	CategoryDangling      = "dangling"
	CategoryCommentedCode = "commented_code"
	CategoryExternalPath  = "external_path"
	CategoryIntegration   = "integration"
	CategoryArchitecture  = "architecture"
	CategoryCodeQuality   = "code_quality"
	CategoryCleanup       = "cleanup"
	CategoryUX            = "ux"
	CategoryBugFix        = "bug_fix"
	CategoryDocumentation = "documentation"
	CategoryOther         = "other"
)

// Details is the structured payload of a finding. File, Entity and ArtifactID
// form the identity part of the fingerprint; everything else is descriptive.
type Details struct {
	File       string         `json:"file,omitempty"`
	Entity     string         `json:"entity,omitempty"`
	ArtifactID string         `json:"artifact_id,omitempty"`
	Line       int            `json:"line,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Finding is a detected issue. Persisted findings are keyed by Fingerprint.
type Finding struct {
	Fingerprint     string    `json:"fingerprint"`
	Severity        Severity  `json:"severity"`
	Category        string    `json:"category"`
	Type            string    `json:"finding_type"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Recommendation  string    `json:"recommendation,omitempty"`
	Details         Details   `json:"details"`
	Status          Status    `json:"status,omitempty"`
	RunID           string    `json:"run_id,omitempty"`
	FirstSeenAt     time.Time `json:"first_seen_at,omitzero"`
	LastSeenAt      time.Time `json:"last_seen_at,omitzero"`
	OccurrenceCount int       `json:"occurrence_count,omitempty"`
	ResolvedAt      time.Time `json:"resolved_at,omitzero"`
	ResolutionNote  string    `json:"resolution_note,omitempty"`
}

// ComputeFingerprint returns the stable identity hash of the finding.
// Recommendations are keyed by title; everything else by the non-empty
// file, entity and artifact-id parts.
func (f Finding) ComputeFingerprint() string {
	parts := []string{string(f.Severity), f.Category, f.Type}
	if f.Severity == SeverityRecommendation {
		parts = append(parts, f.Title)
	} else {
		for _, p := range []string{f.Details.File, f.Details.Entity, f.Details.ArtifactID} {
			if p != "" {
				parts = append(parts, p)
			}
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:32]
}

// WithFingerprint returns f with its fingerprint filled in.
func (f Finding) WithFingerprint() Finding {
	f.Fingerprint = f.ComputeFingerprint()
	return f
}

// SortFindings orders by severity rank, category, type, file, line and entity.
func SortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Details.File != b.Details.File {
			return a.Details.File < b.Details.File
		}
		if a.Details.Line != b.Details.Line {
			return a.Details.Line < b.Details.Line
		}
		return a.Details.Entity < b.Details.Entity
	})
}

// FindingSet is the long-lived, fingerprint-keyed set of persisted findings.
type FindingSet struct {
	Findings map[string]*Finding `json:"findings"`
}

// NewFindingSet returns an empty set.
func NewFindingSet() *FindingSet {
	return &FindingSet{Findings: make(map[string]*Finding)}
}

// UpsertResult reports what FindOrCreate did.
type UpsertResult struct {
	Finding Finding
	Created bool
}

// FindOrCreate records an observation of candidate in run runID.
//
// An existing record keeps its triage state: last_seen_at, occurrence_count
// and run id always advance, while severity and description are refreshed
// only when the status is still new.
func (s *FindingSet) FindOrCreate(runID string, candidate Finding, now time.Time) UpsertResult {
	if s.Findings == nil {
		s.Findings = make(map[string]*Finding)
	}
	fp := candidate.Fingerprint
	if fp == "" {
		fp = candidate.ComputeFingerprint()
	}

	if existing, ok := s.Findings[fp]; ok {
		existing.RunID = runID
		existing.LastSeenAt = now
		existing.OccurrenceCount++
		if existing.Status == StatusNew {
			existing.Severity = candidate.Severity
			existing.Title = candidate.Title
			existing.Description = candidate.Description
			existing.Recommendation = candidate.Recommendation
			existing.Details = candidate.Details
		}
		return UpsertResult{Finding: *existing}
	}

	created := candidate
	created.Fingerprint = fp
	created.RunID = runID
	created.Status = StatusNew
	created.FirstSeenAt = now
	created.LastSeenAt = now
	created.OccurrenceCount = 1
	s.Findings[fp] = &created
	return UpsertResult{Finding: created, Created: true}
}

// SetStatus applies a triage decision. Moving to resolved stamps ResolvedAt;
// reopening clears it.
func (s *FindingSet) SetStatus(fingerprint string, status Status, note string, now time.Time) (Finding, error) {
	f, ok := s.Findings[fingerprint]
	if !ok {
		return Finding{}, fmt.Errorf("%w: %s", ErrFindingNotFound, fingerprint)
	}
	if f.Status == status {
		return Finding{}, fmt.Errorf("%w: finding already %s", ErrInvalidTransition, status)
	}
	f.Status = status
	switch status {
	case StatusResolved:
		f.ResolvedAt = now
	case StatusNew:
		f.ResolvedAt = time.Time{}
	}
	if note != "" {
		f.ResolutionNote = note
	}
	return *f, nil
}

// Get returns a copy of the finding with the given fingerprint. A unique
// prefix of at least 6 characters is accepted.
func (s *FindingSet) Get(fingerprint string) (Finding, error) {
	if f, ok := s.Findings[fingerprint]; ok {
		return *f, nil
	}
	if len(fingerprint) >= 6 {
		var match *Finding
		for fp, f := range s.Findings {
			if strings.HasPrefix(fp, fingerprint) {
				if match != nil {
					return Finding{}, fmt.Errorf("ambiguous fingerprint prefix %q", fingerprint)
				}
				match = f
			}
		}
		if match != nil {
			return *match, nil
		}
	}
	return Finding{}, fmt.Errorf("%w: %s", ErrFindingNotFound, fingerprint)
}

// FindingFilter selects findings for listing. Empty fields match everything.
type FindingFilter struct {
	Status   Status
	Severity Severity
	Category string
	RunID    string
	Open     bool
}

// List returns matching findings sorted for display.
func (s *FindingSet) List(filter FindingFilter) []Finding {
	var out []Finding
	for _, f := range s.Findings {
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && f.Severity != filter.Severity {
			continue
		}
		if filter.Category != "" && f.Category != filter.Category {
			continue
		}
		if filter.RunID != "" && f.RunID != filter.RunID {
			continue
		}
		if filter.Open && f.Status.Closed() {
			continue
		}
		out = append(out, *f)
	}
	SortFindings(out)
	return out
}
