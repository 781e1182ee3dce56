// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "slices"

// KeyFindings is the structured extraction of a document's main points.
type KeyFindings struct {
	MainQuestion  string   `json:"main_question" yaml:"main_question"`
	Methodologies []string `json:"methodologies" yaml:"methodologies" validate:"required"`
	Findings      []string `json:"findings" yaml:"findings" validate:"required"`
	Limitations   []string `json:"limitations" yaml:"limitations" validate:"required"`
	FutureWork    []string `json:"future_work" yaml:"future_work" validate:"required"`
}

// EmptyKeyFindings returns the default used when extraction fails.
func EmptyKeyFindings() KeyFindings {
	return KeyFindings{
		Methodologies: []string{},
		Findings:      []string{},
		Limitations:   []string{},
		FutureWork:    []string{},
	}
}

// Summary condenses one document.
type Summary struct {
	Title          string      `json:"title" yaml:"title"`
	SummaryText    string      `json:"summary" yaml:"summary"`
	KeyFindings    KeyFindings `json:"key_findings" yaml:"key_findings"`
	SourceMetadata Metadata    `json:"source_metadata" yaml:"source_metadata"`
}

// Critique is the qualitative part of a document evaluation.
type Critique struct {
	Strengths              []string `json:"strengths" yaml:"strengths" validate:"required"`
	Weaknesses             []string `json:"weaknesses" yaml:"weaknesses" validate:"required"`
	MethodologicalConcerns []string `json:"methodological_concerns" yaml:"methodological_concerns" validate:"required"`
	Contribution           string   `json:"contribution" yaml:"contribution"`
	Recommendations        []string `json:"recommendations" yaml:"recommendations" validate:"required"`
}

// EmptyCritique returns the default used when critique generation fails.
func EmptyCritique() Critique {
	return Critique{
		Strengths:              []string{},
		Weaknesses:             []string{},
		MethodologicalConcerns: []string{},
		Recommendations:        []string{},
	}
}

// DocumentEvaluation scores one (document, summary) pair. OverallScore is
// the arithmetic mean of the three component scores.
type DocumentEvaluation struct {
	Title            string   `json:"title" yaml:"title"`
	QualityScore     float64  `json:"quality_score" yaml:"quality_score"`
	RelevanceScore   float64  `json:"relevance_score" yaml:"relevance_score"`
	MethodologyScore float64  `json:"methodology_score" yaml:"methodology_score"`
	OverallScore     float64  `json:"overall_score" yaml:"overall_score"`
	Critique         Critique `json:"critique" yaml:"critique"`
}

// AverageScores aggregates evaluation scores across documents.
type AverageScores struct {
	AverageQuality     float64 `json:"average_quality" yaml:"average_quality"`
	AverageRelevance   float64 `json:"average_relevance" yaml:"average_relevance"`
	AverageMethodology float64 `json:"average_methodology" yaml:"average_methodology"`
	AverageOverall     float64 `json:"average_overall" yaml:"average_overall"`
}

// Evaluations holds per-document evaluations plus their averages.
type Evaluations struct {
	Evaluations   []DocumentEvaluation `json:"evaluations" yaml:"evaluations"`
	AverageScores AverageScores        `json:"average_scores" yaml:"average_scores"`
}

// Synthesis is the cross-document analysis.
type Synthesis struct {
	CommonThemes          []string `json:"common_themes" yaml:"common_themes" validate:"required"`
	ConflictingFindings   []string `json:"conflicting_findings" yaml:"conflicting_findings" validate:"required"`
	ComplementaryInsights []string `json:"complementary_insights" yaml:"complementary_insights" validate:"required"`
	ResearchGaps          []string `json:"research_gaps" yaml:"research_gaps" validate:"required"`
	FutureDirections      []string `json:"future_directions" yaml:"future_directions" validate:"required"`
}

// EmptySynthesis returns the default used when synthesis fails or has no input.
func EmptySynthesis() Synthesis {
	return Synthesis{
		CommonThemes:          []string{},
		ConflictingFindings:   []string{},
		ComplementaryInsights: []string{},
		ResearchGaps:          []string{},
		FutureDirections:      []string{},
	}
}

// Methodology is the report section describing how the research was done.
type Methodology struct {
	Approach          string   `json:"approach" yaml:"approach"`
	SelectionCriteria []string `json:"selection_criteria" yaml:"selection_criteria" validate:"required"`
	AnalysisMethods   []string `json:"analysis_methods" yaml:"analysis_methods" validate:"required"`
	Limitations       []string `json:"limitations" yaml:"limitations" validate:"required"`
}

// Findings is the report section listing results.
type Findings struct {
	KeyFindings         []string `json:"key_findings" yaml:"key_findings" validate:"required"`
	SupportingEvidence  []string `json:"supporting_evidence" yaml:"supporting_evidence" validate:"required"`
	ConflictingEvidence []string `json:"conflicting_evidence" yaml:"conflicting_evidence" validate:"required"`
	EmergingPatterns    []string `json:"emerging_patterns" yaml:"emerging_patterns" validate:"required"`
}

// Analysis is the report section with critical discussion.
type Analysis struct {
	CriticalAnalysis string   `json:"critical_analysis" yaml:"critical_analysis"`
	EvidenceQuality  string   `json:"evidence_quality" yaml:"evidence_quality"`
	Implications     []string `json:"implications" yaml:"implications" validate:"required"`
	KnowledgeGaps    []string `json:"knowledge_gaps" yaml:"knowledge_gaps" validate:"required"`
}

// Recommendation is one categorized recommendation.
type Recommendation struct {
	Category       string `json:"category" yaml:"category" validate:"required"`
	Recommendation string `json:"recommendation" yaml:"recommendation" validate:"required"`
}

// ReferenceEntry is a citation derived from a retrieved document.
type ReferenceEntry struct {
	CitationKey string   `json:"citation_key" yaml:"citation_key"`
	Title       string   `json:"title" yaml:"title"`
	Authors     []string `json:"authors" yaml:"authors"`
	Year        int      `json:"year,omitempty" yaml:"year,omitempty"`
	Source      Source   `json:"source,omitempty" yaml:"source,omitempty"`
	URL         string   `json:"url,omitempty" yaml:"url,omitempty"`
}

// Report is the final research report.
type Report struct {
	Title            string           `json:"title" yaml:"title"`
	Date             string           `json:"date" yaml:"date"`
	Query            string           `json:"query" yaml:"query"`
	ExecutiveSummary string           `json:"executive_summary" yaml:"executive_summary"`
	Methodology      Methodology      `json:"methodology" yaml:"methodology"`
	Findings         Findings         `json:"findings" yaml:"findings"`
	Analysis         Analysis         `json:"analysis" yaml:"analysis"`
	Recommendations  []Recommendation `json:"recommendations" yaml:"recommendations"`
	References       []ReferenceEntry `json:"references" yaml:"references"`

	// Location is where the report was persisted, empty if it was not.
	Location string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
}

// EmptyMethodology, EmptyFindings and EmptyAnalysis are the section defaults.
func EmptyMethodology() Methodology {
	return Methodology{SelectionCriteria: []string{}, AnalysisMethods: []string{}, Limitations: []string{}}
}

func EmptyFindings() Findings {
	return Findings{
		KeyFindings:         []string{},
		SupportingEvidence:  []string{},
		ConflictingEvidence: []string{},
		EmergingPatterns:    []string{},
	}
}

func EmptyAnalysis() Analysis {
	return Analysis{Implications: []string{}, KnowledgeGaps: []string{}}
}

// EmptyReport returns a report with every section set to its default.
func EmptyReport() Report {
	return Report{
		Methodology:     EmptyMethodology(),
		Findings:        EmptyFindings(),
		Analysis:        EmptyAnalysis(),
		Recommendations: []Recommendation{},
		References:      []ReferenceEntry{},
	}
}

// Outcome classifies how a run finished.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailed   Outcome = "failed"
)

// PipelineState is the record threaded through the stages. Every field is
// present from creation; stages return a new state rather than mutating
// the one they receive.
type PipelineState struct {
	Query       string      `json:"query" yaml:"query"`
	Documents   []Document  `json:"documents" yaml:"documents"`
	Summaries   []Summary   `json:"summaries" yaml:"summaries"`
	Evaluations Evaluations `json:"evaluations" yaml:"evaluations"`
	Synthesis   Synthesis   `json:"synthesis" yaml:"synthesis"`
	Report      Report      `json:"report" yaml:"report"`
	Errors      []string    `json:"errors" yaml:"errors"`
}

// NewPipelineState returns the initial state for query with every field
// set to its empty default.
func NewPipelineState(query string) PipelineState {
	return PipelineState{
		Query:       query,
		Documents:   []Document{},
		Summaries:   []Summary{},
		Evaluations: Evaluations{Evaluations: []DocumentEvaluation{}},
		Synthesis:   EmptySynthesis(),
		Report:      EmptyReport(),
		Errors:      []string{},
	}
}

// Clone returns a copy of s whose slices do not alias s.
func (s PipelineState) Clone() PipelineState {
	out := s
	out.Documents = CloneDocuments(s.Documents)
	out.Summaries = make([]Summary, len(s.Summaries))
	for i, sum := range s.Summaries {
		sum.SourceMetadata = sum.SourceMetadata.Clone()
		out.Summaries[i] = sum
	}
	out.Evaluations.Evaluations = slices.Clone(s.Evaluations.Evaluations)
	if out.Evaluations.Evaluations == nil {
		out.Evaluations.Evaluations = []DocumentEvaluation{}
	}
	out.Report.Recommendations = slices.Clone(s.Report.Recommendations)
	out.Report.References = slices.Clone(s.Report.References)
	out.Errors = slices.Clone(s.Errors)
	if out.Errors == nil {
		out.Errors = []string{}
	}
	return out
}

// WithError returns a copy of s with msg appended to Errors.
func (s PipelineState) WithError(msg string) PipelineState {
	out := s
	out.Errors = append(slices.Clone(s.Errors), msg)
	return out
}

// Outcome reports whether the run completed cleanly, completed with
// recorded errors, or produced nothing usable.
func (s PipelineState) Outcome() Outcome {
	switch {
	case len(s.Errors) == 0:
		return OutcomeComplete
	case len(s.Documents) == 0:
		return OutcomeFailed
	default:
		return OutcomeDegraded
	}
}
