// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stages

import (
	"strings"
	"text/template"
)

var promptFuncs = template.FuncMap{
	"join": strings.Join,
}

func prompt(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(promptFuncs).Parse(text))
}

const jsonOnly = `Respond with a single JSON object and nothing else. Do not wrap it in prose.`

var chunkSummaryPrompt = prompt("chunk_summary", `Summarize the following passage from an academic document in a few sentences.
Keep technical terms, quantitative results and named methods.

Passage:
{{.Text}}
`)

var combineSummaryPrompt = prompt("combined_summary", `The following are summaries of consecutive parts of one document titled "{{.Title}}".
Write one coherent summary of the whole document in a single paragraph.

{{range $i, $p := .Parts}}Part {{$i}}:
{{$p}}

{{end}}`)

var keyFindingsPrompt = prompt("key_findings", `Extract the key findings of the document below.

`+jsonOnly+` Use exactly these keys:
{"main_question": string, "methodologies": [string], "findings": [string], "limitations": [string], "future_work": [string]}

Title: {{.Title}}
Summary:
{{.Summary}}
`)

var qualityPrompt = prompt("quality_score", `Rate the scientific quality of the work summarized below on a scale from 0.0 to 1.0,
considering rigor, clarity and contribution. Reply with the number only.

Title: {{.Title}}
Summary:
{{.Summary}}
`)

var relevancePrompt = prompt("relevance_score", `Rate how relevant the work summarized below is to the research question
"{{.Query}}" on a scale from 0.0 to 1.0. Reply with the number only.

Title: {{.Title}}
Summary:
{{.Summary}}
`)

var methodologyPrompt = prompt("methodology_score", `Rate the soundness of the methodology of the work below on a scale from 0.0 to 1.0.
Reply with the number only.

Title: {{.Title}}
Methodologies: {{join .Methodologies "; "}}
Summary:
{{.Summary}}
`)

var critiquePrompt = prompt("critique", `Write a critical review of the work summarized below.

`+jsonOnly+` Use exactly these keys:
{"strengths": [string], "weaknesses": [string], "methodological_concerns": [string], "contribution": string, "recommendations": [string]}

Title: {{.Title}}
Summary:
{{.Summary}}
Findings: {{join .Findings "; "}}
Limitations: {{join .Limitations "; "}}
`)

var synthesisPrompt = prompt("synthesis", `Synthesize the research on "{{.Query}}" summarized below into a cross-document analysis.

`+jsonOnly+` Use exactly these keys:
{"common_themes": [string], "conflicting_findings": [string], "complementary_insights": [string], "research_gaps": [string], "future_directions": [string]}

{{range .Summaries}}## {{.Title}}
{{.SummaryText}}
Findings: {{join .KeyFindings.Findings "; "}}

{{end}}`)

var executiveSummaryPrompt = prompt("executive_summary", `Write the executive summary of a research report answering "{{.Query}}".
Two or three paragraphs of plain text, no headings.

Common themes: {{join .Synthesis.CommonThemes "; "}}
Research gaps: {{join .Synthesis.ResearchGaps "; "}}
{{range .Summaries}}- {{.Title}}: {{.SummaryText}}
{{end}}`)

var methodologySectionPrompt = prompt("methodology", `Describe the methodology of a literature review on "{{.Query}}" that analyzed {{len .Summaries}} documents
with average quality {{printf "%.2f" .Averages.AverageQuality}} and average relevance {{printf "%.2f" .Averages.AverageRelevance}}.

`+jsonOnly+` Use exactly these keys:
{"approach": string, "selection_criteria": [string], "analysis_methods": [string], "limitations": [string]}
`)

var findingsSectionPrompt = prompt("findings", `Organize the findings of the research on "{{.Query}}".

`+jsonOnly+` Use exactly these keys:
{"key_findings": [string], "supporting_evidence": [string], "conflicting_evidence": [string], "emerging_patterns": [string]}

Common themes: {{join .Synthesis.CommonThemes "; "}}
Conflicting findings: {{join .Synthesis.ConflictingFindings "; "}}
{{range .Summaries}}- {{.Title}}: {{join .KeyFindings.Findings "; "}}
{{end}}`)

var analysisSectionPrompt = prompt("analysis", `Write a critical analysis of the research on "{{.Query}}".

`+jsonOnly+` Use exactly these keys:
{"critical_analysis": string, "evidence_quality": string, "implications": [string], "knowledge_gaps": [string]}

Complementary insights: {{join .Synthesis.ComplementaryInsights "; "}}
Research gaps: {{join .Synthesis.ResearchGaps "; "}}
Average overall score: {{printf "%.2f" .Averages.AverageOverall}}
`)

var recommendationsPrompt = prompt("recommendations", `Give recommendations that follow from the research on "{{.Query}}".

`+jsonOnly+` Use exactly this shape:
{"recommendations": [{"category": string, "recommendation": string}]}

Future directions: {{join .Synthesis.FutureDirections "; "}}
Research gaps: {{join .Synthesis.ResearchGaps "; "}}
`)
