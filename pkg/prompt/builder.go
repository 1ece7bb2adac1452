package prompt

import (
	"fmt"
	"strings"

	"city-inspect-be/internal/constant"
	"city-inspect-be/pkg/store"
)

// ReportBuilder assembles the generation prompt for the final
// inspection report: visual analysis first, then the reranked
// evidence split by modality, then the user question.
type ReportBuilder struct {
	visualAnalysis string
	query          string
	evidence       []store.EvidenceItem
}

// NewReportBuilder creates a new report prompt builder.
func NewReportBuilder(visualAnalysis string, query string, evidence []store.EvidenceItem) *ReportBuilder {
	return &ReportBuilder{
		visualAnalysis: visualAnalysis,
		query:          query,
		evidence:       evidence,
	}
}

// Build creates the user message paired with the report system prompt.
func (b *ReportBuilder) Build() string {
	var prompt strings.Builder

	b.writeVisualAnalysis(&prompt)
	b.writeTextEvidence(&prompt)
	b.writeCaseImages(&prompt)
	b.writeUserQuery(&prompt)

	return prompt.String()
}

func (b *ReportBuilder) writeVisualAnalysis(prompt *strings.Builder) {
	if b.visualAnalysis == "" {
		return
	}
	prompt.WriteString("<视觉分析>\n")
	prompt.WriteString(b.visualAnalysis)
	prompt.WriteString("\n</视觉分析>\n\n")
}

func (b *ReportBuilder) writeTextEvidence(prompt *strings.Builder) {
	items := b.byModality(store.ModalityText)
	if len(items) == 0 {
		return
	}

	prompt.WriteString("<知识库依据>\n")
	for _, item := range items {
		prompt.WriteString(fmt.Sprintf("[依据 %d]", item.Rank))
		if source := sourceLabel(item); source != "" {
			prompt.WriteString(" 来源: " + source)
		}
		prompt.WriteString("\n")
		prompt.WriteString(item.Content)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("</知识库依据>\n\n")
}

func (b *ReportBuilder) writeCaseImages(prompt *strings.Builder) {
	items := b.byModality(store.ModalityImage)
	if len(items) == 0 {
		return
	}

	prompt.WriteString("<相似案例>\n")
	for _, item := range items {
		prompt.WriteString(fmt.Sprintf("[案例 %d] %s\n", item.Rank, item.Content))
	}
	prompt.WriteString("</相似案例>\n\n")
}

func (b *ReportBuilder) writeUserQuery(prompt *strings.Builder) {
	query := b.query
	if query == "" {
		query = "请评估图中存在的安全隐患。"
	}
	prompt.WriteString(fmt.Sprintf(constant.QueryTemplate, query))
}

func (b *ReportBuilder) byModality(modality store.Modality) []store.EvidenceItem {
	var items []store.EvidenceItem
	for _, item := range b.evidence {
		if item.Modality == modality {
			items = append(items, item)
		}
	}
	return items
}

func sourceLabel(item store.EvidenceItem) string {
	if item.SourcePath != "" {
		return item.SourcePath
	}
	if item.Metadata != nil {
		if source, ok := item.Metadata["source"].(string); ok {
			return source
		}
	}
	return ""
}

// NoEvidenceAnswer is the graceful reply when both retrieval paths came
// back empty: the visual analysis stands alone, without citing the
// handbook.
func NoEvidenceAnswer(visualAnalysis string) string {
	return fmt.Sprintf(constant.NoEvidenceAnswerTemplate, visualAnalysis)
}
