// Package report renders batteries and posterior summaries as Markdown for
// advisors, and converts that Markdown to HTML for the API.
package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"goelicit/domain/design"
	"goelicit/internal/uncertainty"
	"goelicit/ports"
)

// UncertaintyMarkdown renders an analyzer report; correlations may be nil
func UncertaintyMarkdown(r *uncertainty.Report, correlations []uncertainty.Correlation) string {
	var b strings.Builder

	b.WriteString("# Preference uncertainty\n\n")
	fmt.Fprintf(&b, "Global uncertainty: **%.4f** (threshold %.2f, %d of %d dimensions above)\n\n",
		r.GlobalUncertainty, r.UncertaintyThreshold, r.NDimensionsAboveThreshold, len(r.Dimensions))

	high := make(map[string]bool, len(r.HighUncertaintyDimensions))
	for _, d := range r.HighUncertaintyDimensions {
		high[d] = true
	}

	b.WriteString("| Dimension | Variance | Above threshold |\n")
	b.WriteString("|---|---:|:---:|\n")
	for _, d := range r.Dimensions {
		mark := ""
		if high[d] {
			mark = "yes"
		}
		fmt.Fprintf(&b, "| %s | %.4f | %s |\n", d, r.UncertaintyPerDimension[d], mark)
	}

	if len(r.TopUncertainDimensions) > 0 {
		fmt.Fprintf(&b, "\nAsk next about: %s\n", strings.Join(r.TopUncertainDimensions, ", "))
	}

	if len(correlations) > 0 {
		b.WriteString("\n## Correlations\n\n")
		b.WriteString("| Pair | Correlation |\n")
		b.WriteString("|---|---:|\n")
		for _, c := range correlations {
			fmt.Fprintf(&b, "| %s / %s | %+.3f |\n", c.Pair.First, c.Pair.Second, c.Value)
		}
	}
	return b.String()
}

// BatteryMarkdown renders a planned battery with human-readable profiles
func BatteryMarkdown(battery *design.Battery, describer ports.ProfileDescriber) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Vignette battery %s\n\n", battery.ID)
	fmt.Fprintf(&b, "Profile space `%s`, %d vignettes\n\n", battery.Fingerprint.Short(), battery.Len())

	section := func(title string, rows []design.Selected) {
		if len(rows) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		for _, s := range rows {
			fmt.Fprintf(&b, "%d. **A:** %s  \n   **B:** %s\n", s.Round,
				escape(describer.ProfileToString(s.A)), escape(describer.ProfileToString(s.B)))
		}
		b.WriteString("\n")
	}
	section("Beginning of conversation", battery.Beginning)
	section("End of conversation", battery.End)

	if st := battery.Stats; st != nil {
		b.WriteString("## Design quality\n\n")
		fmt.Fprintf(&b, "- D-efficiency: %.4f\n", st.DEfficiency)
		fmt.Fprintf(&b, "- Information determinant: %.6g\n", st.FIMDeterminant)
		fmt.Fprintf(&b, "- Condition number: %.3f\n", st.ConditionNumber)
	}
	if battery.Degenerate {
		b.WriteString("\n> Some vignettes add no information under the prior.\n")
	}
	return b.String()
}

// escape keeps profile separators from being read as table syntax
func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// HTML converts Markdown to a standalone HTML page
func HTML(md, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML([]byte(md), p, r)
}
