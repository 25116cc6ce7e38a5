package ui

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/temirov/wsm/internal/orchestrator"
	"github.com/temirov/wsm/internal/workspace"
)

const (
	frontMatterTemplateConstant       = "---\ntitle: %s report for: %s\n---\n"
	repositoryHeadingTemplateConstant = "\n# %s\n"
	sectionTemplateConstant           = "\n## %s\n\n```%s\n%s\n```\n"
	standardOutputSectionConstant     = "stdout"
	standardErrorSectionConstant      = "stderr"
	faultSectionConstant              = "fault"
	faultFenceLanguageConstant        = "yaml"
	referenceLineTemplateConstant     = "\nref: `%s`\n"
	summaryTemplateConstant           = "%s %s: %d repositories, %d succeeded, %d failed\n"
	successMarkerConstant             = "✓"
	partialMarkerConstant             = "⚠"
	failureMarkerConstant             = "✗"
	encodeFaultErrorTemplateConstant  = "unable to encode fault for %s: %w"
	yamlIndentConstant                = 2
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	partialColor = color.New(color.FgYellow, color.Bold)
	failureColor = color.New(color.FgRed, color.Bold)
)

// ReportRenderer writes workspace reports as markdown documents.
type ReportRenderer struct{}

// Render writes report to writer: front matter naming the operation and manifest,
// then one section per repository with its output and fault.
func (ReportRenderer) Render(writer io.Writer, report workspace.Report) error {
	var document strings.Builder
	document.WriteString(fmt.Sprintf(frontMatterTemplateConstant, capitalize(report.Operation), report.ManifestName))

	for _, result := range report.Results {
		document.WriteString(fmt.Sprintf(repositoryHeadingTemplateConstant, result.Path))
		if len(result.Output.Reference) > 0 {
			document.WriteString(fmt.Sprintf(referenceLineTemplateConstant, result.Output.Reference))
		}
		writeSection(&document, standardOutputSectionConstant, "", result.Output.StandardOutput)
		writeSection(&document, standardErrorSectionConstant, "", result.Output.StandardError)
		if result.Fault != nil {
			encodedFault, encodeError := encodeFault(result.Fault)
			if encodeError != nil {
				return fmt.Errorf(encodeFaultErrorTemplateConstant, result.Path, encodeError)
			}
			writeSection(&document, faultSectionConstant, faultFenceLanguageConstant, encodedFault)
		}
	}

	_, writeError := io.WriteString(writer, document.String())
	return writeError
}

// RenderSummary writes a single coloured line counting successes and failures.
func (ReportRenderer) RenderSummary(writer io.Writer, report workspace.Report) error {
	failureCount := len(report.Results.Failures())
	successCount := len(report.Results) - failureCount

	summaryColor, marker := successColor, successMarkerConstant
	switch {
	case report.Results.FailedOverall():
		summaryColor, marker = failureColor, failureMarkerConstant
	case failureCount > 0:
		summaryColor, marker = partialColor, partialMarkerConstant
	}

	_, writeError := summaryColor.Fprintf(writer, summaryTemplateConstant, marker, report.Operation, len(report.Results), successCount, failureCount)
	return writeError
}

func writeSection(document *strings.Builder, title string, language string, content string) {
	trimmedContent := strings.TrimRight(content, "\n")
	if len(trimmedContent) == 0 {
		return
	}
	document.WriteString(fmt.Sprintf(sectionTemplateConstant, title, language, trimmedContent))
}

func encodeFault(fault *orchestrator.Fault) (string, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(fault); encodeError != nil {
		return "", encodeError
	}
	if closeError := encoder.Close(); closeError != nil {
		return "", closeError
	}
	return buffer.String(), nil
}

func capitalize(text string) string {
	if len(text) == 0 {
		return text
	}
	return strings.ToUpper(text[:1]) + text[1:]
}
