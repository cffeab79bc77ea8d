// Package report は ParseResult をレポーティング側の形式に変換する。
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/0x6d61/agentscan/pkg/schema"
)

const informationURI = "https://github.com/0x6d61/agentscan"

// NewSARIF は 1 ツール分の ParseResult を SARIF 2.1.0 レポートにする。
// ルールはツールと重大度の組ごとに 1 つ作る。
func NewSARIF(tool string, res schema.ParseResult) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(tool, informationURI)
	for _, f := range SortFindings(res.Findings) {
		level := toSarifLevel(f.Severity)
		rule := run.AddRule(ruleID(tool, f.Severity)).
			WithDescription(fmt.Sprintf("%s finding classified as %s", tool, f.Severity)).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: level})

		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.Target)),
		)

		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(f.Title + ": " + f.Description)).
			WithLevel(level).
			WithLocations([]*sarif.Location{location})
		result.PropertyBag = *sarif.NewPropertyBag()
		result.Add("finding_id", f.ID)
		result.Add("severity", string(f.Severity))
		result.Add("timestamp", f.Timestamp.UTC().Format(time.RFC3339))
		if f.AgentID != nil {
			result.Add("agent_id", *f.AgentID)
		}
		run.AddResult(result)
	}
	report.AddRun(run)
	return report, nil
}

// WriteSARIF は SARIF レポートを整形して w に書き出す。
func WriteSARIF(w io.Writer, tool string, res schema.ParseResult) error {
	report, err := NewSARIF(tool, res)
	if err != nil {
		return err
	}
	return report.PrettyWrite(w)
}

func ruleID(tool string, s schema.Severity) string {
	return "agentscan/" + tool + "/" + string(s)
}

// toSarifLevel は 5 段階の重大度を SARIF の level に落とす。
func toSarifLevel(s schema.Severity) string {
	switch schema.Severity(strings.ToLower(string(s))) {
	case schema.SeverityCritical, schema.SeverityHigh:
		return "error"
	case schema.SeverityMedium:
		return "warning"
	case schema.SeverityLow:
		return "note"
	default:
		return "none"
	}
}
