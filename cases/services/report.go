package services

import "time"

type ReportMetadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	TotalCases  int       `json:"total_cases"`
	Filters     Filter    `json:"filters"`
}

// Report is the layout of the case export file.
type Report struct {
	Analysis Analysis       `json:"analysis"`
	RawCases []Case         `json:"raw_cases"`
	Metadata ReportMetadata `json:"metadata"`
}

func NewReport(cases []Case, f Filter, now time.Time) Report {
	if cases == nil {
		cases = []Case{}
	}
	return Report{
		Analysis: Analyze(cases, now),
		RawCases: cases,
		Metadata: ReportMetadata{
			GeneratedAt: now.UTC(),
			TotalCases:  len(cases),
			Filters:     f,
		},
	}
}
