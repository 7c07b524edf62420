package services

import (
	"time"

	"github.com/natserract/sfsearch/pkg/salesforce"
)

type AccountStats struct {
	Total     int `json:"total"`
	Open      int `json:"open"`
	Closed    int `json:"closed"`
	Escalated int `json:"escalated"`
}

type TopCase struct {
	CaseNumber  string             `json:"case_number"`
	Subject     *string            `json:"subject"`
	Status      *string            `json:"status"`
	Priority    *string            `json:"priority"`
	Account     string             `json:"account"`
	CreatedDate salesforce.APITime `json:"created_date"`
	IsClosed    bool               `json:"is_closed"`
}

// Analysis summarizes a set of cases.
type Analysis struct {
	TotalCases     int                      `json:"total_cases"`
	OpenCases      int                      `json:"open_cases"`
	ClosedCases    int                      `json:"closed_cases"`
	EscalatedCases int                      `json:"escalated_cases"`
	ByStatus       map[string]int           `json:"by_status"`
	ByPriority     map[string]int           `json:"by_priority"`
	ByType         map[string]int           `json:"by_type"`
	ByOrigin       map[string]int           `json:"by_origin"`
	ByAccount      map[string]*AccountStats `json:"by_account"`
	RecentCases7d  int                      `json:"recent_cases_7d"`
	RecentCases30d int                      `json:"recent_cases_30d"`
	TopCases       []TopCase                `json:"top_cases"`
}

// Analyze counts cases by state and category. Cases are expected newest
// first, so TopCases holds the most recent ones.
func Analyze(cases []Case, now time.Time) Analysis {
	a := Analysis{
		TotalCases: len(cases),
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
		ByType:     map[string]int{},
		ByOrigin:   map[string]int{},
		ByAccount:  map[string]*AccountStats{},
		TopCases:   []TopCase{},
	}

	sevenDaysAgo := now.AddDate(0, 0, -7)
	thirtyDaysAgo := now.AddDate(0, 0, -30)

	for _, c := range cases {
		if c.IsClosed {
			a.ClosedCases++
		} else {
			a.OpenCases++
		}
		if c.IsEscalated {
			a.EscalatedCases++
		}

		a.ByStatus[orDefault(c.Status, "No Status")]++
		a.ByPriority[orDefault(c.Priority, "No Priority")]++
		a.ByType[orDefault(c.Type, "No Type")]++
		a.ByOrigin[orDefault(c.Origin, "No Origin")]++

		account := orDefault(c.AccountName, "No Account")
		stats, ok := a.ByAccount[account]
		if !ok {
			stats = &AccountStats{}
			a.ByAccount[account] = stats
		}
		stats.Total++
		if c.IsClosed {
			stats.Closed++
		} else {
			stats.Open++
		}
		if c.IsEscalated {
			stats.Escalated++
		}

		if !c.CreatedDate.IsZero() {
			if !c.CreatedDate.Before(sevenDaysAgo) {
				a.RecentCases7d++
			}
			if !c.CreatedDate.Before(thirtyDaysAgo) {
				a.RecentCases30d++
			}
		}

		if len(a.TopCases) < topCaseCount {
			a.TopCases = append(a.TopCases, TopCase{
				CaseNumber:  c.CaseNumber,
				Subject:     c.Subject,
				Status:      c.Status,
				Priority:    c.Priority,
				Account:     account,
				CreatedDate: c.CreatedDate,
				IsClosed:    c.IsClosed,
			})
		}
	}
	return a
}

func orDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
