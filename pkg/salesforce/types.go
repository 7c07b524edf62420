package salesforce

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// APITime is a custom time type that handles Salesforce API date formats.
// The REST API returns datetimes with a numeric zone without colon
// (e.g., "2024-03-01T10:15:00.000+0000") and dates as "2024-03-31".
type APITime struct {
	time.Time
}

var apiTimeFormats = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseAPITime parses any of the timestamp layouts the API emits.
func ParseAPITime(s string) (APITime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return APITime{}, nil
	}
	for _, format := range apiTimeFormats {
		if parsed, err := time.Parse(format, s); err == nil {
			return APITime{Time: parsed.UTC()}, nil
		}
	}
	return APITime{}, fmt.Errorf("unable to parse time string: %s", s)
}

// UnmarshalJSON implements json.Unmarshaler for APITime
func (t *APITime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var timeStr string
	if err := json.Unmarshal(data, &timeStr); err != nil {
		return err
	}
	parsed, err := ParseAPITime(timeStr)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON implements json.Marshaler for APITime
func (t APITime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// Record is a single row of a SOQL result. Relationship fields
// (Account, Owner, ...) are nested objects.
type Record map[string]any

// String returns the field as a string, or nil when it is absent or null.
func (r Record) String(field string) *string {
	v, ok := r[field]
	if !ok || v == nil {
		return nil
	}
	switch val := v.(type) {
	case string:
		return &val
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		return &s
	case bool:
		s := strconv.FormatBool(val)
		return &s
	default:
		s := fmt.Sprint(val)
		return &s
	}
}

// StringOr returns the field as a string or def when it is absent or null.
func (r Record) StringOr(field, def string) string {
	if s := r.String(field); s != nil {
		return *s
	}
	return def
}

// Float returns a numeric field. ok is false when the field is absent, null
// or not a number.
func (r Record) Float(field string) (float64, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool returns a boolean field, false when absent or null.
func (r Record) Bool(field string) bool {
	switch val := r[field].(type) {
	case bool:
		return val
	case string:
		b, _ := strconv.ParseBool(val)
		return b
	default:
		return false
	}
}

// Related returns a nested relationship object, or nil when the
// relationship is empty.
func (r Record) Related(field string) Record {
	switch val := r[field].(type) {
	case map[string]any:
		return Record(val)
	case Record:
		return val
	default:
		return nil
	}
}

// Time parses a datetime field. The zero APITime is returned for absent
// or unparseable values.
func (r Record) Time(field string) APITime {
	s := r.String(field)
	if s == nil {
		return APITime{}
	}
	t, err := ParseAPITime(*s)
	if err != nil {
		return APITime{}
	}
	return t
}

// QueryResponse represents the response of the query endpoint
type QueryResponse struct {
	TotalSize      int      `json:"totalSize"`
	Done           bool     `json:"done"`
	NextRecordsURL string   `json:"nextRecordsUrl,omitempty"`
	Records        []Record `json:"records"`
}

// APIError is an error reported by the REST API, e.g.
// [{"message":"No such column 'TCV__c' on entity 'Opportunity'","errorCode":"INVALID_FIELD"}]
type APIError struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.ErrorCode == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}

// Session is an authenticated REST session.
type Session struct {
	AccessToken string
	InstanceURL string
}

// orgDisplayResponse is the JSON printed by `sf org display --json`
type orgDisplayResponse struct {
	Status int `json:"status"`
	Result struct {
		AccessToken    string `json:"accessToken"`
		InstanceURL    string `json:"instanceUrl"`
		Username       string `json:"username"`
		Alias          string `json:"alias"`
		ConnectedState string `json:"connectedStatus"`
	} `json:"result"`
}
