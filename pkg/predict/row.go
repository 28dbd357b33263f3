package predict

import (
	"encoding/json"

	"github.com/daiverp/daiverp/pkg/severity"
)

// Column keys as returned by the prediction backend
const (
	ColumnCVEID     = "CVE_ID"
	ColumnSystemID  = "System_ID"
	ColumnProduct   = "Product"
	ColumnRiskScore = "DAIVERP_Risk_Score"

	// ColumnSeverity is derived from the risk score and never stored
	ColumnSeverity = "Severity"
)

// Row is one CVE/system risk assessment. Columns the backend adds beyond the
// known ones are kept in Extra so they can still be shown and sorted.
type Row struct {
	CVEID     string            `json:"CVE_ID"`
	SystemID  string            `json:"System_ID"`
	Product   string            `json:"Product"`
	RiskScore string            `json:"DAIVERP_Risk_Score"`
	Extra     map[string]string `json:"-"`
}

func (r Row) Score() float64 {
	return severity.ParseScore(r.RiskScore)
}

func (r Row) Severity() severity.Tier {
	return severity.Classify(r.RiskScore)
}

// Field returns the display value of a column
func (r Row) Field(key string) string {
	switch key {
	case ColumnCVEID:
		return r.CVEID
	case ColumnSystemID:
		return r.SystemID
	case ColumnProduct:
		return r.Product
	case ColumnRiskScore:
		return r.RiskScore
	case ColumnSeverity:
		return r.Severity().String()
	}
	return r.Extra[key]
}

// MarshalJSON flattens Extra next to the known columns, the same shape the
// backend sends.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.flat())
}

func (r Row) MarshalYAML() (interface{}, error) {
	return r.flat(), nil
}

func (r Row) flat() map[string]string {
	m := make(map[string]string, len(r.Extra)+4)
	for k, v := range r.Extra {
		m[k] = v
	}
	m[ColumnCVEID] = r.CVEID
	m[ColumnSystemID] = r.SystemID
	m[ColumnProduct] = r.Product
	m[ColumnRiskScore] = r.RiskScore
	return m
}

func (r *Row) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	*r = FromMap(m)
	return nil
}

// FromMap builds a row out of a decoded JSON object
func FromMap(m map[string]interface{}) Row {
	r := Row{}
	for k, v := range m {
		s := stringify(v)
		switch k {
		case ColumnCVEID:
			r.CVEID = s
		case ColumnSystemID:
			r.SystemID = s
		case ColumnProduct:
			r.Product = s
		case ColumnRiskScore:
			r.RiskScore = s
		default:
			if r.Extra == nil {
				r.Extra = map[string]string{}
			}
			r.Extra[k] = s
		}
	}
	return r
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Products lists the distinct products of rows in first seen order
func Products(rows []Row) []string {
	seen := map[string]bool{}
	products := []string{}

	for _, r := range rows {
		if seen[r.Product] {
			continue
		}
		seen[r.Product] = true
		products = append(products, r.Product)
	}

	return products
}
