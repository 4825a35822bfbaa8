package marketplace

import "fmt"

// Kind selects which upstream endpoint a fetch targets.
type Kind string

const (
	KindProducts Kind = "products"
	KindSales    Kind = "sales"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindProducts, KindSales:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown data kind %q", s)
}

// Page is the uniform shape both upstream responses normalize into.
// Items carry every field the upstream sent, untouched.
type Page struct {
	Items      []map[string]any
	TotalCount int
	PageSize   int
}

// catalogResponse is the offers endpoint shape.
type catalogResponse struct {
	Offers       []map[string]any `json:"offers"`
	TotalResults int              `json:"total_results"`
	PageSize     int              `json:"page_size"`
	PageNumber   int              `json:"page_number"`
}

// salesResponse is the sales endpoint shape.
type salesResponse struct {
	Sales       []map[string]any `json:"sales"`
	PageSummary struct {
		Total    int `json:"total"`
		PageSize int `json:"page_size"`
	} `json:"page_summary"`
}
