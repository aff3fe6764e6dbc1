package rfm

import (
	"fmt"
	"strings"
)

// Bin is the tertile a metric value falls into
type Bin int

const (
	Low Bin = iota + 1
	Mid
	High
)

// String returns the single-letter code used in segment codes
func (b Bin) String() string {
	switch b {
	case Low:
		return "L"
	case Mid:
		return "M"
	case High:
		return "H"
	default:
		return "?"
	}
}

// MarshalText implements encoding.TextMarshaler
func (b Bin) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func parseBin(s string) (Bin, bool) {
	switch s {
	case "L":
		return Low, true
	case "M":
		return Mid, true
	case "H":
		return High, true
	default:
		return 0, false
	}
}

// SegmentName is the business name of a segment
type SegmentName string

const (
	Champions          SegmentName = "Champions"
	LoyalCustomers     SegmentName = "Loyal Customers"
	PotentialLoyalists SegmentName = "Potential Loyalists"
	AtRisk             SegmentName = "At-Risk"
	Hibernating        SegmentName = "Hibernating"
	Lost               SegmentName = "Lost"
	Other              SegmentName = "Other"
)

// SegmentOrder lists the named segments from most to least valuable.
// Other is not included.
var SegmentOrder = []SegmentName{
	Champions,
	LoyalCustomers,
	PotentialLoyalists,
	AtRisk,
	Hibernating,
	Lost,
}

// Label is the combined recency, frequency and monetary bins of a customer
type Label struct {
	Recency   Bin `json:"recency"`
	Frequency Bin `json:"frequency"`
	Monetary  Bin `json:"monetary"`
}

// Code returns the label as "R{b}_F{b}_M{b}", e.g. "RH_FM_ML"
func (l Label) Code() string {
	return fmt.Sprintf("R%s_F%s_M%s", l.Recency, l.Frequency, l.Monetary)
}

// Name returns the segment name for the label, or Other when unmapped
func (l Label) Name() SegmentName {
	if name, ok := segmentTable[[3]Bin{l.Recency, l.Frequency, l.Monetary}]; ok {
		return name
	}
	return Other
}

// ParseCode parses a code produced by Label.Code
func ParseCode(code string) (Label, bool) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(code)), "_")
	if len(parts) != 3 {
		return Label{}, false
	}

	var bins [3]Bin
	for i, prefix := range []string{"R", "F", "M"} {
		p := parts[i]
		if len(p) != 2 || p[:1] != prefix {
			return Label{}, false
		}
		b, ok := parseBin(p[1:])
		if !ok {
			return Label{}, false
		}
		bins[i] = b
	}
	return Label{Recency: bins[0], Frequency: bins[1], Monetary: bins[2]}, true
}

// ParseSegmentName matches s against the segment names case-insensitively.
// Spaces, dashes and underscores are ignored, so "at_risk" and "AtRisk"
// both resolve to AtRisk. Other does not resolve: the table names every bin
// combination, so no computed customer is ever in it.
func ParseSegmentName(s string) (SegmentName, bool) {
	key := normalizeName(s)
	for _, name := range SegmentOrder {
		if normalizeName(string(name)) == key {
			return name, true
		}
	}
	return "", false
}

// isOther reports whether s names the Other segment
func isOther(s string) bool {
	return normalizeName(s) == normalizeName(string(Other))
}

func normalizeName(s string) string {
	return strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s))
}

// segmentTable maps every (R, F, M) combination to a segment
var segmentTable = map[[3]Bin]SegmentName{
	{High, High, High}: Champions,
	{High, High, Mid}:  Champions,
	{High, Mid, High}:  Champions,

	{High, High, Low}: LoyalCustomers,
	{Mid, High, High}: LoyalCustomers,
	{Mid, High, Mid}:  LoyalCustomers,
	{Low, High, High}: LoyalCustomers,

	{High, Mid, Mid}:  PotentialLoyalists,
	{High, Mid, Low}:  PotentialLoyalists,
	{High, Low, High}: PotentialLoyalists,
	{High, Low, Mid}:  PotentialLoyalists,
	{High, Low, Low}:  PotentialLoyalists,

	{Mid, High, Low}: AtRisk,
	{Mid, Mid, High}: AtRisk,
	{Mid, Mid, Mid}:  AtRisk,
	{Mid, Mid, Low}:  AtRisk,
	{Low, Low, Low}:  AtRisk,

	{Mid, Low, High}: Hibernating,
	{Mid, Low, Mid}:  Hibernating,
	{Mid, Low, Low}:  Hibernating,
	{Low, High, Mid}: Hibernating,
	{Low, High, Low}: Hibernating,
	{Low, Mid, High}: Hibernating,
	{Low, Mid, Mid}:  Hibernating,

	{Low, Mid, Low}:  Lost,
	{Low, Low, High}: Lost,
	{Low, Low, Mid}:  Lost,
}
