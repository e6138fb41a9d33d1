package parser

// ProductID holds the sub-identifiers packed into an exchange product code.
//
// The exchange encodes them at fixed character offsets: the oil identifier is
// the first 10 characters, the delivery basis spans characters 4..14
// (overlapping the oil part), and the delivery type is the trailing 5. This is
// a contractual layout of the source identifier, not something inferred per row.
type ProductID struct {
	OilID           string
	DeliveryBasisID string
	DeliveryTypeID  string
}

// DeriveProductID splits a packed product code into its sub-identifiers.
// Codes shorter than an offset window yield the clamped substring.
func DeriveProductID(code string) ProductID {
	return ProductID{
		OilID:           sliceClamped(code, 0, 10),
		DeliveryBasisID: sliceClamped(code, 4, 14),
		DeliveryTypeID:  lastN(code, 5),
	}
}

func sliceClamped(s string, from, to int) string {
	if from >= len(s) {
		return ""
	}
	if to > len(s) {
		to = len(s)
	}
	return s[from:to]
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
