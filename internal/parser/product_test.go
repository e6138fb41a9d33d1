package parser

import "testing"

func TestDeriveProductID(t *testing.T) {
	cases := []struct {
		name  string
		code  string
		oil   string
		basis string
		typ   string
	}{
		{
			name:  "full length code",
			code:  "A100ANK060F",
			oil:   "A100ANK060",
			basis: "ANK060F",
			typ:   "K060F",
		},
		{
			name:  "another station",
			code:  "A100NVY060F",
			oil:   "A100NVY060",
			basis: "NVY060F",
			typ:   "Y060F",
		},
		{
			name:  "exactly ten characters",
			code:  "A100ANK060",
			oil:   "A100ANK060",
			basis: "ANK060",
			typ:   "NK060",
		},
		{
			name:  "shorter than basis offset",
			code:  "ABC",
			oil:   "ABC",
			basis: "",
			typ:   "ABC",
		},
		{
			name:  "empty code",
			code:  "",
			oil:   "",
			basis: "",
			typ:   "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := DeriveProductID(tc.code)
			if id.OilID != tc.oil {
				t.Fatalf("OilID: expected %q, got %q", tc.oil, id.OilID)
			}
			if id.DeliveryBasisID != tc.basis {
				t.Fatalf("DeliveryBasisID: expected %q, got %q", tc.basis, id.DeliveryBasisID)
			}
			if id.DeliveryTypeID != tc.typ {
				t.Fatalf("DeliveryTypeID: expected %q, got %q", tc.typ, id.DeliveryTypeID)
			}
		})
	}
}
