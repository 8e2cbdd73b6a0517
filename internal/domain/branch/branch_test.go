package branch

import (
	"testing"
)

const (
	testSiteID      = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	testSiteIDUpper = "7C9E6679-7425-40DE-944B-E07FC1F90AE7"
)

func strOrNil(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		input     Input
		wantSite  string
		wantLocal string
	}{
		{
			name:      "явный site_id",
			input:     Input{SiteID: testSiteID},
			wantSite:  testSiteID,
			wantLocal: "<nil>",
		},
		{
			name:      "site_id имеет приоритет над branch_id",
			input:     Input{SiteID: testSiteID, BranchID: "Centro"},
			wantSite:  testSiteID,
			wantLocal: "<nil>",
		},
		{
			name:      "site_id с подписью",
			input:     Input{SiteID: testSiteID, BranchLabel: "Mall Norte"},
			wantSite:  testSiteID,
			wantLocal: "Mall Norte",
		},
		{
			name:      "branch_id UUID → site_id",
			input:     Input{BranchID: testSiteID},
			wantSite:  testSiteID,
			wantLocal: "<nil>",
		},
		{
			name:      "branch_id UUID с подписью",
			input:     Input{BranchID: testSiteID, BranchLabel: "Mall Norte"},
			wantSite:  testSiteID,
			wantLocal: "Mall Norte",
		},
		{
			name:      "site_id в верхнем регистре",
			input:     Input{SiteID: testSiteIDUpper},
			wantSite:  testSiteID,
			wantLocal: "<nil>",
		},
		{
			name:      "site_id в фигурных скобках",
			input:     Input{SiteID: "{" + testSiteID + "}"},
			wantSite:  testSiteID,
			wantLocal: "<nil>",
		},
		{
			name:      "branch_id в форме urn:uuid:",
			input:     Input{BranchID: "urn:uuid:" + testSiteIDUpper, BranchLabel: "Mall Norte"},
			wantSite:  testSiteID,
			wantLocal: "Mall Norte",
		},
		{
			name:      "branch_id текстом → local",
			input:     Input{BranchID: "Sucursal Centro"},
			wantSite:  "<nil>",
			wantLocal: "Sucursal Centro",
		},
		{
			name:      "branch_label предпочтительнее branch_id",
			input:     Input{BranchID: "centro", BranchLabel: "Sucursal Centro"},
			wantSite:  "<nil>",
			wantLocal: "Sucursal Centro",
		},
		{
			name:      "устаревший local",
			input:     Input{Local: "  Bodega  "},
			wantSite:  "<nil>",
			wantLocal: "Bodega",
		},
		{
			name:      "ничего не задано",
			input:     Input{SiteID: "  ", BranchLabel: ""},
			wantSite:  "<nil>",
			wantLocal: "<nil>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := Resolve(tt.input)
			if got := strOrNil(ref.SiteID); got != tt.wantSite {
				t.Errorf("SiteID = %q, ожидалось %q", got, tt.wantSite)
			}
			if got := strOrNil(ref.Local); got != tt.wantLocal {
				t.Errorf("Local = %q, ожидалось %q", got, tt.wantLocal)
			}
			if ref.Assigned() != (tt.wantSite != "<nil>" || tt.wantLocal != "<nil>") {
				t.Errorf("Assigned() = %v", ref.Assigned())
			}
		})
	}
}

// TestResolve_Idempotent — повторное разрешение того же входа даёт тот же результат.
func TestResolve_Idempotent(t *testing.T) {
	inputs := []Input{
		{SiteID: testSiteID, BranchLabel: "Norte"},
		{BranchID: testSiteID},
		{BranchID: "centro"},
		{},
	}
	for _, in := range inputs {
		a, b := Resolve(in), Resolve(in)
		if strOrNil(a.SiteID) != strOrNil(b.SiteID) || strOrNil(a.Local) != strOrNil(b.Local) {
			t.Errorf("Resolve(%+v) не идемпотентна: %v/%v vs %v/%v", in,
				strOrNil(a.SiteID), strOrNil(a.Local), strOrNil(b.SiteID), strOrNil(b.Local))
		}
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		wantKind  FilterKind
		wantValue string
	}{
		{"пусто", "", FilterNone, ""},
		{"пробелы", "   ", FilterNone, ""},
		{"без точки", "__none__", FilterUnassigned, ""},
		{"site: префикс", "site:" + testSiteID, FilterSite, testSiteID},
		{"site: префикс в верхнем регистре", "SITE:abc", FilterSite, "abc"},
		{"site: без id", "site:", FilterNone, ""},
		{"голый UUID", testSiteID, FilterSite, testSiteID},
		{"UUID в верхнем регистре", testSiteIDUpper, FilterSite, testSiteID},
		{"site: с UUID в верхнем регистре", "site:" + testSiteIDUpper, FilterSite, testSiteID},
		{"site: с urn:uuid:", "site:urn:uuid:" + testSiteID, FilterSite, testSiteID},
		{"UUID в фигурных скобках", "{" + testSiteIDUpper + "}", FilterSite, testSiteID},
		{"текст", "Centro", FilterLocal, "Centro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ParseFilter(tt.token)
			if f.Kind != tt.wantKind {
				t.Errorf("Kind = %v, ожидалось %v", f.Kind, tt.wantKind)
			}
			if f.Value != tt.wantValue {
				t.Errorf("Value = %q, ожидалось %q", f.Value, tt.wantValue)
			}
		})
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{testSiteID, testSiteID},
		{testSiteIDUpper, testSiteID},
		{"urn:uuid:" + testSiteIDUpper, testSiteID},
		{"{" + testSiteID + "}", testSiteID},
		{"Centro", "Centro"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Canonical(tt.in); got != tt.want {
			t.Errorf("Canonical(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}
