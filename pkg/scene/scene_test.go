package scene

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFilename(t *testing.T) {
	m, err := ParseFilename("/data/cloud/cloud_2012-08-01_214_terra.tiff")
	if err != nil {
		t.Fatalf("ParseFilename failed: %v", err)
	}
	want := Meta{DOY: "214", Year: "2012", Satellite: "terra", Date: "2012-08-01"}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Meta mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFilenamePadsDOY(t *testing.T) {
	m, err := ParseFilename("truecolor_2020-01-09_9_aqua.tif")
	if err != nil {
		t.Fatalf("ParseFilename failed: %v", err)
	}
	if m.DOY != "009" || m.Date != "2020-01-09" || m.Satellite != "aqua" {
		t.Errorf("Unexpected meta %+v", m)
	}
}

func TestParseFilenameErrors(t *testing.T) {
	for _, name := range []string{"cloud.tif", "cloud_2012_xx_terra.tif", "cloud_2013-01-01_366_terra.tif"} {
		if _, err := ParseFilename(name); err == nil {
			t.Errorf("Expected error for %q", name)
		}
	}
}

func TestResolveDateLeapYear(t *testing.T) {
	got, err := ResolveDate("2012", "366")
	if err != nil {
		t.Fatalf("ResolveDate failed: %v", err)
	}
	if got != "2012-12-31" {
		t.Errorf("Expected 2012-12-31, got %s", got)
	}
}

func TestNames(t *testing.T) {
	n := Names{Prefix: "p_", Date: "2012-08-01", Satellite: "terra"}

	tests := []struct {
		got, want string
	}{
		{n.Properties(), "p_2012-08-01_terra_props.csv"},
		{n.Final(), "2012-08-01_p_terra_final.tif"},
		{n.IceMask(), "2012-08-01_p_ice_mask_bw.tif"},
		{n.Round(3), "2012-08-01_p_identification_round_3.tif"},
		{n.CloudMaskedRGB(), "p_cloud_mask_on_rgb.tif"},
		{n.MaskValues(), "p_mask_values.txt"},
		{Names{}.Final(), "final.tif"},
		{Names{}.Properties(), "props.csv"},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("Expected %s, got %s", tc.want, tc.got)
		}
	}
}
