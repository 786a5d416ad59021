// Package scene parses scene metadata out of imagery file names and names
// the files written for a scene.
package scene

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Meta identifies a scene, parsed from names such as
// cloud_2012-08-01_214_terra.tiff.
type Meta struct {
	// DOY is the day of year, zero-padded to three digits
	DOY string

	Year string

	Satellite string

	// Date is the YYYY-MM-DD date resolved from Year and DOY, empty when
	// they cannot be resolved
	Date string
}

// ParseFilename extracts the scene metadata from a file name. The day of
// year is the second to last underscore-separated field, the year is the
// part of the second field before the first dash and the satellite is the
// last field without its extension.
func ParseFilename(path string) (Meta, error) {
	name := filepath.Base(path)
	fields := strings.Split(name, "_")
	if len(fields) < 3 {
		return Meta{}, errors.Errorf("scene file name %q has fewer than 3 fields", name)
	}

	m := Meta{
		DOY:       zeroPad(fields[len(fields)-2], 3),
		Year:      strings.SplitN(fields[1], "-", 2)[0],
		Satellite: strings.SplitN(fields[len(fields)-1], ".", 2)[0],
	}
	date, err := ResolveDate(m.Year, m.DOY)
	if err != nil {
		return m, errors.Wrapf(err, "scene %q", name)
	}
	m.Date = date
	return m, nil
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// ResolveDate converts a year and day of year to YYYY-MM-DD.
func ResolveDate(year, doy string) (string, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return "", errors.Wrapf(err, "invalid year %q", year)
	}
	d, err := strconv.Atoi(doy)
	if err != nil {
		return "", errors.Wrapf(err, "invalid day of year %q", doy)
	}
	start := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	date := start.AddDate(0, 0, d-1)
	if d < 1 || date.Year() != y {
		return "", errors.Errorf("day of year %d out of range for %d", d, y)
	}
	return date.Format("2006-01-02"), nil
}

// Names builds the output file names of a scene.
type Names struct {
	// Prefix is prepended to every file name
	Prefix string

	// Date, when set, leads the georeferenced outputs
	Date string

	Satellite string
}

// NamesFor returns the output names of a parsed scene.
func NamesFor(m Meta, prefix string) Names {
	return Names{Prefix: prefix, Date: m.Date, Satellite: m.Satellite}
}

func (n Names) dated(name string) string {
	if n.Date != "" {
		return n.Date + "_" + name
	}
	return name
}

func (n Names) satellite(name string) string {
	if n.Satellite != "" {
		return n.Satellite + "_" + name
	}
	return name
}

// Properties is the floe properties table.
func (n Names) Properties() string {
	return n.Prefix + n.dated(n.satellite("props.csv"))
}

// Final is the consolidated label image.
func (n Names) Final() string {
	return n.dated(n.Prefix + n.satellite("final.tif"))
}

// IceMask is the binary ice mask.
func (n Names) IceMask() string {
	return n.dated(n.Prefix + "ice_mask_bw.tif")
}

// Round is the filtered watershed of scale pass r.
func (n Names) Round(r int) string {
	return n.dated(fmt.Sprintf("%sidentification_round_%d.tif", n.Prefix, r))
}

func (n Names) CloudMaskedRGB() string     { return n.Prefix + "cloud_mask_on_rgb.tif" }
func (n Names) LandCloudMaskedRGB() string { return n.Prefix + "land_cloud_mask_on_rgb.tif" }
func (n Names) Histogram() string          { return n.Prefix + "ice_mask_hist.png" }
func (n Names) MaskValues() string         { return n.Prefix + "mask_values.txt" }
func (n Names) Quicklook() string          { return n.dated(n.Prefix + "final_quicklook.png") }
