package features

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Columns is the header of the properties table. The first, unnamed column
// is the row index.
var Columns = []string{
	"", "label", "area", "convex_area",
	"min_row", "min_col", "max_row", "max_col",
	"row_centroid", "col_centroid",
	"major_axis_length", "minor_axis_length",
	"orientation", "perimeter", "intensity_mean",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (r Region) record(index int) []string {
	return []string{
		strconv.Itoa(index),
		strconv.FormatInt(int64(r.Label), 10),
		strconv.Itoa(r.Area),
		strconv.Itoa(r.ConvexArea),
		strconv.Itoa(r.MinRow),
		strconv.Itoa(r.MinCol),
		strconv.Itoa(r.MaxRow),
		strconv.Itoa(r.MaxCol),
		formatFloat(r.RowCentroid),
		formatFloat(r.ColCentroid),
		formatFloat(r.MajorAxisLength),
		formatFloat(r.MinorAxisLength),
		formatFloat(r.Orientation),
		formatFloat(r.Perimeter),
		formatFloat(r.IntensityMean),
	}
}

// WriteCSV writes the regions as a table with the Columns header.
func WriteCSV(w io.Writer, regions []Region) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i, r := range regions {
		if err := cw.Write(r.record(i)); err != nil {
			return errors.Wrapf(err, "write label %d", r.Label)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush properties")
}

// SaveCSV writes the regions to path.
func SaveCSV(path string, regions []Region) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create properties file")
	}
	if err := WriteCSV(f, regions); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close properties file")
}
