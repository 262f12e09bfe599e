// Package pointcloud splits depth sensor clouds into points that are certainly static and points
// that may belong to moving objects, and merges the verdict of a dynamic object classifier back
// into a static cloud.
package pointcloud

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Cloud is an ordered set of points in Frame.
type Cloud struct {
	Frame  string
	Points []r3.Vector
}

// Size returns the number of points in the cloud.
func (c Cloud) Size() int {
	return len(c.Points)
}

// Subset returns the points at indices, in that order.
func (c Cloud) Subset(indices []int) Cloud {
	out := Cloud{Frame: c.Frame, Points: make([]r3.Vector, 0, len(indices))}
	for _, i := range indices {
		out.Points = append(out.Points, c.Points[i])
	}
	return out
}

// MetaData returns the bounds of the cloud.
func (c Cloud) MetaData() MetaData {
	meta := NewMetaData()
	for _, p := range c.Points {
		meta.Merge(p)
	}
	return meta
}

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData returns bounds that any point extends.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge extends the bounds to include p.
func (meta *MetaData) Merge(p r3.Vector) {
	meta.MinX = math.Min(meta.MinX, p.X)
	meta.MinY = math.Min(meta.MinY, p.Y)
	meta.MinZ = math.Min(meta.MinZ, p.Z)
	meta.MaxX = math.Max(meta.MaxX, p.X)
	meta.MaxY = math.Max(meta.MaxY, p.Y)
	meta.MaxZ = math.Max(meta.MaxZ, p.Z)
}

// isFinite reports whether all coordinates of p are numbers.
func isFinite(p r3.Vector) bool {
	for _, v := range []float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ReadPoints reads one x,y,z point per CSV record.
func ReadPoints(r io.Reader, frame string) (Cloud, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	cloud := Cloud{Frame: frame}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return cloud, nil
		}
		if err != nil {
			return Cloud{}, errors.Wrap(err, "reading points")
		}
		values, err := parseFloats(record)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return Cloud{}, errors.Wrapf(err, "point on line %d", line)
		}
		cloud.Points = append(cloud.Points, r3.Vector{X: values[0], Y: values[1], Z: values[2]})
	}
}

func parseFloats(record []string) ([]float64, error) {
	values := make([]float64, len(record))
	for i, field := range record {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}
