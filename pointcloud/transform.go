package pointcloud

import (
	"encoding/csv"
	"io"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// Transform is a rigid 3D transform: a rotation followed by a translation.
type Transform struct {
	Translation r3.Vector
	Rotation    quat.Number
}

// IdentityTransform leaves points where they are.
func IdentityTransform() Transform {
	return Transform{Rotation: quat.Number{Real: 1}}
}

// NewTransform returns the transform for translation x,y,z and rotation quaternion qx,qy,qz,qw.
// The quaternion is normalized.
func NewTransform(x, y, z, qx, qy, qz, qw float64) (Transform, error) {
	q := quat.Number{Real: qw, Imag: qx, Jmag: qy, Kmag: qz}
	norm := quat.Abs(q)
	if norm < 1e-9 {
		return Transform{}, errors.New("rotation quaternion has zero length")
	}
	return Transform{
		Translation: r3.Vector{X: x, Y: y, Z: z},
		Rotation:    quat.Scale(1/norm, q),
	}, nil
}

// Apply returns p moved by the transform.
func (t Transform) Apply(p r3.Vector) r3.Vector {
	rotated := quat.Mul(quat.Mul(t.Rotation, quat.Number{Imag: p.X, Jmag: p.Y, Kmag: p.Z}), quat.Conj(t.Rotation))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}.Add(t.Translation)
}

// LoadSensorTransform reads the sensor to base transform from CSV records of the form
// x,y,z,qx,qy,qz,qw. When there are several records the last one is used.
func LoadSensorTransform(r io.Reader) (Transform, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 7
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	records, err := reader.ReadAll()
	if err != nil {
		return Transform{}, errors.Wrap(err, "reading sensor transform")
	}
	if len(records) == 0 {
		return Transform{}, errors.New("sensor transform is empty")
	}
	v, err := parseFloats(records[len(records)-1])
	if err != nil {
		return Transform{}, errors.Wrap(err, "parsing sensor transform")
	}
	return NewTransform(v[0], v[1], v[2], v[3], v[4], v[5], v[6])
}
