package ros

import (
	"encoding/binary"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/timoonboru/cartographer-new/pointcloud"
)

// ErrMalformedMessage is returned for messages whose fields contradict each other.
var ErrMalformedMessage = errors.New("malformed message")

func validateScanGeometry(angleMin, angleMax, angleIncrement, rangeMin, rangeMax float64) error {
	if rangeMin < 0 {
		return errors.Wrapf(ErrMalformedMessage, "range_min %v is negative", rangeMin)
	}
	if rangeMax < rangeMin {
		return errors.Wrapf(ErrMalformedMessage, "range_max %v is below range_min %v", rangeMax, rangeMin)
	}
	if angleIncrement > 0 && angleMax <= angleMin {
		return errors.Wrapf(ErrMalformedMessage,
			"positive angle_increment needs angle_max %v above angle_min %v", angleMax, angleMin)
	}
	if angleIncrement < 0 && angleMin <= angleMax {
		return errors.Wrapf(ErrMalformedMessage,
			"negative angle_increment needs angle_min %v above angle_max %v", angleMin, angleMax)
	}
	return nil
}

type beam struct {
	index     int
	r         float64
	intensity float64
}

func scanToPointCloud(angleMin, angleIncrement, timeIncrement, rangeMin, rangeMax float64, beams []beam,
) pointcloud.PointCloudWithIntensities {
	var out pointcloud.PointCloudWithIntensities
	for _, b := range beams {
		if b.r < rangeMin || b.r > rangeMax || math.IsNaN(b.r) {
			continue
		}
		angle := angleMin + float64(b.index)*angleIncrement
		out.Points = append(out.Points, pointcloud.TimedPoint{
			Position: r3.Vector{X: b.r * math.Cos(angle), Y: b.r * math.Sin(angle)},
			Time:     float64(b.index) * timeIncrement,
		})
		out.Intensities = append(out.Intensities, b.intensity)
	}
	return out
}

// ToPointCloudWithIntensities converts a planar scan into points in the scanner frame. Returns
// outside [range_min, range_max] are dropped. Each point is timed relative to the scan start and
// intensities default to zero when the scan reports none.
func (msg *LaserScan) ToPointCloudWithIntensities() (pointcloud.PointCloudWithIntensities, error) {
	if err := validateScanGeometry(msg.AngleMin, msg.AngleMax, msg.AngleIncrement, msg.RangeMin, msg.RangeMax); err != nil {
		return pointcloud.PointCloudWithIntensities{}, err
	}
	if len(msg.Intensities) != 0 && len(msg.Intensities) != len(msg.Ranges) {
		return pointcloud.PointCloudWithIntensities{}, errors.Wrapf(ErrMalformedMessage,
			"got %d intensities for %d ranges", len(msg.Intensities), len(msg.Ranges))
	}
	beams := make([]beam, 0, len(msg.Ranges))
	for i, r := range msg.Ranges {
		b := beam{index: i, r: r}
		if len(msg.Intensities) != 0 {
			b.intensity = msg.Intensities[i]
		}
		beams = append(beams, b)
	}
	return scanToPointCloud(msg.AngleMin, msg.AngleIncrement, msg.TimeIncrement, msg.RangeMin, msg.RangeMax, beams), nil
}

// ToPointCloudWithIntensities converts a multi-echo scan using the first echo of every beam.
// Beams without echoes are skipped.
func (msg *MultiEchoLaserScan) ToPointCloudWithIntensities() (pointcloud.PointCloudWithIntensities, error) {
	if err := validateScanGeometry(msg.AngleMin, msg.AngleMax, msg.AngleIncrement, msg.RangeMin, msg.RangeMax); err != nil {
		return pointcloud.PointCloudWithIntensities{}, err
	}
	if len(msg.Intensities) != 0 && len(msg.Intensities) != len(msg.Ranges) {
		return pointcloud.PointCloudWithIntensities{}, errors.Wrapf(ErrMalformedMessage,
			"got %d intensity echoes for %d range echoes", len(msg.Intensities), len(msg.Ranges))
	}
	beams := make([]beam, 0, len(msg.Ranges))
	for i, echo := range msg.Ranges {
		if len(echo.Echoes) == 0 {
			continue
		}
		b := beam{index: i, r: echo.Echoes[0]}
		if len(msg.Intensities) != 0 && len(msg.Intensities[i].Echoes) != 0 {
			b.intensity = msg.Intensities[i].Echoes[0]
		}
		beams = append(beams, b)
	}
	return scanToPointCloud(msg.AngleMin, msg.AngleIncrement, msg.TimeIncrement, msg.RangeMin, msg.RangeMax, beams), nil
}

type fieldReader func(data []byte, order binary.ByteOrder) float64

func readerFor(datatype uint8) (fieldReader, int, error) {
	switch datatype {
	case PointFieldFloat32:
		return func(data []byte, order binary.ByteOrder) float64 {
			return float64(math.Float32frombits(order.Uint32(data)))
		}, 4, nil
	case PointFieldFloat64:
		return func(data []byte, order binary.ByteOrder) float64 {
			return math.Float64frombits(order.Uint64(data))
		}, 8, nil
	default:
		return nil, 0, errors.Wrapf(ErrMalformedMessage, "unsupported point field datatype %d", datatype)
	}
}

// ToTimedPointCloud extracts the x, y and z fields of every point. Points carry no per-point time.
// Points with a NaN coordinate are skipped.
func (msg *PointCloud2) ToTimedPointCloud() (pointcloud.TimedPointCloud, error) {
	var order binary.ByteOrder = binary.LittleEndian
	if msg.IsBigEndian {
		order = binary.BigEndian
	}

	type axis struct {
		offset int
		size   int
		read   fieldReader
	}
	axes := map[string]*axis{"x": nil, "y": nil, "z": nil}
	for _, f := range msg.Fields {
		if _, ok := axes[f.Name]; !ok {
			continue
		}
		read, size, err := readerFor(f.Datatype)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", f.Name)
		}
		axes[f.Name] = &axis{offset: int(f.Offset), size: size, read: read}
	}
	for name, a := range axes {
		if a == nil {
			return nil, errors.Wrapf(ErrMalformedMessage, "point cloud has no %s field", name)
		}
		if a.offset+a.size > int(msg.PointStep) {
			return nil, errors.Wrapf(ErrMalformedMessage, "field %s overruns point_step %d", name, msg.PointStep)
		}
	}

	count := int(msg.Width) * int(msg.Height)
	rowStep := int(msg.RowStep)
	if rowStep == 0 {
		rowStep = int(msg.Width) * int(msg.PointStep)
	}
	if int(msg.Height) > 0 && (int(msg.Height)-1)*rowStep+int(msg.Width)*int(msg.PointStep) > len(msg.Data) {
		return nil, errors.Wrapf(ErrMalformedMessage, "data holds %d bytes, too few for %dx%d points",
			len(msg.Data), msg.Width, msg.Height)
	}

	out := make(pointcloud.TimedPointCloud, 0, count)
	for row := 0; row < int(msg.Height); row++ {
		for col := 0; col < int(msg.Width); col++ {
			point := msg.Data[row*rowStep+col*int(msg.PointStep):]
			p := r3.Vector{
				X: axes["x"].read(point[axes["x"].offset:], order),
				Y: axes["y"].read(point[axes["y"].offset:], order),
				Z: axes["z"].read(point[axes["z"].offset:], order),
			}
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
				continue
			}
			out = append(out, pointcloud.TimedPoint{Position: p})
		}
	}
	return out, nil
}
