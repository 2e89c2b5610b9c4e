package ros

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestTimeConversion(t *testing.T) {
	test.That(t, Time{}.Time().IsZero(), test.ShouldBeTrue)
	stamp := Time{Secs: 1700000000, Nsecs: 250000000}.Time()
	test.That(t, stamp.Equal(time.Unix(1700000000, 250000000)), test.ShouldBeTrue)
}

func TestLaserScanToPointCloud(t *testing.T) {
	scan := LaserScan{
		AngleMin:       0,
		AngleMax:       math.Pi / 2,
		AngleIncrement: math.Pi / 4,
		TimeIncrement:  0.01,
		RangeMin:       0.5,
		RangeMax:       10,
		Ranges:         []float64{1, 0.1, 2, 11, math.NaN()},
		Intensities:    []float64{5, 6, 7, 8, 9},
	}
	pc, err := scan.ToPointCloudWithIntensities()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(pc.Points), test.ShouldEqual, 2)
	test.That(t, pc.Intensities, test.ShouldResemble, []float64{5, 7})

	test.That(t, pc.Points[0].Position.X, test.ShouldAlmostEqual, 1)
	test.That(t, pc.Points[0].Position.Y, test.ShouldAlmostEqual, 0)
	test.That(t, pc.Points[0].Time, test.ShouldAlmostEqual, 0)

	// third beam points straight along +y
	test.That(t, pc.Points[1].Position.X, test.ShouldAlmostEqual, 0)
	test.That(t, pc.Points[1].Position.Y, test.ShouldAlmostEqual, 2)
	test.That(t, pc.Points[1].Time, test.ShouldAlmostEqual, 0.02)

	scan.Intensities = nil
	pc, err = scan.ToPointCloudWithIntensities()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.Intensities, test.ShouldResemble, []float64{0, 0})
}

func TestLaserScanValidation(t *testing.T) {
	valid := LaserScan{AngleMin: -1, AngleMax: 1, AngleIncrement: 0.1, RangeMin: 0, RangeMax: 5}

	bad := valid
	bad.RangeMin = -1
	_, err := bad.ToPointCloudWithIntensities()
	test.That(t, errors.Is(err, ErrMalformedMessage), test.ShouldBeTrue)

	bad = valid
	bad.RangeMax = -0.5
	bad.RangeMin = 0
	_, err = bad.ToPointCloudWithIntensities()
	test.That(t, errors.Is(err, ErrMalformedMessage), test.ShouldBeTrue)

	bad = valid
	bad.AngleIncrement = -0.1
	_, err = bad.ToPointCloudWithIntensities()
	test.That(t, errors.Is(err, ErrMalformedMessage), test.ShouldBeTrue)

	reversed := valid
	reversed.AngleMin, reversed.AngleMax, reversed.AngleIncrement = 1, -1, -0.1
	_, err = reversed.ToPointCloudWithIntensities()
	test.That(t, err, test.ShouldBeNil)

	bad = valid
	bad.Ranges = []float64{1, 2}
	bad.Intensities = []float64{1}
	_, err = bad.ToPointCloudWithIntensities()
	test.That(t, errors.Is(err, ErrMalformedMessage), test.ShouldBeTrue)
}

func TestMultiEchoLaserScanToPointCloud(t *testing.T) {
	scan := MultiEchoLaserScan{
		AngleMin:       0,
		AngleMax:       math.Pi,
		AngleIncrement: math.Pi / 2,
		TimeIncrement:  0.1,
		RangeMax:       10,
		Ranges:         []LaserEcho{{Echoes: []float64{3, 4}}, {}, {Echoes: []float64{2}}},
		Intensities:    []LaserEcho{{Echoes: []float64{1, 2}}, {}, {}},
	}
	pc, err := scan.ToPointCloudWithIntensities()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(pc.Points), test.ShouldEqual, 2)
	test.That(t, pc.Points[0].Position.X, test.ShouldAlmostEqual, 3)
	test.That(t, pc.Points[1].Position.X, test.ShouldAlmostEqual, -2)
	test.That(t, pc.Points[1].Time, test.ShouldAlmostEqual, 0.2)
	test.That(t, pc.Intensities, test.ShouldResemble, []float64{1, 0})
}

func packedCloud(order binary.ByteOrder, points [][3]float32) PointCloud2 {
	const step = 16
	data := make([]byte, 0, step*len(points))
	for _, p := range points {
		buf := make([]byte, step)
		for i, v := range p {
			order.PutUint32(buf[i*4:], math.Float32bits(v))
		}
		data = append(data, buf...)
	}
	return PointCloud2{
		Height: 1,
		Width:  uint32(len(points)),
		Fields: []PointField{
			{Name: "x", Offset: 0, Datatype: PointFieldFloat32, Count: 1},
			{Name: "y", Offset: 4, Datatype: PointFieldFloat32, Count: 1},
			{Name: "z", Offset: 8, Datatype: PointFieldFloat32, Count: 1},
			{Name: "intensity", Offset: 12, Datatype: PointFieldFloat32, Count: 1},
		},
		IsBigEndian: order == binary.BigEndian,
		PointStep:   step,
		RowStep:     step * uint32(len(points)),
		Data:        data,
	}
}

func TestPointCloud2ToTimedPointCloud(t *testing.T) {
	points := [][3]float32{{1, 2, 3}, {float32(math.NaN()), 0, 0}, {-4, 5.5, 0}}
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		msg := packedCloud(order, points)
		pc, err := msg.ToTimedPointCloud()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(pc), test.ShouldEqual, 2)
		test.That(t, pc[0].Position.X, test.ShouldEqual, 1)
		test.That(t, pc[0].Position.Z, test.ShouldEqual, 3)
		test.That(t, pc[1].Position.Y, test.ShouldEqual, 5.5)
		test.That(t, pc[1].Time, test.ShouldEqual, 0)
	}
}

func TestPointCloud2Validation(t *testing.T) {
	msg := packedCloud(binary.LittleEndian, [][3]float32{{1, 2, 3}})
	msg.Fields = msg.Fields[:2]
	_, err := msg.ToTimedPointCloud()
	test.That(t, errors.Is(err, ErrMalformedMessage), test.ShouldBeTrue)

	msg = packedCloud(binary.LittleEndian, [][3]float32{{1, 2, 3}})
	msg.Fields[0].Datatype = PointFieldUint16
	_, err = msg.ToTimedPointCloud()
	test.That(t, errors.Is(err, ErrMalformedMessage), test.ShouldBeTrue)

	msg = packedCloud(binary.LittleEndian, [][3]float32{{1, 2, 3}})
	msg.Width = 2
	_, err = msg.ToTimedPointCloud()
	test.That(t, errors.Is(err, ErrMalformedMessage), test.ShouldBeTrue)

	msg = packedCloud(binary.LittleEndian, [][3]float32{{1, 2, 3}})
	msg.PointStep = 10
	_, err = msg.ToTimedPointCloud()
	test.That(t, errors.Is(err, ErrMalformedMessage), test.ShouldBeTrue)
}

func TestTransformConversion(t *testing.T) {
	tf := Transform{
		Translation: Vector3{X: 1, Y: 2, Z: 3},
		Rotation:    Quaternion{W: math.Cos(math.Pi / 4), Z: math.Sin(math.Pi / 4)},
	}
	p := tf.RigidTransform().Apply(Vector3{X: 1}.R3())
	test.That(t, p.X, test.ShouldAlmostEqual, 1)
	test.That(t, p.Y, test.ShouldAlmostEqual, 3)
	test.That(t, p.Z, test.ShouldAlmostEqual, 3)
}
