package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/edaniels/gobag/rosbag"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"github.com/timoonboru/cartographer-new/pointcloud"
	"github.com/timoonboru/cartographer-new/referenceframe"
	"github.com/timoonboru/cartographer-new/ros"
	"github.com/timoonboru/cartographer-new/sensorbridge"
	"github.com/timoonboru/cartographer-new/spatialmath"
)

// Topic message types.
const (
	topicOdometry    = "odometry"
	topicImu         = "imu"
	topicLaserScan   = "laser_scan"
	topicMultiEcho   = "multi_echo_laser_scan"
	topicPointCloud2 = "point_cloud2"
	defaultTFTopic   = "/tf"
	defaultTFStatic  = "/tf_static"
)

type topicConfig struct {
	Topic    string `json:"topic"`
	Type     string `json:"type"`
	SensorID string `json:"sensor_id"`
}

type vectorConfig struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type rotationConfig struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type staticTransformConfig struct {
	Parent      string          `json:"parent"`
	Child       string          `json:"child"`
	Translation vectorConfig    `json:"translation"`
	Rotation    *rotationConfig `json:"rotation,omitempty"`
}

func (st staticTransformConfig) transform() spatialmath.RigidTransform {
	rotation := spatialmath.IdentityQuaternion()
	if st.Rotation != nil {
		rotation = spatialmath.NewQuaternion(st.Rotation.W, st.Rotation.X, st.Rotation.Y, st.Rotation.Z).Normalize()
	}
	return spatialmath.NewRigidTransform(
		r3.Vector{X: st.Translation.X, Y: st.Translation.Y, Z: st.Translation.Z}, rotation)
}

type replayConfig struct {
	Bridge           map[string]interface{}  `json:"bridge"`
	Topics           []topicConfig           `json:"topics"`
	StaticTransforms []staticTransformConfig `json:"static_transforms"`
	TFTopic          string                  `json:"tf_topic"`
	TFStaticTopic    string                  `json:"tf_static_topic"`
}

func readReplayConfig(path string) (*replayConfig, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open replay config")
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	return parseReplayConfig(f)
}

func parseReplayConfig(r io.Reader) (*replayConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	conf := &replayConfig{TFTopic: defaultTFTopic, TFStaticTopic: defaultTFStatic}
	if err := json5.Unmarshal(data, conf); err != nil {
		return nil, errors.Wrap(err, "cannot parse replay config")
	}
	if err := conf.Validate("replay"); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate ensures all parts of the config are valid.
func (conf *replayConfig) Validate(path string) error {
	var err error
	if len(conf.Topics) == 0 {
		err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, "topics"))
	}
	seen := map[string]bool{}
	for idx, topic := range conf.Topics {
		topicPath := fmt.Sprintf("%s.topics.%d", path, idx)
		if topic.Topic == "" {
			err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(topicPath, "topic"))
		}
		if seen[ros.TopicKey(topic.Topic)] {
			err = multierr.Append(err, goutils.NewConfigValidationError(topicPath,
				errors.Errorf("topic %q is listed more than once", topic.Topic)))
		}
		seen[ros.TopicKey(topic.Topic)] = true
		switch topic.Type {
		case topicOdometry, topicImu, topicLaserScan, topicMultiEcho, topicPointCloud2:
		default:
			err = multierr.Append(err, goutils.NewConfigValidationError(topicPath,
				errors.Errorf("unknown topic type %q", topic.Type)))
		}
	}
	for idx, st := range conf.StaticTransforms {
		stPath := fmt.Sprintf("%s.static_transforms.%d", path, idx)
		if st.Parent == "" {
			err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(stPath, "parent"))
		}
		if st.Child == "" {
			err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(stPath, "child"))
		}
	}
	return err
}

func (t topicConfig) sensorID() string {
	if t.SensorID != "" {
		return t.SensorID
	}
	return t.Topic
}

// event is one message to deliver, ordered by stamp.
type event struct {
	stamp   time.Time
	deliver func(ctx context.Context) error
}

type eventSource struct {
	rb     *rosbag.RosBag
	bridge *sensorbridge.SensorBridge
}

func decodeEvents[T any](
	src *eventSource,
	topic string,
	stampOf func(*T) time.Time,
	handle func(ctx context.Context, msg *T) error,
) ([]event, error) {
	msgs, err := ros.DecodeTopic[T](src.rb, topic)
	if err != nil {
		return nil, err
	}
	events := make([]event, 0, len(msgs))
	for i := range msgs {
		msg := &msgs[i].Data
		events = append(events, event{
			stamp:   stampOf(msg),
			deliver: func(ctx context.Context) error { return handle(ctx, msg) },
		})
	}
	return events, nil
}

func (src *eventSource) topicEvents(topic topicConfig) ([]event, error) {
	id := topic.sensorID()
	switch topic.Type {
	case topicOdometry:
		return decodeEvents(src, topic.Topic,
			func(m *ros.Odometry) time.Time { return m.Header.Stamp.Time() },
			func(ctx context.Context, m *ros.Odometry) error { return src.bridge.HandleOdometryMessage(ctx, id, m) })
	case topicImu:
		return decodeEvents(src, topic.Topic,
			func(m *ros.Imu) time.Time { return m.Header.Stamp.Time() },
			func(ctx context.Context, m *ros.Imu) error { return src.bridge.HandleImuMessage(ctx, id, m) })
	case topicLaserScan:
		return decodeEvents(src, topic.Topic,
			func(m *ros.LaserScan) time.Time { return m.Header.Stamp.Time() },
			func(ctx context.Context, m *ros.LaserScan) error { return src.bridge.HandleLaserScanMessage(ctx, id, m) })
	case topicMultiEcho:
		return decodeEvents(src, topic.Topic,
			func(m *ros.MultiEchoLaserScan) time.Time { return m.Header.Stamp.Time() },
			func(ctx context.Context, m *ros.MultiEchoLaserScan) error {
				return src.bridge.HandleMultiEchoLaserScanMessage(ctx, id, m)
			})
	case topicPointCloud2:
		return decodeEvents(src, topic.Topic,
			func(m *ros.PointCloud2) time.Time { return m.Header.Stamp.Time() },
			func(ctx context.Context, m *ros.PointCloud2) error { return src.bridge.HandlePointCloud2Message(ctx, id, m) })
	default:
		return nil, errors.Errorf("unknown topic type %q", topic.Type)
	}
}

// loadTransforms builds a buffer holding every configured and recorded transform. The cache spans
// the whole recording so scans can be resolved at any time of the bag.
func loadTransforms(rb *rosbag.RosBag, conf *replayConfig, logger golog.Logger) (*referenceframe.Buffer, error) {
	recorded := map[string][]ros.TransformStamped{}
	var earliest, latest time.Time
	for _, topic := range []string{conf.TFStaticTopic, conf.TFTopic} {
		msgs, err := ros.DecodeTopic[ros.TFMessage](rb, topic)
		if err != nil {
			logger.Debugw("no transforms recorded", "topic", topic, "error", err)
			continue
		}
		for _, msg := range msgs {
			for _, tf := range msg.Data.Transforms {
				recorded[topic] = append(recorded[topic], tf)
				stamp := tf.Header.Stamp.Time()
				if topic == conf.TFStaticTopic || stamp.IsZero() {
					continue
				}
				if earliest.IsZero() || stamp.Before(earliest) {
					earliest = stamp
				}
				if stamp.After(latest) {
					latest = stamp
				}
			}
		}
	}

	buffer := referenceframe.NewBuffer(latest.Sub(earliest) + time.Second)
	for _, st := range conf.StaticTransforms {
		if err := buffer.SetStaticTransform(st.Parent, st.Child, st.transform()); err != nil {
			return nil, errors.Wrapf(err, "static transform %s -> %s", st.Child, st.Parent)
		}
	}
	for _, tf := range recorded[conf.TFStaticTopic] {
		if err := buffer.SetStaticTransform(tf.Header.FrameID, tf.ChildFrameID, tf.Transform.RigidTransform()); err != nil {
			logger.Warnw("ignoring static transform", "parent", tf.Header.FrameID, "child", tf.ChildFrameID, "error", err)
		}
	}
	for _, tf := range recorded[conf.TFTopic] {
		err := buffer.SetTransform(tf.Header.FrameID, tf.ChildFrameID, referenceframe.StampedTransform{
			Time:      tf.Header.Stamp.Time(),
			Transform: tf.Transform.RigidTransform(),
		})
		if err != nil {
			logger.Warnw("ignoring transform", "parent", tf.Header.FrameID, "child", tf.ChildFrameID, "error", err)
		}
	}
	return buffer, nil
}

// mergeEvents orders events by stamp, keeping the topic order for equal stamps.
func mergeEvents(groups ...[]event) []event {
	var all []event
	for _, group := range groups {
		all = append(all, group...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].stamp.Before(all[j].stamp) })
	return all
}

// summaryBuilder counts what the bridge forwards.
type summaryBuilder struct {
	positions    int
	orientations int
	rangePoints  stats.Float64Data
	lastPose     sensorbridge.RelativePose2D
}

func (sb *summaryBuilder) AddPositionObservation(_ string, _ time.Time, pose sensorbridge.RelativePose2D) {
	sb.positions++
	sb.lastPose = pose
}

func (sb *summaryBuilder) AddOrientationObservation(_ string, _ time.Time, _, _ r3.Vector, _ spatialmath.Quaternion) {
	sb.orientations++
}

func (sb *summaryBuilder) AddRangeObservation(_ string, _ time.Time, _ r3.Vector, points pointcloud.TimedPointCloud) {
	sb.rangePoints = append(sb.rangePoints, float64(len(points)))
}

type replaySummary struct {
	Messages     int
	Stats        sensorbridge.Stats
	MeanPoints   float64
	MaxPoints    float64
	MedianPoints float64
	LastPose     sensorbridge.RelativePose2D
}

// String prints out a table of what the replay forwarded.
func (s replaySummary) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"messages replayed", s.Messages},
		{"position observations", s.Stats.PositionObservations},
		{"orientation observations", s.Stats.OrientationObservations},
		{"range observations", s.Stats.RangeObservations},
		{"dropped observations", s.Stats.DroppedObservations},
		{"points per range observation", fmt.Sprintf("mean %.1f, median %.1f, max %.0f", s.MeanPoints, s.MedianPoints, s.MaxPoints)},
		{"last relative position", fmt.Sprintf("X:%.3f, Y:%.3f", s.LastPose.X, s.LastPose.Y)},
	})
	return t.Render()
}

func (s replaySummary) print(w io.Writer) {
	fmt.Fprintln(w, s.String())
}

func (sb *summaryBuilder) summarize(messages int, bridgeStats sensorbridge.Stats) replaySummary {
	summary := replaySummary{Messages: messages, Stats: bridgeStats, LastPose: sb.lastPose}
	if len(sb.rangePoints) == 0 {
		return summary
	}
	// errors are only returned for empty input
	summary.MeanPoints, _ = stats.Mean(sb.rangePoints)
	summary.MaxPoints, _ = stats.Max(sb.rangePoints)
	summary.MedianPoints, _ = stats.Median(sb.rangePoints)
	return summary
}

func replayBag(ctx context.Context, bagPath string, conf *replayConfig, logger golog.Logger) (replaySummary, error) {
	rb, err := ros.ReadBag(bagPath)
	if err != nil {
		return replaySummary{}, err
	}
	return replay(ctx, rb, conf, logger)
}

func replay(ctx context.Context, rb *rosbag.RosBag, conf *replayConfig, logger golog.Logger) (replaySummary, error) {
	bridgeConf, err := sensorbridge.NewConfigFromAttributes(conf.Bridge)
	if err != nil {
		return replaySummary{}, err
	}

	topics := []string{conf.TFTopic, conf.TFStaticTopic}
	for _, topic := range conf.Topics {
		topics = append(topics, topic.Topic)
	}
	if err := ros.ParseTopics(rb, 0, 0, topics); err != nil {
		return replaySummary{}, err
	}

	buffer, err := loadTransforms(rb, conf, logger)
	if err != nil {
		return replaySummary{}, err
	}
	logger.Infow("loaded transforms", "frames", buffer.FrameNames())
	logger.Debugf("transform links\n%s", buffer)

	builder := &summaryBuilder{}
	bridge, err := sensorbridge.NewSensorBridge(*bridgeConf, buffer, builder, logger)
	if err != nil {
		return replaySummary{}, err
	}

	src := &eventSource{rb: rb, bridge: bridge}
	groups := make([][]event, len(conf.Topics))
	var decoders errgroup.Group
	for i, topic := range conf.Topics {
		decoders.Go(func() error {
			events, err := src.topicEvents(topic)
			if err != nil {
				return errors.Wrapf(err, "topic %s", topic.Topic)
			}
			logger.Infow("decoded topic", "topic", topic.Topic, "type", topic.Type, "messages", len(events))
			groups[i] = events
			return nil
		})
	}
	if err := decoders.Wait(); err != nil {
		return replaySummary{}, err
	}
	return deliver(ctx, mergeEvents(groups...), bridge, builder, logger)
}

func deliver(
	ctx context.Context,
	events []event,
	bridge *sensorbridge.SensorBridge,
	builder *summaryBuilder,
	logger golog.Logger,
) (replaySummary, error) {
	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			return replaySummary{}, err
		}
		if err := ev.deliver(ctx); err != nil {
			if sensorbridge.IsFatal(err) {
				return replaySummary{}, errors.Wrapf(err, "message %d at %v", i, ev.stamp.UTC())
			}
			logger.Warnw("message not handled", "time", ev.stamp, "error", err)
		}
	}
	return builder.summarize(len(events), bridge.Stats()), nil
}
