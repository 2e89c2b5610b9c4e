// Package ros reads the sensor messages recorded by ROS and converts them into the point clouds and
// rotations the sensor bridge works with.
package ros

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/edaniels/gobag/rosbag"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Message is one recorded message: the time the recorder received it and its decoded payload.
type Message[T any] struct {
	Meta Time
	Data T
}

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (*rosbag.RosBag, error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	rb := rosbag.NewRosBag()
	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to read ros bag %q", filename)
	}
	return rb, nil
}

// ParseTopics converts the messages of the given topics recorded between startTime and endTime
// (nanoseconds) into JSON held by rb. A zero start or end disables time filtering and no topics
// selects every topic.
func ParseTopics(rb *rosbag.RosBag, startTime, endTime int64, topics []string) error {
	timeFilter := func(int64) bool { return true }
	if startTime != 0 && endTime != 0 {
		timeFilter = func(timestamp int64) bool {
			return timestamp >= startTime && timestamp <= endTime
		}
	}

	topicFilter := func(string) bool { return true }
	if len(topics) != 0 {
		wanted := make(map[string]bool, len(topics))
		for _, topic := range topics {
			wanted[topic] = true
		}
		topicFilter = func(topic string) bool { return wanted[topic] }
	}

	if err := rb.ParseTopicsToJSON("", timeFilter, topicFilter, false); err != nil {
		return errors.Wrap(err, "error while parsing bag to JSON")
	}
	return nil
}

// TopicKey returns the key gobag files the parsed messages of topic under.
func TopicKey(topic string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(topic, "/"), "/", "_"))
}

// DecodeTopic decodes every parsed message of topic into T. ParseTopics must have selected the
// topic first.
func DecodeTopic[T any](rb *rosbag.RosBag, topic string) ([]Message[T], error) {
	msgs := rb.TopicsAsJSON[TopicKey(topic)]
	if msgs == nil {
		return nil, errors.Errorf("no messages for topic %s", topic)
	}
	return DecodeMessages[T](msgs)
}

// DecodeMessages decodes newline separated JSON messages as produced by gobag into T.
func DecodeMessages[T any](r interface{ ReadBytes(byte) ([]byte, error) }) ([]Message[T], error) {
	var all []Message[T]
	for {
		data, err := r.ReadBytes('\n')
		if len(strings.TrimSpace(string(data))) != 0 {
			raw := map[string]interface{}{}
			if err := json.Unmarshal(data, &raw); err != nil {
				return nil, errors.Wrapf(err, "message %d is not valid JSON", len(all))
			}
			var msg Message[T]
			if err := decodeAttributes(raw, &msg); err != nil {
				return nil, errors.Wrapf(err, "decoding message %d", len(all))
			}
			all = append(all, msg)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return all, nil
			}
			return nil, err
		}
	}
}

var bytesType = reflect.TypeOf([]byte(nil))

// base64BytesHook decodes byte buffers serialized as base64 strings.
func base64BytesHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != bytesType {
		return data, nil
	}
	return base64.StdEncoding.DecodeString(data.(string))
}

func decodeAttributes(raw map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       base64BytesHook,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
