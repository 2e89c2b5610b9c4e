package sensorbridge

import (
	"sort"
	"sync"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/timoonboru/cartographer-new/referenceframe"
)

// Sessions holds one SensorBridge per active trajectory so origin and baseline state are never
// shared between trajectories.
type Sessions struct {
	mu      sync.Mutex
	conf    Config
	lookup  referenceframe.TransformLookup
	logger  golog.Logger
	opts    []referenceframe.TrackingBridgeOption
	bridges map[uuid.UUID]*SensorBridge
}

// NewSessions returns an empty registry creating bridges from conf and lookup.
func NewSessions(
	conf Config,
	lookup referenceframe.TransformLookup,
	logger golog.Logger,
	opts ...referenceframe.TrackingBridgeOption,
) (*Sessions, error) {
	if err := conf.Validate("sensor_bridge"); err != nil {
		return nil, err
	}
	return &Sessions{
		conf:    conf,
		lookup:  lookup,
		logger:  logger,
		opts:    opts,
		bridges: map[uuid.UUID]*SensorBridge{},
	}, nil
}

// Start creates a bridge feeding builder and returns its session id.
func (s *Sessions) Start(builder TrajectoryBuilder) (uuid.UUID, *SensorBridge, error) {
	id := uuid.New()
	bridge, err := NewSensorBridge(s.conf, s.lookup, builder, s.logger.Named(id.String()), s.opts...)
	if err != nil {
		return uuid.Nil, nil, err
	}
	s.mu.Lock()
	s.bridges[id] = bridge
	s.mu.Unlock()
	s.logger.Infow("started sensor bridge session", "session", id)
	return id, bridge, nil
}

// Get returns the bridge of session id.
func (s *Sessions) Get(id uuid.UUID) (*SensorBridge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bridge, ok := s.bridges[id]
	return bridge, ok
}

// Finish releases session id and returns its final stats.
func (s *Sessions) Finish(id uuid.UUID) (Stats, error) {
	s.mu.Lock()
	bridge, ok := s.bridges[id]
	delete(s.bridges, id)
	s.mu.Unlock()
	if !ok {
		return Stats{}, errors.Errorf("no sensor bridge session %s", id)
	}
	stats := bridge.Stats()
	s.logger.Infow("finished sensor bridge session", "session", id, "stats", stats)
	return stats, nil
}

// IDs returns the active session ids in lexical order.
func (s *Sessions) IDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.bridges))
	for id := range s.bridges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
