// Package referenceframe resolves rigid transforms between named sensor frames and the tracking
// frame at a given time.
package referenceframe

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"

	"github.com/timoonboru/cartographer-new/spatialmath"
)

// DefaultCacheDuration is how far back from the newest sample a Buffer keeps history.
const DefaultCacheDuration = 10 * time.Second

// StampedTransform is a transform valid at Time. Static transforms carry the zero time.
type StampedTransform struct {
	Time      time.Time
	Transform spatialmath.RigidTransform
}

// TransformLookup returns the transform taking points expressed in source into target at t.
// The zero time asks for the latest time every link between the frames has data for.
type TransformLookup interface {
	LookupTransform(target, source string, t time.Time) (StampedTransform, error)
}

// link is the transform from a child frame into its parent.
type link struct {
	parent  string
	static  bool
	samples []StampedTransform
}

func (l *link) earliest() time.Time { return l.samples[0].Time }
func (l *link) latest() time.Time   { return l.samples[len(l.samples)-1].Time }

func (l *link) at(child string, t time.Time) (spatialmath.RigidTransform, error) {
	if l.static {
		return l.samples[0].Transform, nil
	}
	if len(l.samples) == 0 {
		return spatialmath.RigidTransform{}, NewFrameNotFoundError(child)
	}
	if t.Before(l.earliest()) || t.After(l.latest()) {
		return spatialmath.RigidTransform{}, &ExtrapolationError{
			Frame:     child,
			Requested: t,
			Earliest:  l.earliest(),
			Latest:    l.latest(),
		}
	}
	i := sort.Search(len(l.samples), func(i int) bool { return !l.samples[i].Time.Before(t) })
	after := l.samples[i]
	if after.Time.Equal(t) || i == 0 {
		return after.Transform, nil
	}
	before := l.samples[i-1]
	ratio := float64(t.Sub(before.Time)) / float64(after.Time.Sub(before.Time))
	return spatialmath.Interpolate(before.Transform, after.Transform, ratio), nil
}

// Buffer is an in-memory store of parent/child transforms forming a tree. It is safe for
// concurrent use: one goroutine may feed transforms while others look them up.
type Buffer struct {
	mu            sync.RWMutex
	cacheDuration time.Duration
	links         map[string]*link
}

// NewBuffer returns an empty Buffer keeping cacheDuration of history per link. A non-positive
// duration selects DefaultCacheDuration.
func NewBuffer(cacheDuration time.Duration) *Buffer {
	if cacheDuration <= 0 {
		cacheDuration = DefaultCacheDuration
	}
	return &Buffer{cacheDuration: cacheDuration, links: map[string]*link{}}
}

// SetTransform records the transform from child into parent at st.Time. Re-parenting a frame
// drops its history.
func (b *Buffer) SetTransform(parent, child string, st StampedTransform) error {
	if st.Time.IsZero() {
		return errors.Errorf("transform %q -> %q needs a timestamp, use SetStaticTransform for fixed links", child, parent)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	l, err := b.linkForUpdate(parent, child, false)
	if err != nil {
		return err
	}

	i := sort.Search(len(l.samples), func(i int) bool { return !l.samples[i].Time.Before(st.Time) })
	switch {
	case i < len(l.samples) && l.samples[i].Time.Equal(st.Time):
		l.samples[i] = st
	case i == len(l.samples):
		l.samples = append(l.samples, st)
	default:
		l.samples = append(l.samples, StampedTransform{})
		copy(l.samples[i+1:], l.samples[i:])
		l.samples[i] = st
	}

	oldest := l.latest().Add(-b.cacheDuration)
	keep := sort.Search(len(l.samples), func(i int) bool { return !l.samples[i].Time.Before(oldest) })
	l.samples = l.samples[keep:]
	return nil
}

// SetStaticTransform records a transform from child into parent valid at all times.
func (b *Buffer) SetStaticTransform(parent, child string, t spatialmath.RigidTransform) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, err := b.linkForUpdate(parent, child, true)
	if err != nil {
		return err
	}
	l.samples = []StampedTransform{{Transform: t}}
	return nil
}

func (b *Buffer) linkForUpdate(parent, child string, static bool) (*link, error) {
	for _, name := range []string{parent, child} {
		if name == "" {
			return nil, errors.New("frame names cannot be empty")
		}
		if err := ValidateFrameID(name); err != nil {
			return nil, err
		}
	}
	if parent == child {
		return nil, errors.Errorf("frame %q cannot be its own parent", child)
	}
	for cur := parent; ; {
		if cur == child {
			return nil, errors.Errorf("adding %q as parent of %q would create a cycle", parent, child)
		}
		l, ok := b.links[cur]
		if !ok {
			break
		}
		cur = l.parent
	}

	l, ok := b.links[child]
	if !ok || l.parent != parent || l.static != static {
		l = &link{parent: parent, static: static}
		b.links[child] = l
	}
	return l, nil
}

// FrameNames returns every frame known to the buffer, sorted.
func (b *Buffer) FrameNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	seen := map[string]bool{}
	for child, l := range b.links {
		seen[child] = true
		seen[l.parent] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String prints out a table of each link in the buffer, with columns of child, parent, kind,
// sample count and covered interval.
func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	children := make([]string, 0, len(b.links))
	for child := range b.links {
		children = append(children, child)
	}
	sort.Strings(children)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Child", "Parent", "Kind", "Samples", "Interval"})
	for i, child := range children {
		l := b.links[child]
		kind, interval := "static", ""
		if !l.static {
			kind = "dynamic"
			interval = fmt.Sprintf("%s - %s", l.earliest().UTC().Format(time.RFC3339Nano), l.latest().UTC().Format(time.RFC3339Nano))
		}
		t.AppendRow([]interface{}{fmt.Sprintf("%d", i+1), child, l.parent, kind, len(l.samples), interval})
	}
	return t.Render()
}

// LookupTransform implements TransformLookup.
func (b *Buffer) LookupTransform(target, source string, t time.Time) (StampedTransform, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if target == source {
		return StampedTransform{Time: t, Transform: spatialmath.IdentityTransform()}, nil
	}
	sourceChain, err := b.chain(source)
	if err != nil {
		return StampedTransform{}, err
	}
	targetChain, err := b.chain(target)
	if err != nil {
		return StampedTransform{}, err
	}

	ancestor := ""
	inTarget := map[string]int{}
	for i, name := range targetChain {
		inTarget[name] = i
	}
	sourceDepth := -1
	for i, name := range sourceChain {
		if _, ok := inTarget[name]; ok {
			ancestor = name
			sourceDepth = i
			break
		}
	}
	if sourceDepth < 0 {
		return StampedTransform{}, NewFramesNotConnectedError(target, source)
	}
	sourceChain = sourceChain[:sourceDepth]
	targetChain = targetChain[:inTarget[ancestor]]

	if t.IsZero() {
		t = b.latestCommonTime(sourceChain, targetChain)
	}

	ancestorFromSource, err := b.compose(sourceChain, t)
	if err != nil {
		return StampedTransform{}, err
	}
	ancestorFromTarget, err := b.compose(targetChain, t)
	if err != nil {
		return StampedTransform{}, err
	}
	return StampedTransform{
		Time:      t,
		Transform: ancestorFromTarget.Inverse().Compose(ancestorFromSource),
	}, nil
}

// chain returns frame followed by its ancestors up to the root.
func (b *Buffer) chain(frame string) ([]string, error) {
	if _, ok := b.links[frame]; !ok && !b.isParent(frame) {
		return nil, NewFrameNotFoundError(frame)
	}
	chain := []string{frame}
	for l, ok := b.links[frame]; ok; l, ok = b.links[l.parent] {
		chain = append(chain, l.parent)
	}
	return chain, nil
}

func (b *Buffer) isParent(frame string) bool {
	for _, l := range b.links {
		if l.parent == frame {
			return true
		}
	}
	return false
}

// latestCommonTime is the newest time all dynamic links in the chains have data for. It is the
// zero time if every link is static.
func (b *Buffer) latestCommonTime(chains ...[]string) time.Time {
	var common time.Time
	for _, chain := range chains {
		for _, frame := range chain {
			l := b.links[frame]
			if l.static || len(l.samples) == 0 {
				continue
			}
			if common.IsZero() || l.latest().Before(common) {
				common = l.latest()
			}
		}
	}
	return common
}

// compose returns the transform from chain[0] into the parent of its last frame.
func (b *Buffer) compose(chain []string, t time.Time) (spatialmath.RigidTransform, error) {
	acc := spatialmath.IdentityTransform()
	for _, frame := range chain {
		tf, err := b.links[frame].at(frame, t)
		if err != nil {
			return spatialmath.RigidTransform{}, err
		}
		acc = tf.Compose(acc)
	}
	return acc, nil
}
