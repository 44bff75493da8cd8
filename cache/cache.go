// Package cache persists the TSCH schedules learned from neighbours.
package cache

import (
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rigado/dot15d4"
	"github.com/rigado/dot15d4/frame/ie"
)

// Schedule is what a neighbour advertised about its TSCH schedule.
type Schedule struct {
	ASN               uint64                   `json:"asn"`
	JoinMetric        uint8                    `json:"joinMetric"`
	Timeslot          *ie.TimeslotRepr         `json:"timeslot,omitempty"`
	Slotframes        *ie.SlotframeAndLinkRepr `json:"slotframes,omitempty"`
	HoppingSequenceID *uint8                   `json:"hoppingSequenceId,omitempty"`
}

// Apply folds a decoded nested element into s. Elements that carry no
// schedule information are ignored.
func (s *Schedule) Apply(r ie.NestedRepr) {
	switch v := r.(type) {
	case ie.SynchronizationRepr:
		s.ASN = v.AbsoluteSlotNumber
		s.JoinMetric = v.JoinMetric
	case ie.TimeslotRepr:
		s.Timeslot = &v
	case ie.SlotframeAndLinkRepr:
		s.Slotframes = &v
	case ie.ChannelHoppingRepr:
		id := v.HoppingSequenceID
		s.HoppingSequenceID = &id
	}
}

type ScheduleCache interface {
	Store(dot15d4.Address, Schedule, bool) error
	Load(dot15d4.Address) (Schedule, error)
	Clear() error
}

var ErrNotFound = errors.New("schedule not found in cache")

type scheduleCache struct {
	filename string
	lock     sync.RWMutex
	logger   dot15d4.Logger
}

func New(filename string, opts ...dot15d4.Option) ScheduleCache {
	o := dot15d4.NewOptions(opts...)
	sc := scheduleCache{
		filename: filename,
		logger:   o.Logger,
	}

	return &sc
}

func (sc *scheduleCache) Store(addr dot15d4.Address, s Schedule, replace bool) error {
	if addr.IsAbsent() {
		return errors.New("cannot cache a schedule for an absent address")
	}

	sc.lock.Lock()
	defer sc.lock.Unlock()

	cache, err := sc.loadExisting()
	if err != nil {
		return err
	}

	_, ok := cache[addr.String()]
	if ok && !replace {
		return errors.Errorf("cache already contains a schedule for %s", addr)
	}

	cache[addr.String()] = s

	err = sc.storeCache(cache)
	if err != nil {
		return err
	}

	sc.logger.Debugf("stored schedule for %s", addr)
	return nil
}

func (sc *scheduleCache) Load(addr dot15d4.Address) (Schedule, error) {
	sc.lock.RLock()
	defer sc.lock.RUnlock()

	cache, err := sc.loadExisting()
	if err != nil {
		return Schedule{}, err
	}

	s, ok := cache[addr.String()]
	if !ok {
		return Schedule{}, errors.Wrapf(ErrNotFound, "%s", addr)
	}

	return s, nil
}

func (sc *scheduleCache) Clear() error {
	sc.lock.Lock()
	defer sc.lock.Unlock()

	err := os.Remove(sc.filename)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func (sc *scheduleCache) loadExisting() (map[string]Schedule, error) {
	_, err := os.Stat(sc.filename)
	if os.IsNotExist(err) {
		return map[string]Schedule{}, nil
	}

	in, err := os.ReadFile(sc.filename)
	if err != nil {
		return nil, err
	}

	var cache map[string]Schedule
	err = jsoniter.Unmarshal(in, &cache)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", sc.filename)
	}
	if cache == nil {
		cache = map[string]Schedule{}
	}

	return cache, nil
}

func (sc *scheduleCache) storeCache(cache map[string]Schedule) error {
	out, err := jsoniter.Marshal(cache)
	if err != nil {
		return err
	}

	return os.WriteFile(sc.filename, out, 0644)
}
