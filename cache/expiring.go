package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rigado/dot15d4"
)

type expiringCache struct {
	backing ScheduleCache
	mem     *gocache.Cache
}

// NewExpiring keeps recently used schedules in memory for ttl in front of
// backing. Writes go through to backing.
func NewExpiring(backing ScheduleCache, ttl time.Duration) ScheduleCache {
	return &expiringCache{
		backing: backing,
		mem:     gocache.New(ttl, 2*ttl),
	}
}

func (ec *expiringCache) Store(addr dot15d4.Address, s Schedule, replace bool) error {
	if err := ec.backing.Store(addr, s, replace); err != nil {
		return err
	}
	ec.mem.SetDefault(addr.String(), s)
	return nil
}

func (ec *expiringCache) Load(addr dot15d4.Address) (Schedule, error) {
	if v, ok := ec.mem.Get(addr.String()); ok {
		return v.(Schedule), nil
	}

	s, err := ec.backing.Load(addr)
	if err != nil {
		return Schedule{}, err
	}
	ec.mem.SetDefault(addr.String(), s)
	return s, nil
}

func (ec *expiringCache) Clear() error {
	ec.mem.Flush()
	return ec.backing.Clear()
}
