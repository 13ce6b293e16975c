package backend

import (
	"sort"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("backend")

// Capabilities is the immutable result of probing a set of drivers. It is
// produced once at process start and passed to whatever needs to open files.
type Capabilities struct {
	drivers map[ID]IDriver
	failed  map[ID]error
}

// Probe tries every driver independently. A driver that fails its probe is
// logged and left out; the others are unaffected.
func Probe(drivers ...IDriver) Capabilities {
	caps := Capabilities{
		drivers: make(map[ID]IDriver, len(drivers)),
		failed:  make(map[ID]error),
	}

	for _, d := range drivers {
		if d == nil {
			continue
		}
		if err := d.Probe(); err != nil {
			Logger.Warningf("backend %s unavailable: %v", d.ID(), err)
			caps.failed[d.ID()] = err
			continue
		}
		caps.drivers[d.ID()] = d
		Logger.Debugf("backend %s available", d.ID())
	}

	return caps
}

// Has reports whether the backend passed its probe.
func (c Capabilities) Has(id ID) bool {
	_, ok := c.drivers[id]
	return ok
}

// Available returns the sorted identifiers of all usable backends.
func (c Capabilities) Available() []ID {
	ids := make([]ID, 0, len(c.drivers))
	for id := range c.drivers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Driver returns the driver for id or ErrBackendUnavailable. Local drivers
// also open the files of every other available local driver, see Interop.
func (c Capabilities) Driver(id ID) (IDriver, error) {
	if d, ok := c.drivers[id]; ok {
		var others []IDriver
		for _, other := range c.Available() {
			if other != id {
				others = append(others, c.drivers[other])
			}
		}
		return Interop(d, others...), nil
	}
	if err, ok := c.failed[id]; ok {
		return nil, Errorf(RetCBackendUnavailable, "backend %s failed to load: %v", id, err)
	}
	return nil, Errorf(RetCBackendUnavailable, "backend %s is not installed", id)
}
