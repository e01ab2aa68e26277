package provisioning

import (
	"fmt"
	"sort"
	"sync"

	"github.com/core-tools/hsu-punit/pkg/errors"
	"github.com/core-tools/hsu-punit/pkg/logging"
	"github.com/core-tools/hsu-punit/pkg/punit"
)

type EventType string

const (
	EventProvisioned EventType = "provisioned"
	EventRemoved     EventType = "removed"
	EventRejected    EventType = "rejected"
)

// Event describes one registry change
type Event struct {
	Type     EventType
	PID      string
	UnitName string

	// Set for EventProvisioned
	Descriptor    *punit.Descriptor
	RefreshBundle bool

	// Set for EventRejected
	Err error

	// Number of provisioned units after the event
	Units int
}

// Listener is notified synchronously, in order, while the registry lock is held.
// Implementations must not call back into the registry.
type Listener interface {
	OnEvent(event Event)
}

type unitState struct {
	pid        string
	config     *punit.Configuration
	descriptor *punit.Descriptor
}

// Registry owns the descriptor of every configured persistence unit. All updates go
// through a single lock, so at most one merge per descriptor is ever in flight.
type Registry struct {
	normalizer *punit.Normalizer
	logger     logging.Logger
	listeners  []Listener
	generate   func(*punit.Configuration, *punit.Descriptor) (string, error)

	mutex sync.Mutex
	units map[string]*unitState // by unit name
	pids  map[string]string     // pid -> unit name
}

func NewRegistry(normalizer *punit.Normalizer, logger logging.Logger, listeners ...Listener) *Registry {
	return &Registry{
		normalizer: normalizer,
		logger:     logger,
		listeners:  listeners,
		generate:   GenerateDescriptor,
		units:      make(map[string]*unitState),
		pids:       make(map[string]string),
	}
}

// Update applies the record delivered for pid, replacing whatever that pid configured before.
// The returned descriptor is a copy.
func (r *Registry) Update(pid string, record punit.Record) (*punit.Descriptor, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	descriptor, err := r.update(pid, record)
	if err != nil {
		r.logger.Errorf("Rejected configuration, pid: %s, error: %v", pid, err)
		r.notify(Event{Type: EventRejected, PID: pid, Err: err, Units: len(r.units)})
		return nil, err
	}
	return descriptor, nil
}

func (r *Registry) update(pid string, record punit.Record) (*punit.Descriptor, error) {
	if pid == "" {
		return nil, errors.NewValidationError("pid is required", nil)
	}

	config := r.normalizer.Parse(record)
	r.logger.Debugf("Parsed configuration: %s", config)

	unitName := config.UnitName()
	if unitName == "" {
		return nil, errors.NewValidationError(
			fmt.Sprintf("configuration property %s is required", punit.KeyUnitName),
			nil,
		).WithContext("pid", pid)
	}

	if recordPID, ok := config.ServicePID(); ok && recordPID != pid {
		return nil, errors.NewValidationError("record carries a different pid", nil).
			WithContext("pid", pid).
			WithContext("record_pid", recordPID)
	}

	if existing, ok := r.units[unitName]; ok && existing.pid != pid {
		return nil, errors.NewConflictError("persistence unit is already configured by another pid", nil).
			WithContext("pid", pid).
			WithContext("unit_name", unitName).
			WithContext("existing_pid", existing.pid)
	}

	// Always merge into a fresh descriptor so settings dropped from the record do not linger
	descriptor := punit.NewDescriptor(unitName)
	r.normalizer.MergeInto(config, descriptor)

	if _, ok := config.Classes(); ok {
		content, err := r.generate(config, descriptor)
		if err != nil {
			return nil, errors.NewInternalError("failed to generate persistence descriptor", err).
				WithContext("unit_name", unitName)
		}
		config.SetDescriptorName(DescriptorName(unitName))
		config.SetDescriptor(content)
	}

	// Renaming a unit under the same pid retires the old one, once the new one is built
	if previous, ok := r.pids[pid]; ok && previous != unitName {
		r.remove(pid, previous)
	}

	r.units[unitName] = &unitState{
		pid:        pid,
		config:     config,
		descriptor: descriptor,
	}
	r.pids[pid] = unitName

	if config.RefreshBundle() {
		bsn, _ := config.BundleSymbolicName()
		r.logger.Infof("Bundle refresh requested, unit: %s, bundle: %s", unitName, bsn)
	}
	r.logger.Infof("Provisioned persistence unit, unit: %s, pid: %s", unitName, pid)

	r.notify(Event{
		Type:          EventProvisioned,
		PID:           pid,
		UnitName:      unitName,
		Descriptor:    descriptor.Clone(),
		RefreshBundle: config.RefreshBundle(),
		Units:         len(r.units),
	})

	return descriptor.Clone(), nil
}

// Delete retires the unit configured by pid
func (r *Registry) Delete(pid string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	unitName, ok := r.pids[pid]
	if !ok {
		return errors.NewNotFoundError("no configuration for pid", nil).WithContext("pid", pid)
	}
	r.remove(pid, unitName)
	return nil
}

func (r *Registry) remove(pid, unitName string) {
	delete(r.units, unitName)
	delete(r.pids, pid)
	r.logger.Infof("Removed persistence unit, unit: %s, pid: %s", unitName, pid)
	r.notify(Event{Type: EventRemoved, PID: pid, UnitName: unitName, Units: len(r.units)})
}

// Sync makes the registry match records (pid -> record): every record is applied and pids
// that are no longer present are deleted. It keeps going past failing records.
func (r *Registry) Sync(records map[string]punit.Record) error {
	collection := errors.NewErrorCollection()

	pids := make([]string, 0, len(records))
	for pid := range records {
		pids = append(pids, pid)
	}
	sort.Strings(pids)

	for _, pid := range r.PIDs() {
		if _, ok := records[pid]; ok {
			continue
		}
		if err := r.Delete(pid); err != nil && !errors.IsNotFoundError(err) {
			collection.Add(err)
		}
	}

	for _, pid := range pids {
		if _, err := r.Update(pid, records[pid]); err != nil {
			collection.Add(err)
		}
	}

	return collection.ToError()
}

// Descriptor returns a copy of the descriptor of unitName
func (r *Registry) Descriptor(unitName string) (*punit.Descriptor, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	state, ok := r.units[unitName]
	if !ok {
		return nil, false
	}
	return state.descriptor.Clone(), true
}

// Configuration returns a copy of the parsed configuration of unitName
func (r *Registry) Configuration(unitName string) (*punit.Configuration, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	state, ok := r.units[unitName]
	if !ok {
		return nil, false
	}
	return state.config.Clone(), true
}

// Units returns the provisioned unit names, sorted
func (r *Registry) Units() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	names := make([]string, 0, len(r.units))
	for name := range r.units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PIDs returns the pids with a provisioned unit, sorted
func (r *Registry) PIDs() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	pids := make([]string, 0, len(r.pids))
	for pid := range r.pids {
		pids = append(pids, pid)
	}
	sort.Strings(pids)
	return pids
}

func (r *Registry) notify(event Event) {
	for _, listener := range r.listeners {
		listener.OnEvent(event)
	}
}
