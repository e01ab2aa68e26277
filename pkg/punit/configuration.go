package punit

import (
	"fmt"
	"sort"
	"strings"
)

// Record is a raw configuration record as delivered by a configuration source
type Record map[string]interface{}

// Configuration is the canonical form of a Record.
// It is immutable once parsed, except for the generated descriptor slots.
type Configuration struct {
	unitName           string
	bundleSymbolicName *string
	servicePID         *string
	classes            []string // nil when unset
	excludeUnlisted    *string
	refreshBundle      *bool
	properties         map[string]interface{}

	descriptorName string
	descriptor     string
}

func (c *Configuration) UnitName() string {
	return c.unitName
}

func (c *Configuration) BundleSymbolicName() (string, bool) {
	return derefString(c.bundleSymbolicName)
}

// ServicePID returns the identity the configuration source assigned to the record
func (c *Configuration) ServicePID() (string, bool) {
	return derefString(c.servicePID)
}

// Classes returns a copy of the managed class names in their configured order
func (c *Configuration) Classes() ([]string, bool) {
	if c.classes == nil {
		return nil, false
	}
	return append([]string{}, c.classes...), true
}

// ExcludeUnlistedClasses returns the flag in string form; interpretation is left to the consumer
func (c *Configuration) ExcludeUnlistedClasses() (string, bool) {
	return derefString(c.excludeUnlisted)
}

// RefreshBundle reports whether the owning bundle should be refreshed; false when unset
func (c *Configuration) RefreshBundle() bool {
	return c.refreshBundle != nil && *c.refreshBundle
}

func (c *Configuration) HasRefreshBundle() bool {
	return c.refreshBundle != nil
}

// Properties returns a copy of the pass-through properties
func (c *Configuration) Properties() map[string]interface{} {
	props := make(map[string]interface{}, len(c.properties))
	for k, v := range c.properties {
		props[k] = v
	}
	return props
}

func (c *Configuration) DescriptorName() string {
	return c.descriptorName
}

func (c *Configuration) SetDescriptorName(name string) {
	c.descriptorName = name
}

// Descriptor returns the generated persistence descriptor content, if any
func (c *Configuration) Descriptor() string {
	return c.descriptor
}

func (c *Configuration) SetDescriptor(content string) {
	c.descriptor = content
}

// Clone returns a copy that shares nothing mutable with c
func (c *Configuration) Clone() *Configuration {
	clone := *c
	if c.classes != nil {
		clone.classes = append([]string{}, c.classes...)
	}
	clone.properties = c.Properties()
	return &clone
}

func (c *Configuration) String() string {
	var sb strings.Builder
	pid, _ := c.ServicePID()
	fmt.Fprintf(&sb, "PUnitConfig[servicePid=%s, unitName=%s", pid, c.unitName)
	if bsn, ok := c.BundleSymbolicName(); ok {
		fmt.Fprintf(&sb, ", bsn=%s", bsn)
	}
	if exclude, ok := c.ExcludeUnlistedClasses(); ok {
		fmt.Fprintf(&sb, ", excludeUnlistedClasses=%s", exclude)
	}
	if c.refreshBundle != nil {
		fmt.Fprintf(&sb, ", refresh=%t", *c.refreshBundle)
	}
	if c.classes != nil {
		fmt.Fprintf(&sb, ", classes={%s}", strings.Join(c.classes, " "))
	}

	keys := make([]string, 0, len(c.properties))
	for k := range c.properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	props := make([]string, 0, len(keys))
	for _, k := range keys {
		v := c.properties[k]
		if k == KeyDriverPassword {
			v = MaskedValue
		}
		props = append(props, fmt.Sprintf("%s=%v", k, v))
	}
	fmt.Fprintf(&sb, ", props={%s}]", strings.Join(props, ", "))
	return sb.String()
}

// MaskedValue replaces secrets wherever configuration is rendered for humans
const MaskedValue = "****"

func derefString(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
