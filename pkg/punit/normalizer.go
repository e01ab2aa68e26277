package punit

import (
	"strconv"
	"strings"

	"github.com/core-tools/hsu-punit/pkg/logging"
)

// WarningObserver is told about every malformed key the normalizer skips
type WarningObserver interface {
	ObserveWarning(key string)
}

// Normalizer turns raw records into canonical configurations and merges them into descriptors.
// It keeps no state between calls and is safe for concurrent use.
type Normalizer struct {
	logger   logging.Logger
	observer WarningObserver
}

// NewNormalizer creates a normalizer; observer may be nil
func NewNormalizer(logger logging.Logger, observer WarningObserver) *Normalizer {
	return &Normalizer{
		logger:   logger,
		observer: observer,
	}
}

// Parse normalizes raw. Malformed values of recognized keys are logged and left unset;
// Parse never fails.
func (n *Normalizer) Parse(raw Record) *Configuration {
	config := &Configuration{
		properties: make(map[string]interface{}, len(raw)),
	}

	if name := n.parseString(raw, KeyUnitName); name != nil {
		config.unitName = *name
	}
	config.bundleSymbolicName = n.parseString(raw, KeyBundleSymbolicName)
	config.servicePID = n.parseString(raw, KeyServicePID)
	config.classes = n.parseClasses(raw)
	config.excludeUnlisted = n.parseExcludeUnlisted(raw)
	config.refreshBundle = n.parseRefreshBundle(raw)

	for key, value := range raw {
		if IsReserved(key) {
			continue
		}
		config.properties[key] = value
	}

	return config
}

func (n *Normalizer) parseString(raw Record, key string) *string {
	v := Classify(raw[key])
	switch v.Kind {
	case ValueAbsent:
		return nil
	case ValueString:
		return &v.String
	default:
		n.warn(key, "a String", v)
		return nil
	}
}

// Classes may be a list of class names or a single comma-separated string
func (n *Normalizer) parseClasses(raw Record) []string {
	v := Classify(raw[KeyClasses])
	switch v.Kind {
	case ValueAbsent:
		return nil
	case ValueStrings:
		return v.Strings
	case ValueString:
		classes := make([]string, 0, strings.Count(v.String, ",")+1)
		for _, s := range strings.Split(v.String, ",") {
			if s = strings.TrimSpace(s); s != "" {
				classes = append(classes, s)
			}
		}
		return classes
	default:
		n.warn(KeyClasses, "a list of Strings or a comma-separated String of class names", v)
		return nil
	}
}

func (n *Normalizer) parseExcludeUnlisted(raw Record) *string {
	v := Classify(raw[KeyExcludeUnlistedClasses])
	switch v.Kind {
	case ValueAbsent:
		return nil
	case ValueBool:
		s := strconv.FormatBool(v.Bool)
		return &s
	case ValueString:
		return &v.String
	default:
		n.warn(KeyExcludeUnlistedClasses, "a String or Boolean", v)
		return nil
	}
}

// Any string other than a case-insensitive "true" means false, never an error
func (n *Normalizer) parseRefreshBundle(raw Record) *bool {
	v := Classify(raw[KeyRefreshBundle])
	switch v.Kind {
	case ValueAbsent:
		return nil
	case ValueBool:
		return &v.Bool
	case ValueString:
		b := strings.EqualFold(v.String, "true")
		return &b
	default:
		n.warn(KeyRefreshBundle, "a String or Boolean", v)
		return nil
	}
}

func (n *Normalizer) warn(key string, expected string, v Value) {
	n.logger.Warnf("Configuration property %s must be %s, got %T; ignoring it", key, expected, v.Raw)
	if n.observer != nil {
		n.observer.ObserveWarning(key)
	}
}
