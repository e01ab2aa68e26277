package punit

// Persistence unit keys consumed into typed fields
const (
	KeyUnitName               = "gemini.jpa.punit.name"
	KeyBundleSymbolicName     = "gemini.jpa.punit.bsn"
	KeyClasses                = "gemini.jpa.punit.classes"
	KeyExcludeUnlistedClasses = "gemini.jpa.punit.excludeUnlistedClasses"
	KeyRefreshBundle          = "gemini.jpa.punit.refresh"
	KeyProvider               = "javax.persistence.provider"
)

// Keys assigned by the configuration source itself
const (
	KeyServicePID            = "service.pid"
	KeyServiceFactoryPID     = "service.factoryPid"
	KeyServiceBundleLocation = "service.bundleLocation"
)

// Driver keys, extracted from the properties during merge
const (
	KeyDriverClassName = "javax.persistence.jdbc.driver"
	KeyDriverURL       = "javax.persistence.jdbc.url"
	KeyDriverUser      = "javax.persistence.jdbc.user"
	KeyDriverPassword  = "javax.persistence.jdbc.password"
	KeyDriverVersion   = "osgi.jdbc.driver.version"
)

var reservedKeys = map[string]struct{}{
	KeyUnitName:               {},
	KeyBundleSymbolicName:     {},
	KeyClasses:                {},
	KeyExcludeUnlistedClasses: {},
	KeyRefreshBundle:          {},
	KeyProvider:               {},
	KeyServicePID:             {},
	KeyServiceFactoryPID:      {},
	KeyServiceBundleLocation:  {},
}

// IsReserved reports whether key is consumed by the normalizer and never forwarded as a property
func IsReserved(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// ReservedKeys returns the reserved key set in no particular order
func ReservedKeys() []string {
	keys := make([]string, 0, len(reservedKeys))
	for k := range reservedKeys {
		keys = append(keys, k)
	}
	return keys
}
