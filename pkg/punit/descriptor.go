package punit

// Descriptor is the persistence unit descriptor handed to the provisioning side.
// The normalizer only writes to it.
type Descriptor struct {
	UnitName string `json:"unit_name"`

	DriverClassName string `json:"driver_class_name,omitempty"`
	DriverURL       string `json:"driver_url,omitempty"`
	DriverUser      string `json:"driver_user,omitempty"`
	DriverPassword  string `json:"driver_password,omitempty"`
	DriverVersion   string `json:"driver_version,omitempty"`

	// nil means the configuration carried no extra properties
	ConfigProperties map[string]interface{} `json:"config_properties,omitempty"`
}

// NewDescriptor returns an empty descriptor for unitName
func NewDescriptor(unitName string) *Descriptor {
	return &Descriptor{UnitName: unitName}
}

// Clone returns a copy that shares no maps with d
func (d *Descriptor) Clone() *Descriptor {
	clone := *d
	if d.ConfigProperties != nil {
		clone.ConfigProperties = make(map[string]interface{}, len(d.ConfigProperties))
		for k, v := range d.ConfigProperties {
			clone.ConfigProperties[k] = v
		}
	}
	return &clone
}

// Masked returns a clone safe for display
func (d *Descriptor) Masked() *Descriptor {
	clone := d.Clone()
	if clone.DriverPassword != "" {
		clone.DriverPassword = MaskedValue
	}
	return clone
}
