package punit

import (
	"github.com/core-tools/hsu-punit/pkg/errors"
)

// MergeInto applies config onto d. Driver settings are lifted out of the properties into their
// own fields and whatever remains becomes d.ConfigProperties. Merging the same config twice
// leaves d as merging it once.
//
// config and d must describe the same unit; anything else is a caller bug and panics.
func (n *Normalizer) MergeInto(config *Configuration, d *Descriptor) {
	if config.UnitName() != d.UnitName {
		panic(errors.NewInternalError("configuration merged into descriptor of another unit", nil).
			WithContext("config_unit", config.UnitName()).
			WithContext("descriptor_unit", d.UnitName))
	}

	props := config.Properties()

	n.takeDriverProperty(props, KeyDriverClassName, &d.DriverClassName)
	n.takeDriverProperty(props, KeyDriverURL, &d.DriverURL)
	n.takeDriverProperty(props, KeyDriverUser, &d.DriverUser)
	n.takeDriverProperty(props, KeyDriverPassword, &d.DriverPassword)
	n.takeDriverProperty(props, KeyDriverVersion, &d.DriverVersion)

	if len(props) > 0 {
		d.ConfigProperties = props
	}
}

func (n *Normalizer) takeDriverProperty(props map[string]interface{}, key string, field *string) {
	v, ok := props[key]
	if !ok {
		return
	}
	delete(props, key)

	switch s := v.(type) {
	case nil:
	case string:
		*field = s
	default:
		n.warn(key, "a String", Value{Kind: ValueUnrecognized, Raw: v})
	}
}
