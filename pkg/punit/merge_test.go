package punit

import (
	"testing"

	"github.com/core-tools/hsu-punit/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeInto_ExtractsDriverProperties(t *testing.T) {
	normalizer, _ := newTestNormalizer()

	config := normalizer.Parse(Record{
		KeyUnitName:        "orders",
		KeyDriverClassName: "org.h2.Driver",
		KeyDriverURL:       "jdbc:h2:mem:orders",
		KeyDriverUser:      "sa",
		KeyDriverPassword:  "secret",
		KeyDriverVersion:   "1.4",
		"custom.key":       "v1",
	})
	descriptor := NewDescriptor("orders")

	normalizer.MergeInto(config, descriptor)

	assert.Equal(t, "org.h2.Driver", descriptor.DriverClassName)
	assert.Equal(t, "jdbc:h2:mem:orders", descriptor.DriverURL)
	assert.Equal(t, "sa", descriptor.DriverUser)
	assert.Equal(t, "secret", descriptor.DriverPassword)
	assert.Equal(t, "1.4", descriptor.DriverVersion)
	assert.Equal(t, map[string]interface{}{"custom.key": "v1"}, descriptor.ConfigProperties)

	// the canonical configuration keeps its own properties
	assert.Len(t, config.Properties(), 6)
}

func TestMergeInto_NoResidualLeavesPropertiesUnset(t *testing.T) {
	normalizer, _ := newTestNormalizer()

	config := normalizer.Parse(Record{
		KeyUnitName:   "orders",
		KeyDriverUser: "sa",
	})
	descriptor := NewDescriptor("orders")

	normalizer.MergeInto(config, descriptor)

	assert.Equal(t, "sa", descriptor.DriverUser)
	assert.Nil(t, descriptor.ConfigProperties)
}

func TestMergeInto_AbsentDriverKeysKeepDescriptorValues(t *testing.T) {
	normalizer, _ := newTestNormalizer()

	descriptor := NewDescriptor("orders")
	descriptor.DriverURL = "jdbc:h2:mem:preset"

	normalizer.MergeInto(normalizer.Parse(Record{KeyUnitName: "orders", KeyDriverUser: "sa"}), descriptor)

	assert.Equal(t, "jdbc:h2:mem:preset", descriptor.DriverURL)
	assert.Equal(t, "sa", descriptor.DriverUser)
}

func TestMergeInto_NonStringDriverValue(t *testing.T) {
	normalizer, logger := newTestNormalizer()

	config := normalizer.Parse(Record{
		KeyUnitName:      "orders",
		KeyDriverVersion: 1.4,
		"custom.key":     "v1",
	})
	descriptor := NewDescriptor("orders")

	normalizer.MergeInto(config, descriptor)

	assert.Empty(t, descriptor.DriverVersion)
	assert.Equal(t, map[string]interface{}{"custom.key": "v1"}, descriptor.ConfigProperties)
	require.Len(t, logger.warnings, 1)
	assert.Contains(t, logger.warnings[0], KeyDriverVersion)
}

func TestMergeInto_Idempotent(t *testing.T) {
	normalizer, _ := newTestNormalizer()

	config := normalizer.Parse(Record{
		KeyUnitName:        "orders",
		KeyClasses:         []string{"com.a.Foo"},
		KeyDriverClassName: "org.h2.Driver",
		KeyDriverPassword:  "secret",
		"custom.key":       "v1",
		"other.key":        []string{"a", "b"},
	})

	once := NewDescriptor("orders")
	normalizer.MergeInto(config, once)

	twice := NewDescriptor("orders")
	normalizer.MergeInto(config, twice)
	normalizer.MergeInto(config, twice)

	assert.Equal(t, once, twice)
}

func TestMergeInto_ResidualIsNotShared(t *testing.T) {
	normalizer, _ := newTestNormalizer()

	config := normalizer.Parse(Record{KeyUnitName: "orders", "custom.key": "v1"})
	descriptor := NewDescriptor("orders")
	normalizer.MergeInto(config, descriptor)

	descriptor.ConfigProperties["custom.key"] = "mutated"

	assert.Equal(t, "v1", config.Properties()["custom.key"])
}

func TestMergeInto_UnitNameMismatchPanics(t *testing.T) {
	normalizer, _ := newTestNormalizer()

	config := normalizer.Parse(Record{KeyUnitName: "orders", KeyDriverUser: "sa"})
	descriptor := NewDescriptor("billing")

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.IsInternalError(err))
		assert.Contains(t, err.Error(), "config_unit=orders")
		assert.Contains(t, err.Error(), "descriptor_unit=billing")

		assert.Empty(t, descriptor.DriverUser)
	}()

	normalizer.MergeInto(config, descriptor)
}

func TestParseAndMerge_EndToEnd(t *testing.T) {
	normalizer, logger := newTestNormalizer()

	config := normalizer.Parse(Record{
		KeyUnitName:      "orders",
		KeyClasses:       "com.a.Foo, com.a.Bar",
		KeyRefreshBundle: "true",
		KeyDriverUser:    "sa",
		"custom.key":     "v1",
	})

	assert.Equal(t, "orders", config.UnitName())
	classes, ok := config.Classes()
	require.True(t, ok)
	assert.Equal(t, []string{"com.a.Foo", "com.a.Bar"}, classes)
	assert.True(t, config.RefreshBundle())
	assert.Equal(t, map[string]interface{}{
		KeyDriverUser: "sa",
		"custom.key":  "v1",
	}, config.Properties())

	descriptor := NewDescriptor("orders")
	normalizer.MergeInto(config, descriptor)

	assert.Equal(t, "sa", descriptor.DriverUser)
	assert.Equal(t, map[string]interface{}{"custom.key": "v1"}, descriptor.ConfigProperties)
	assert.Empty(t, logger.warnings)
}

func TestDescriptor_CloneAndMasked(t *testing.T) {
	d := &Descriptor{
		UnitName:         "orders",
		DriverPassword:   "secret",
		ConfigProperties: map[string]interface{}{"k": "v"},
	}

	clone := d.Clone()
	clone.ConfigProperties["k"] = "changed"
	assert.Equal(t, "v", d.ConfigProperties["k"])

	masked := d.Masked()
	assert.Equal(t, MaskedValue, masked.DriverPassword)
	assert.Equal(t, "secret", d.DriverPassword)

	assert.Empty(t, NewDescriptor("orders").Masked().DriverPassword)
}
