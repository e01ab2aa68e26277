package provisioning

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/core-tools/hsu-punit/pkg/punit"
)

const persistenceNamespace = "http://java.sun.com/xml/ns/persistence"

type persistenceXML struct {
	XMLName xml.Name           `xml:"persistence"`
	Xmlns   string             `xml:"xmlns,attr"`
	Version string             `xml:"version,attr"`
	Unit    persistenceUnitXML `xml:"persistence-unit"`
}

type persistenceUnitXML struct {
	Name                   string         `xml:"name,attr"`
	Classes                []string       `xml:"class"`
	ExcludeUnlistedClasses string         `xml:"exclude-unlisted-classes,omitempty"`
	Properties             *propertiesXML `xml:"properties,omitempty"`
}

type propertiesXML struct {
	Property []propertyXML `xml:"property"`
}

type propertyXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// DescriptorName returns the resource name of the descriptor generated for unitName
func DescriptorName(unitName string) string {
	return fmt.Sprintf("META-INF/%s-persistence.xml", unitName)
}

// GenerateDescriptor renders the private persistence descriptor for a configuration that
// defines its own classes. Properties come from the merged descriptor, so driver settings
// stay on their dedicated fields.
func GenerateDescriptor(config *punit.Configuration, d *punit.Descriptor) (string, error) {
	classes, _ := config.Classes()
	exclude, _ := config.ExcludeUnlistedClasses()

	unit := persistenceUnitXML{
		Name:                   config.UnitName(),
		Classes:                classes,
		ExcludeUnlistedClasses: exclude,
	}

	if len(d.ConfigProperties) > 0 {
		keys := make([]string, 0, len(d.ConfigProperties))
		for k := range d.ConfigProperties {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		unit.Properties = &propertiesXML{}
		for _, k := range keys {
			unit.Properties.Property = append(unit.Properties.Property, propertyXML{
				Name:  k,
				Value: formatPropertyValue(d.ConfigProperties[k]),
			})
		}
	}

	doc := persistenceXML{
		Xmlns:   persistenceNamespace,
		Version: "1.0",
		Unit:    unit,
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + string(out) + "\n", nil
}

func formatPropertyValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = formatPropertyValue(e)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}
