// Package configsource loads persistence unit configuration records from YAML or JSON files,
// assigning them the identities a configuration admin service would.
package configsource

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"dario.cat/mergo"
	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/core-tools/hsu-punit/pkg/errors"
	"github.com/core-tools/hsu-punit/pkg/punit"
)

// DefaultFactoryPID is the factory identity persistence unit configurations are created under
const DefaultFactoryPID = "gemini.jpa.punit"

// File is the on-disk layout of a record file
type File struct {
	// Defaults are merged under the properties of every configuration in the file
	Defaults       map[string]interface{} `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Configurations []Entry                `yaml:"configurations" json:"configurations"`
}

// Entry is a single configuration as stored by the source
type Entry struct {
	PID            string                 `yaml:"pid,omitempty" json:"pid,omitempty"`
	FactoryPID     string                 `yaml:"factory_pid,omitempty" json:"factory_pid,omitempty"`
	BundleLocation string                 `yaml:"bundle_location,omitempty" json:"bundle_location,omitempty"`
	Properties     map[string]interface{} `yaml:"properties" json:"properties"`

	// Filename the entry was loaded from
	Source string `yaml:"-" json:"-"`
}

// Record returns a fresh raw record for the entry, including the source-assigned keys
func (e Entry) Record() punit.Record {
	record := make(punit.Record, len(e.Properties)+3)
	for k, v := range e.Properties {
		record[k] = v
	}
	record[punit.KeyServicePID] = e.PID
	record[punit.KeyServiceFactoryPID] = e.FactoryPID
	if e.BundleLocation != "" {
		record[punit.KeyServiceBundleLocation] = e.BundleLocation
	}
	return record
}

var supportedExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// LoadFile loads and normalizes the entries of a single record file
func LoadFile(filename string) (*File, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read record file", err).WithContext("filename", filename)
	}

	file, err := decode(filename, data)
	if err != nil {
		return nil, err
	}
	expandFileEnvVars(file)

	if err := setFileDefaults(filename, file); err != nil {
		return nil, err
	}

	if err := validateFile(file); err != nil {
		return nil, errors.NewValidationError("invalid record file", err).WithContext("filename", filename)
	}

	return file, nil
}

// LoadDir loads every supported file in dir in name order. Entries from files that loaded
// cleanly are returned even when other files failed; failures are aggregated in the error.
func LoadDir(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewIOError("failed to read record directory", err).WithContext("directory", dir)
	}

	var filenames []string
	for _, de := range dirEntries {
		if de.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(de.Name()))] {
			continue
		}
		filenames = append(filenames, filepath.Join(dir, de.Name()))
	}
	sort.Strings(filenames)

	collection := errors.NewErrorCollection()
	var entries []Entry
	seenPIDs := make(map[string]string)

	for _, filename := range filenames {
		file, err := LoadFile(filename)
		if err != nil {
			collection.Add(err)
			continue
		}

		for _, entry := range file.Configurations {
			if prev, exists := seenPIDs[entry.PID]; exists {
				collection.Add(errors.NewValidationError(
					fmt.Sprintf("duplicate pid '%s' also defined in %s", entry.PID, prev),
					nil,
				).WithContext("filename", filename))
				continue
			}
			seenPIDs[entry.PID] = filename
			entries = append(entries, entry)
		}
	}

	return entries, collection.ToError()
}

func decode(filename string, data []byte) (*File, error) {
	var file File
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		decoder := gojson.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&file); err != nil {
			return nil, errors.NewValidationError("failed to parse JSON record file", err).WithContext("filename", filename)
		}
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&file); err != nil {
			return nil, errors.NewValidationError("failed to parse YAML record file", err).WithContext("filename", filename)
		}
	default:
		return nil, errors.NewValidationError("unsupported record file extension", nil).
			WithContext("filename", filename).
			WithContext("supported_extensions", ".yaml, .yml, .json")
	}
	return &file, nil
}

func setFileDefaults(filename string, file *File) error {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	for i := range file.Configurations {
		entry := &file.Configurations[i]
		entry.Source = filename

		if entry.FactoryPID == "" {
			entry.FactoryPID = DefaultFactoryPID
		}
		if entry.PID == "" {
			entry.PID = fmt.Sprintf("%s.%s-%d", entry.FactoryPID, stem, i)
		}

		if len(file.Defaults) == 0 || entry.Properties == nil {
			continue
		}
		merged, err := mergeDefaults(file.Defaults, entry.Properties)
		if err != nil {
			return errors.NewValidationError("failed to merge defaults", err).
				WithContext("filename", filename).
				WithContext("pid", entry.PID)
		}
		entry.Properties = merged
	}

	return nil
}

// mergeDefaults layers properties over a private copy of defaults; a property always wins,
// even when empty or null. Nested maps are merged key by key, anything else is replaced whole.
func mergeDefaults(defaults, properties map[string]interface{}) (map[string]interface{}, error) {
	merged := make(map[string]interface{}, len(defaults)+len(properties))
	for k, v := range defaults {
		if v != nil {
			merged[k] = copyValue(v)
		}
	}

	for k, v := range properties {
		base, baseIsMap := merged[k].(map[string]interface{})
		override, overrideIsMap := v.(map[string]interface{})
		if !baseIsMap || !overrideIsMap {
			merged[k] = copyValue(v)
			continue
		}
		if err := mergo.Merge(&base, copyValue(override), mergo.WithOverride); err != nil {
			return nil, errors.NewValidationError("failed to merge nested property", err).WithContext("key", k)
		}
		merged[k] = base
	}
	return merged, nil
}

// copyValue deep-copies the maps and sequences decoders produce
func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = copyValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

func validateFile(file *File) error {
	seenPIDs := make(map[string]int)
	for i, entry := range file.Configurations {
		if len(entry.Properties) == 0 {
			return errors.NewValidationError(
				fmt.Sprintf("configuration at index %d has no properties", i),
				nil,
			).WithContext("pid", entry.PID)
		}
		if prevIndex, exists := seenPIDs[entry.PID]; exists {
			return errors.NewValidationError(
				fmt.Sprintf("duplicate pid '%s' found at indices %d and %d", entry.PID, prevIndex, i),
				nil,
			)
		}
		seenPIDs[entry.PID] = i
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR_NAME} with environment variable values
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// expandFileEnvVars substitutes inside decoded string values only, so a variable can never
// change the structure of the file
func expandFileEnvVars(file *File) {
	for k, v := range file.Defaults {
		file.Defaults[k] = expandValueEnvVars(v)
	}
	for i := range file.Configurations {
		entry := &file.Configurations[i]
		entry.PID = expandEnvVars(entry.PID)
		entry.FactoryPID = expandEnvVars(entry.FactoryPID)
		entry.BundleLocation = expandEnvVars(entry.BundleLocation)
		for k, v := range entry.Properties {
			entry.Properties[k] = expandValueEnvVars(v)
		}
	}
}

func expandValueEnvVars(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return expandEnvVars(t)
	case map[string]interface{}:
		for k, e := range t {
			t[k] = expandValueEnvVars(e)
		}
		return t
	case []interface{}:
		for i, e := range t {
			t[i] = expandValueEnvVars(e)
		}
		return t
	default:
		return v
	}
}
