package main

import (
	"fmt"
	"os"

	sprintfLogging "github.com/core-tools/hsu-core/pkg/logging/sprintf"

	"github.com/core-tools/hsu-punit/pkg/configsource"
	"github.com/core-tools/hsu-punit/pkg/errors"
	"github.com/core-tools/hsu-punit/pkg/logging"
	"github.com/core-tools/hsu-punit/pkg/provisioning"
	"github.com/core-tools/hsu-punit/pkg/punit"

	gojson "github.com/goccy/go-json"
	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Files          []string `long:"file" description:"record file to load, may be repeated"`
	Dir            string   `long:"dir" description:"directory of record files to load"`
	Unit           string   `long:"unit" description:"only print this persistence unit"`
	ShowDescriptor bool     `long:"show-descriptor" description:"include the generated persistence descriptor"`
}

type unitView struct {
	PID            string            `json:"pid"`
	Descriptor     *punit.Descriptor `json:"descriptor"`
	DescriptorName string            `json:"descriptor_name,omitempty"`
	DescriptorXML  string            `json:"descriptor_xml,omitempty"`
	RefreshBundle  bool              `json:"refresh_bundle"`
}

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s-client , ", module)
}

func main() {
	var opts flagOptions
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	if len(opts.Files) == 0 && opts.Dir == "" {
		fmt.Println("At least one --file or --dir is required")
		os.Exit(1)
	}

	stdLogger := sprintfLogging.NewStdSprintfLogger()
	logger := logging.NewLogger(
		logPrefix("hsu-punit"), logging.LogFuncs{
			Debugf: stdLogger.Debugf,
			Infof:  stdLogger.Infof,
			Warnf:  stdLogger.Warnf,
			Errorf: stdLogger.Errorf,
		})

	entries, err := loadEntries(opts)
	if err != nil {
		logger.Errorf("Loading records: %v", err)
	}

	normalizer := punit.NewNormalizer(logger, nil)
	registry := provisioning.NewRegistry(normalizer, logger)

	views := make([]unitView, 0, len(entries))
	failed := err != nil
	for _, entry := range entries {
		descriptor, err := registry.Update(entry.PID, entry.Record())
		if err != nil {
			failed = true
			continue
		}
		if opts.Unit != "" && descriptor.UnitName != opts.Unit {
			continue
		}

		config, _ := registry.Configuration(descriptor.UnitName)
		view := unitView{
			PID:            entry.PID,
			Descriptor:     descriptor.Masked(),
			DescriptorName: config.DescriptorName(),
			RefreshBundle:  config.RefreshBundle(),
		}
		if opts.ShowDescriptor {
			view.DescriptorXML = config.Descriptor()
		}
		views = append(views, view)
	}

	out, err := gojson.MarshalIndent(views, "", "  ")
	if err != nil {
		logger.Errorf("Encoding output: %v", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if failed {
		os.Exit(2)
	}
}

func loadEntries(opts flagOptions) ([]configsource.Entry, error) {
	collection := errors.NewErrorCollection()
	var entries []configsource.Entry

	if opts.Dir != "" {
		dirEntries, err := configsource.LoadDir(opts.Dir)
		collection.Add(err)
		entries = append(entries, dirEntries...)
	}

	for _, filename := range opts.Files {
		file, err := configsource.LoadFile(filename)
		if err != nil {
			collection.Add(err)
			continue
		}
		entries = append(entries, file.Configurations...)
	}

	return entries, collection.ToError()
}
