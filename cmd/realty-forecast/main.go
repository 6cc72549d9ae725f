package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/iwvelando/realty-forecast/internal/config"
	"github.com/iwvelando/realty-forecast/internal/report"
	"github.com/iwvelando/realty-forecast/pkg/constants"
	"github.com/iwvelando/realty-forecast/pkg/output"
	"github.com/iwvelando/realty-forecast/pkg/validation"
	"go.uber.org/zap"
)

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	presetID := flag.String("preset", "", "use a built-in preset instead of the configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	exportConfig := flag.Bool("export-config", false, "print the resolved configuration as YAML and exit")
	advisorContext := flag.Bool("advisor-context", false, "print a plain-text data summary for an advisor and exit")
	listPresets := flag.Bool("list-presets", false, "list the built-in presets and exit")
	flag.Parse()

	if *listPresets {
		for _, p := range config.Presets() {
			fmt.Printf("%-20s %s: %s\n", p.ID, p.Name, p.Description)
		}
		return
	}

	conf, source, err := loadConfiguration(*presetID, *configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration from %s\", \"error\": \"%v\"}\n", source, err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *exportConfig {
		data, err := conf.Marshal()
		if err != nil {
			logger.Fatal("failed to encode configuration",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		_, _ = os.Stdout.Write(data)
		return
	}

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}

	err = validation.ValidateOutputFormat(outputFormat)
	if err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
			zap.String("source", source),
		)
	}

	params, err := conf.Parameters()
	if err != nil {
		logger.Fatal("invalid configuration",
			zap.String("op", "main"),
			zap.String("source", source),
			zap.Error(err),
		)
	}

	perturbations, err := conf.Perturbations(params)
	if err != nil {
		logger.Fatal("invalid scenarios",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	result, err := report.Analyze(context.Background(), logger, params, perturbations)
	if err != nil {
		logger.Fatal("failed to analyze investment",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if *advisorContext {
		output.ContextSummary(os.Stdout, result)
		return
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(os.Stdout, result, warnings)
	case constants.OutputFormatCSV:
		output.CsvFormat(os.Stdout, result)
	case constants.OutputFormatJSON:
		if err := output.JSONFormat(os.Stdout, result, warnings); err != nil {
			logger.Fatal("failed to write JSON output",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}
}

// loadConfiguration returns the preset when one is named and the configuration
// file otherwise, along with a description of where it came from.
func loadConfiguration(presetID, path string) (*config.Configuration, string, error) {
	if presetID != "" {
		source := "preset " + presetID
		conf, err := config.Preset(presetID)
		return conf, source, err
	}
	conf, err := config.LoadConfiguration(path)
	return conf, path, err
}
