package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the configuration struct for the service.
type Config struct {
	// DataFilePaths are the filepaths to the historic market data, one per
	// hunted market.
	DataFilePaths []string
	// Direction is the hunted breakout direction.
	Direction string
	// Strategy is the entry confirmation strategy.
	Strategy string
	// FixedRR is the fixed reward target multiple, zero selects adaptive
	// position management.
	FixedRR float64
	// CloseOnlyBreakout requires breakout closes beyond the level when set.
	CloseOnlyBreakout bool
	// CutoffTime is the session cutoff, formatted HH:MM.
	CutoffTime string
	// GoldenStart is the optional entry window start, formatted HH:MM.
	GoldenStart string
	// GoldenEnd is the optional entry window end, formatted HH:MM.
	GoldenEnd string
	// DBEndpoint is the trade database connection endpoint. Optional, trades
	// are only logged when unset.
	DBEndpoint string
	// DBUser is the trade database user.
	DBUser string
	// DBPass is the trade database user pass.
	DBPass string

	registeredFlags map[string]bool
}

// Validate asserts the config has sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if len(cfg.DataFilePaths) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no data filepaths provided for hunt service"))
	}
	if cfg.Direction == "" {
		errs = errors.Join(errs, fmt.Errorf("direction cannot be an empty string"))
	}
	if cfg.Strategy == "" {
		errs = errors.Join(errs, fmt.Errorf("strategy cannot be an empty string"))
	}
	if cfg.FixedRR < 0 {
		errs = errors.Join(errs, fmt.Errorf("fixed rr cannot be negative: %f", cfg.FixedRR))
	}
	if cfg.DBEndpoint != "" {
		if cfg.DBUser == "" {
			errs = errors.Join(errs, fmt.Errorf("database user cannot be an empty string"))
		}
		if cfg.DBPass == "" {
			errs = errors.Join(errs, fmt.Errorf("database pass cannot be an empty string"))
		}
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Float64:
		var def float64
		if defValue != "" {
			def, _ = strconv.ParseFloat(defValue, 64)
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	err = cfg.registerFlag("datafilepaths", &cfg.DataFilePaths, "the historic market data filepaths")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("direction", &cfg.Direction, "the hunted breakout direction")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("strategy", &cfg.Strategy, "the entry confirmation strategy")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("fixedrr", &cfg.FixedRR, "the fixed reward target multiple")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("closeonlybreakout", &cfg.CloseOnlyBreakout, "require breakout closes beyond the level")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("cutofftime", &cfg.CutoffTime, "the session cutoff (HH:MM)")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("goldenstart", &cfg.GoldenStart, "the entry window start (HH:MM)")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("goldenend", &cfg.GoldenEnd, "the entry window end (HH:MM)")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbendpoint", &cfg.DBEndpoint, "the trade database endpoint")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbuser", &cfg.DBUser, "the trade database user")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbpass", &cfg.DBPass, "the trade database pass")
	if err != nil {
		return err
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
