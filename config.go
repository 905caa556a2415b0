package s2e

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HiroyukiBando/s2e-core/integrator"
	"github.com/HiroyukiBando/s2e-core/orbit"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soypat/geometry/md3"
	"github.com/spf13/viper"
)

// ConfigEnv is the environment variable holding the scenario directory.
const ConfigEnv = "S2E_CONFIG"

const dateTimeFormat = "2006-01-02 15:04:05"

// ReferenceConfig is a Keplerian reference spacecraft. Angles are in degrees.
type ReferenceConfig struct {
	ID                  int
	Mu                  float64
	SMA, Ecc            float64
	Inc, RAAN, ArgP, Nu float64
}

// NamedRelativeOrbit is the configuration of one relative orbit of the scenario.
type NamedRelativeOrbit struct {
	Name string
	RelativeOrbitConfig
}

// ScenarioConfig is the content of a scenario file.
type ScenarioConfig struct {
	Epoch       time.Time
	Duration    time.Duration
	Tick        time.Duration
	MetricsAddr string
	Reference   ReferenceConfig
	Relatives   []NamedRelativeOrbit
}

// ReadScenario reads the scenario file named name, without extension, from the
// directory in S2E_CONFIG and from the working directory.
func ReadScenario(name string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	if dir := filepath.Dir(name); dir != "." {
		v.AddConfigPath(dir)
	}
	if confPath := os.Getenv(ConfigEnv); confPath != "" {
		v.AddConfigPath(confPath)
	}
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", name, err)
	}
	return v, nil
}

// LoadScenarioConfig returns the scenario defined in v.
func LoadScenarioConfig(v *viper.Viper) (ScenarioConfig, error) {
	var conf ScenarioConfig
	var err error
	if conf.Epoch, err = readJDEorTime(v, "general.epoch"); err != nil {
		return conf, err
	}
	conf.Duration = v.GetDuration("general.duration")
	if conf.Duration <= 0 {
		return conf, &ConfigurationError{"general.duration", v.Get("general.duration"), "must be a positive duration"}
	}
	conf.Tick = v.GetDuration("general.tick")
	if conf.Tick <= 0 {
		return conf, &ConfigurationError{"general.tick", v.Get("general.tick"), "must be a positive duration"}
	}
	conf.MetricsAddr = v.GetString("general.metrics_addr")

	conf.Reference = ReferenceConfig{
		ID:   v.GetInt("reference.id"),
		Mu:   v.GetFloat64("reference.mu"),
		SMA:  v.GetFloat64("reference.sma"),
		Ecc:  v.GetFloat64("reference.ecc"),
		Inc:  v.GetFloat64("reference.inc"),
		RAAN: v.GetFloat64("reference.raan"),
		ArgP: v.GetFloat64("reference.argp"),
		Nu:   v.GetFloat64("reference.nu"),
	}

	names := v.GetStringSlice("general.relatives")
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return conf, &ConfigurationError{"general.relatives", name, "listed twice"}
		}
		seen[name] = true
		rconf, err := LoadRelativeOrbitConfig(v, name)
		if err != nil {
			return conf, err
		}
		conf.Relatives = append(conf.Relatives, NamedRelativeOrbit{name, rconf})
	}
	return conf, nil
}

// LoadRelativeOrbitConfig returns the relative orbit defined in the section relative.<name>.
// The gravitational parameter defaults to the one of the reference section, and the
// enumerations default to a stepwise RK4 integration of Hill's equations.
func LoadRelativeOrbitConfig(v *viper.Viper, name string) (RelativeOrbitConfig, error) {
	var conf RelativeOrbitConfig
	section := "relative." + name
	if !v.IsSet(section) {
		return conf, &ConfigurationError{"relative orbit", name, "no section " + section}
	}
	key := section + "."
	var err error
	if conf.UpdateMethod, err = UpdateMethodFromString(stringOr(v, key+"update_method", "rk")); err != nil {
		return conf, err
	}
	if conf.DynamicsModel, err = DynamicsModelFromString(stringOr(v, key+"dynamics_model", "hill")); err != nil {
		return conf, err
	}
	if conf.STMModel, err = STMModelFromString(stringOr(v, key+"stm_model", "hcw")); err != nil {
		return conf, err
	}
	if conf.Integrator, err = integrator.MethodFromString(stringOr(v, key+"integrator", "rk4")); err != nil {
		var cerr *integrator.ConfigError
		if errors.As(err, &cerr) {
			err = &ConfigurationError{key + "integrator", cerr.Value, cerr.Reason}
		}
		return conf, err
	}

	conf.Mu = v.GetFloat64("reference.mu")
	if v.IsSet(key + "mu") {
		conf.Mu = v.GetFloat64(key + "mu")
	}
	if v.IsSet(key + "step") {
		conf.StepWidth = v.GetDuration(key + "step").Seconds()
	} else {
		conf.StepWidth = 1
	}
	conf.ReferenceID = v.GetInt(key + "reference_id")
	conf.InitialPositionLVLH = md3.Vec{X: v.GetFloat64(key + "R1"), Y: v.GetFloat64(key + "R2"), Z: v.GetFloat64(key + "R3")}
	conf.InitialVelocityLVLH = md3.Vec{X: v.GetFloat64(key + "V1"), Y: v.GetFloat64(key + "V2"), Z: v.GetFloat64(key + "V3")}
	return conf, nil
}

// NewReference returns the Keplerian reference spacecraft of the scenario, at time zero.
func (c ReferenceConfig) NewReference() (*orbit.Kepler, error) {
	k, err := orbit.NewKeplerFromElements(c.Mu, c.SMA, c.Ecc, c.Inc, c.RAAN, c.ArgP, c.Nu, 0)
	if err != nil {
		return nil, fmt.Errorf("reference %d: %w", c.ID, err)
	}
	return k, nil
}

// readJDEorTime reads key either as a Julian date or as a date time.
func readJDEorTime(v *viper.Viper, key string) (time.Time, error) {
	if jde := v.GetFloat64(key); jde != 0 {
		return julian.JDToTime(jde), nil
	}
	if s := v.GetString(key); s != "" {
		if dt, err := time.Parse(dateTimeFormat, s); err == nil {
			return dt, nil
		}
	}
	dt := v.GetTime(key)
	if dt.IsZero() {
		return dt, &ConfigurationError{key, v.Get(key), "expected a JDE or a date time such as " + dateTimeFormat}
	}
	return dt.UTC(), nil
}

func stringOr(v *viper.Viper, key, def string) string {
	if !v.IsSet(key) {
		return def
	}
	return v.GetString(key)
}
