package sweeper_config

import (
	"time"

	"github.com/NordCoder/Rotatus/internal/obs"
	pg "github.com/NordCoder/Rotatus/internal/repository/postgres"
)

type SweepCfg struct {
	Tick        time.Duration `mapstructure:"tick"`
	Grace       time.Duration `mapstructure:"grace"`
	BatchLimit  int           `mapstructure:"batch_limit"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (lc *Log) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  lc.Level,
		Pretty: lc.Pretty,
		App:    "rotatus/sweeper",
	}
}

type Config struct {
	DB    pg.Config `mapstructure:"db"`
	Sweep SweepCfg  `mapstructure:"sweep"`
	OTEL  OTEL      `mapstructure:"otel"`
	Log   Log       `mapstructure:"log"`
}
