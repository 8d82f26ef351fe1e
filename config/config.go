package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	Endpoint struct {
		Proto    string `json:"proto" yaml:"proto"`
		Address  string `json:"address" yaml:"address"`
		Compress bool   `json:"compress" yaml:"compress"`
	}

	Config struct {
		Listeners   []Endpoint    `json:"listeners" yaml:"listeners"`
		Secret      string        `json:"secret" yaml:"secret"`
		DialTimeout time.Duration `json:"dial_timeout" yaml:"dialTimeout"`
	}
)

func New() *Config {
	return &Config{
		Listeners:   []Endpoint{{Proto: "tcp", Address: ":9420"}},
		DialTimeout: time.Second * 5,
	}
}

func Load(path string) (*Config, error) {
	var (
		err error
		buf []byte
	)
	cfg := New()
	if buf, err = os.ReadFile(path); err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(buf, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
