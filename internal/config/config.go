package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "SITETRACK_"

type Application struct {
	Host     string   `koanf:"host"`
	Port     int      `koanf:"port"`
	Frontend Frontend `koanf:"frontend"`
	Database Database `koanf:"db"`
	Receipts Receipts `koanf:"receipts"`
	Budget   Budget   `koanf:"budget"`
}

type Frontend struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

type Database struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Pass     string `koanf:"pass"`
	Name     string `koanf:"name"`
	Schema   string `koanf:"schema"`
	MaxConns int32  `koanf:"maxconns"`
	MinConns int32  `koanf:"minconns"`
}

type Receipts struct {
	Dir       string `koanf:"dir"`
	MaxSizeMB int64  `koanf:"maxsizemb"`
}

// MaxBytes is the upload cap for one multipart request.
func (r Receipts) MaxBytes() int64 {
	return r.MaxSizeMB << 20
}

type Budget struct {
	// ReviewThreshold is a decimal amount in major units, e.g. "1000.00".
	ReviewThreshold string `koanf:"reviewthreshold"`
}

func Defaults() Application {
	return Application{
		Host: "http://localhost:3000",
		Port: 8181,
		Frontend: Frontend{
			Enabled: true,
			Dir:     "frontend",
		},
		Database: Database{
			Host:     "localhost",
			Port:     5432,
			User:     "sitetrack",
			Pass:     "",
			Name:     "sitetrack",
			Schema:   "sitetrack",
			MaxConns: 25,
			MinConns: 5,
		},
		Receipts: Receipts{
			Dir:       "uploads",
			MaxSizeMB: 10,
		},
		Budget: Budget{
			ReviewThreshold: "1000.00",
		},
	}
}

// Load layers defaults, the YAML file at path, a .env file in the working
// directory and SITETRACK_ environment variables, later layers winning.
func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	if err := godotenv.Load(); err == nil {
		log.Info("Loaded environment from .env")
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
