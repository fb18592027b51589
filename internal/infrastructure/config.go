package infra

import (
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix env prefix for viper
const EnvPrefix = "LESSONRELAY"

// runtime environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// AppConfig App option object
type AppConfig struct {
	AppID          string        `mapstructure:"app_id" json:"app_id" yaml:"app_id" validate:"required"`            // Application ID
	Host           string        `mapstructure:"host" json:"host" yaml:"host"`                                      // bind host address
	Port           int           `mapstructure:"port" json:"port" yaml:"port"`                                      // bind listen port
	Env            string        `mapstructure:"env" json:"env" yaml:"env" validate:"oneof=development production"` // runtime environment
	SessionTimeout time.Duration `mapstructure:"session_timeout" json:"session_timeout" yaml:"session_timeout"`     // JWT lifetime and conversation session TTL
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"`
	Store          struct {
		Driver   string `mapstructure:"driver" json:"driver" yaml:"driver" validate:"oneof=file memory redis mysql postgres"`
		FilePath string `mapstructure:"file_path" json:"file_path" yaml:"file_path"` // snapshot document for the file driver
		Key      string `mapstructure:"key" json:"key" yaml:"key"`                   // snapshot key for the redis driver
	} `mapstructure:"store" json:"store" yaml:"store"`
	Database struct {
		Driver   string `mapstructure:"driver" json:"driver" yaml:"driver"`                                          // driver name, filled from store.driver
		Host     string `mapstructure:"host" json:"host" yaml:"host"`                                                // server host
		MaxConn  int32  `mapstructure:"maxconn" json:"maxconn" yaml:"maxconn" validate:"min=1"`                      // maximum opening connections number
		Password string `mapstructure:"password" json:"-" yaml:"password"`                                           // db password
		Port     int    `mapstructure:"port" json:"port" yaml:"port"`                                                // server port
		Protocol string `mapstructure:"protocol" json:"protocol" yaml:"protocol" validate:"omitempty,oneof=tcp udp"` // connection protocol, eg.tcp
		Query    string `mapstructure:"query" json:"query" yaml:"query"`                                             // DSN query parameter
		Schema   string `mapstructure:"schema" json:"schema" yaml:"schema"`                                          // use schema
		User     string `mapstructure:"username" json:"username" yaml:"username"`                                    // db username
	} `mapstructure:"database" json:"database" yaml:"database"`
	Media struct {
		Driver   string `mapstructure:"driver" json:"driver" yaml:"driver" validate:"oneof=local gcs memory"`
		Root     string `mapstructure:"root" json:"root" yaml:"root"`       // local media directory
		Bucket   string `mapstructure:"bucket" json:"bucket" yaml:"bucket"` // gcs bucket
		Prefix   string `mapstructure:"prefix" json:"prefix" yaml:"prefix"` // gcs object prefix
		MaxBytes int64  `mapstructure:"max_bytes" json:"max_bytes" yaml:"max_bytes" validate:"min=1"`
	} `mapstructure:"media" json:"media" yaml:"media"`
	Session struct {
		Driver string `mapstructure:"driver" json:"driver" yaml:"driver" validate:"oneof=memory redis"`
	} `mapstructure:"session" json:"session" yaml:"session"`
	Notify struct {
		Concurrency int `mapstructure:"concurrency" json:"concurrency" yaml:"concurrency" validate:"min=1"` // parallel deliveries per fan-out
	} `mapstructure:"notify" json:"notify" yaml:"notify"`
	Logging struct {
		FilePath string `mapstructure:"file_path" json:"file_path" yaml:"file_path"`                            // log file path
		Level    string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"` // global logging level
	} `mapstructure:"logging" json:"logging" yaml:"logging"`
	Security struct {
		IDLength        int    `mapstructure:"id_length" json:"id_length" yaml:"id_length" validate:"min=8"` // length of generated ID for entities
		JWTMethod       string `mapstructure:"jwt_method" json:"jwt_method" yaml:"jwt_method" validate:"oneof=HS256 HS512"`
		JWTSecret       string `mapstructure:"jwt_secret" json:"-" yaml:"jwt_secret" validate:"required"`
		TokenName       string `mapstructure:"token_name" json:"token_name" yaml:"token_name" validate:"required"` // jwt token name set in cookie
		ResetSecretHash string `mapstructure:"reset_secret_hash" json:"-" yaml:"reset_secret_hash"`                // bcrypt hash guarding the full reset, empty disables it
		Locale          string `mapstructure:"locale" json:"locale" yaml:"locale" validate:"oneof=en zh"`          // validation message language
	} `mapstructure:"security" json:"security" yaml:"security"`
	KVStore struct {
		Host     string `mapstructure:"host" json:"host" yaml:"host"` // bind host address
		Port     int    `mapstructure:"port" json:"port" yaml:"port"` // bind listen port
		Password string `mapstructure:"password" json:"-" yaml:"password"`
		DB       int    `mapstructure:"db" json:"db" yaml:"db"`
	} `mapstructure:"kv" json:"kv" yaml:"kv"`
	DevOP struct {
		APM bool `mapstructure:"apm" json:"apm" yaml:"apm"`
	} `mapstructure:"devop" json:"devop" yaml:"devop"`
}

// UsesKVStore whether any component needs the redis connection
func (c *AppConfig) UsesKVStore() bool {
	return c.Store.Driver == "redis" || c.Session.Driver == "redis"
}

// InitConfig init app config using viper
func InitConfig() (*AppConfig, error) {
	// app
	pflag.String("config", "", "optional config file (yaml, json or toml)")
	pflag.String("host", "", "binding address")
	pflag.String("app_id", "lessonrelay", "application identifier")
	pflag.String("env", EnvDevelopment, "runtime environment, can be 'development' or 'production'")
	pflag.Int("port", 8081, "listening port")
	pflag.Duration("session_timeout", 24*time.Hour, "JWT lifetime and idle conversation lifetime(m, s and h units are supported), eg.30m")
	pflag.Duration("request_timeout", 30*time.Second, "maximum time spent on one inbound action")

	// store
	pflag.String("store.driver", "file", "snapshot store, one of file, memory, redis, mysql, postgres")
	pflag.String("store.file_path", "data/lessonrelay.json", "snapshot document path for the file store")
	pflag.String("store.key", "lessonrelay:snapshot", "snapshot key for the redis store")

	// database
	pflag.String("database.host", "127.0.0.1", "database host")
	pflag.Int("database.port", 3306, "database server port")
	pflag.String("database.protocol", "", "connection protocol(if mysql is used, this flag must be set), eg.tcp")
	pflag.String("database.username", "", "database username")
	pflag.String("database.password", "", "database password")
	pflag.String("database.schema", "", "database schema")
	pflag.String("database.query", "", "additional DSN query parameters('?' is auto prefixed)")
	pflag.Int32("database.maxconn", 10, "max connection count")

	// media
	pflag.String("media.driver", "local", "media storage, one of local, gcs, memory")
	pflag.String("media.root", "data/media", "media directory for the local driver")
	pflag.String("media.bucket", "", "bucket for the gcs driver")
	pflag.String("media.prefix", "", "object prefix for the gcs driver")
	pflag.Int64("media.max_bytes", 50<<20, "maximum accepted media payload")

	// session
	pflag.String("session.driver", "memory", "conversation session store, one of memory, redis")

	// notify
	pflag.Int("notify.concurrency", 8, "parallel deliveries per notification fan-out")

	// logging
	pflag.String("logging.level", "info", "logging level")
	pflag.String("logging.file_path", "", "log to file")

	// security
	pflag.Int("security.id_length", 21, "set length of generated ID for entities")
	pflag.String("security.jwt_method", "HS256", "hash algorithm used for JWT auth")
	pflag.String("security.jwt_secret", "", "JWT secret (required)")
	pflag.String("security.token_name", "lessonrelay_token", "cookie name to store the token")
	pflag.String("security.reset_secret_hash", "", "bcrypt hash of the full reset secret, empty disables reset")
	pflag.String("security.locale", "en", "validation message language, en or zh")

	// kv storage
	pflag.String("kv.host", "127.0.0.1", "kv host")
	pflag.Int("kv.port", 6379, "kv server port")
	pflag.String("kv.password", "", "kv server password")
	pflag.Int("kv.db", 0, "kv database index")

	// DevOp
	pflag.Bool("devop.apm", false, "enable apm metrics")

	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if file := viper.GetString("config"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var config = new(AppConfig)
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}
	config.Database.Driver = config.Store.Driver
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if config.Logging.Level == "debug" {
		if configJSON, err := json.MarshalIndent(config, "", "  "); err == nil {
			log.Printf("App config: %s\n", string(configJSON))
		}
	}
	return config, nil
}

func validateConfig(config *AppConfig) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("yaml")
		if name == "-" || name == "" {
			return ""
		}
		return name
	})

	var msg []string
	err := validate.Struct(config)
	if _, ok := err.(*validator.InvalidValidationError); ok {
		return fmt.Errorf("failed to validate config: %w", err)
	}
	if err != nil {
		for _, field := range err.(validator.ValidationErrors) {
			namespace := field.Namespace()
			fieldName := namespace[strings.IndexByte(namespace, '.')+1:] // trim top level namespace
			switch field.Tag() {
			case "required":
				msg = append(msg, fmt.Sprintf("%s is required", fieldName))
			case "oneof":
				msg = append(msg, fmt.Sprintf("%s must be one of (%s)", fieldName, field.Param()))
			case "min":
				msg = append(msg, fmt.Sprintf("%s must be at least %s", fieldName, field.Param()))
			default:
				msg = append(msg, fmt.Sprintf("%s is invalid (%s)", fieldName, field.Tag()))
			}
		}
	}
	msg = append(msg, checkDrivers(config)...)
	if len(msg) > 0 {
		return fmt.Errorf("failed to validate config: \n%s", strings.Join(msg, "\n"))
	}
	return nil
}

// checkDrivers options that are only required by the selected drivers
func checkDrivers(config *AppConfig) (msg []string) {
	switch config.Store.Driver {
	case "file":
		if config.Store.FilePath == "" {
			msg = append(msg, "store.file_path is required by the file store")
		}
	case "redis":
		if config.Store.Key == "" {
			msg = append(msg, "store.key is required by the redis store")
		}
	case "mysql", "postgres":
		if config.Database.User == "" {
			msg = append(msg, "database.username is required by the sql store")
		}
		if config.Database.Schema == "" {
			msg = append(msg, "database.schema is required by the sql store")
		}
	}
	switch config.Media.Driver {
	case "local":
		if config.Media.Root == "" {
			msg = append(msg, "media.root is required by the local media driver")
		}
	case "gcs":
		if config.Media.Bucket == "" {
			msg = append(msg, "media.bucket is required by the gcs media driver")
		}
	}
	if config.UsesKVStore() && config.KVStore.Host == "" {
		msg = append(msg, "kv.host is required by the redis drivers")
	}
	return
}
