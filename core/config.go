package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName                   string
		Build                     string
		Env                       string // DEV (local; default), TEST, QA, PROD
		Debug                     bool
		TestMode                  bool
		SecretKey                 string
		FrontendBaseURL           string
		DefaultFromEmail          mail.Address
		SendgridApiKey            string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration
		PassingGrade              float64
		WorkDir                   string

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      string
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		MaxUploadSize             string // echo BodyLimit format, e.g. "25M"
		CORSAllowOrigins          []string
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	StorageConfig struct {
		Endpoint      string // empty: local disk
		AccessKey     string
		SecretKey     string
		Bucket        string
		UseSSL        bool
		PresignExpiry time.Duration
		LocalDir      string
		LocalURL      string
	}
)

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c StorageConfig) IsLocal() bool {
	return c.Endpoint == ""
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("APP_NAME", "ACTION LMS")
	v.SetDefault("BUILD", "develop")
	v.SetDefault("DEBUG", false)
	v.SetDefault("SECRET_KEY", "")
	v.SetDefault("FRONTEND_BASE_URL", "http://localhost:3000")
	v.SetDefault("DEFAULT_FROM_EMAIL", "ACTION LMS <noreply@localhost>")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("ROLLBAR_TOKEN", "")
	v.SetDefault("PASSWORD_RESET_TIMEOUT_DELTA", 3*24*time.Hour)
	v.SetDefault("PASSING_GRADE", 75.0)

	v.SetDefault("SERVER_HOST", "")
	v.SetDefault("SERVER_PORT", "8000")
	v.SetDefault("SERVER_DEBUG_HOST", "0.0.0.0:4000")
	v.SetDefault("SERVER_READ_TIMEOUT", 5*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second)
	v.SetDefault("JWT_EXPIRATION_DELTA", 7*24*time.Hour)
	v.SetDefault("JWT_REFRESH_EXPIRATION_DELTA", 4*7*24*time.Hour)
	v.SetDefault("MAX_UPLOAD_SIZE", "25M")
	v.SetDefault("CORS_ALLOW_ORIGINS", []string{"*"})

	v.SetDefault("DB_ENGINE", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "lms")
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_ADMIN_USER", "postgres")
	v.SetDefault("DB_ADMIN_PASSWORD", "")
	v.SetDefault("DB_DISABLE_TLS", false)

	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "lms")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_PRESIGN_EXPIRY", 15*time.Minute)
	v.SetDefault("STORAGE_LOCAL_DIR", "media")
	v.SetDefault("STORAGE_LOCAL_URL", "/media")
}

// NewConfig reads the app configuration from the environment. Values are looked up under the `ENV` prefix
// (i.e. DEV_SECRET_KEY) after loading the optional `config/.env.<env>` file.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v := viper.New()
	setDefaults(v)
	switch env {
	case "DEV":
		v.SetDefault("DEBUG", true)
		v.SetDefault("SECRET_KEY", "dev-3v!k2p&q+l8m$ez4r7_0w(x9#hy6c1t5n-dev")
		v.SetDefault("DB_DISABLE_TLS", true)
	case "TEST":
		v.SetDefault("SECRET_KEY", "test-x0qg$7n!r4m&p2k+e9w_c6b#l1t8h5-test")
		v.SetDefault("DB_DISABLE_TLS", true)
	}
	v.SetEnvPrefix(env)
	v.AutomaticEnv()

	conf, err := loadConfig(v, env, wd)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

func loadConfig(v *viper.Viper, env, wd string) (*Config, error) {
	from, err := mail.ParseAddress(v.GetString("DEFAULT_FROM_EMAIL"))
	if err != nil {
		return nil, fmt.Errorf("parsing DEFAULT_FROM_EMAIL: %w", err)
	}

	conf := &Config{
		AppName:                   v.GetString("APP_NAME"),
		Build:                     v.GetString("BUILD"),
		Env:                       env,
		Debug:                     v.GetBool("DEBUG"),
		TestMode:                  env == "TEST",
		SecretKey:                 v.GetString("SECRET_KEY"),
		FrontendBaseURL:           strings.TrimSuffix(v.GetString("FRONTEND_BASE_URL"), "/"),
		DefaultFromEmail:          *from,
		SendgridApiKey:            v.GetString("SENDGRID_API_KEY"),
		RollbarToken:              v.GetString("ROLLBAR_TOKEN"),
		PasswordResetTimeoutDelta: v.GetDuration("PASSWORD_RESET_TIMEOUT_DELTA"),
		PassingGrade:              v.GetFloat64("PASSING_GRADE"),
		WorkDir:                   wd,
		Server: ServerConfig{
			Host:                      v.GetString("SERVER_HOST"),
			Port:                      v.GetString("SERVER_PORT"),
			DebugHost:                 v.GetString("SERVER_DEBUG_HOST"),
			ReadTimeout:               v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:              v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout:           v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			JWTExpirationDelta:        v.GetDuration("JWT_EXPIRATION_DELTA"),
			JWTRefreshExpirationDelta: v.GetDuration("JWT_REFRESH_EXPIRATION_DELTA"),
			MaxUploadSize:             v.GetString("MAX_UPLOAD_SIZE"),
			CORSAllowOrigins:          v.GetStringSlice("CORS_ALLOW_ORIGINS"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("DB_ENGINE"),
			Host:          v.GetString("DB_HOST"),
			Port:          v.GetString("DB_PORT"),
			Name:          v.GetString("DB_NAME"),
			User:          v.GetString("DB_USER"),
			Password:      v.GetString("DB_PASSWORD"),
			AdminUser:     v.GetString("DB_ADMIN_USER"),
			AdminPassword: v.GetString("DB_ADMIN_PASSWORD"),
			DisableTLS:    v.GetBool("DB_DISABLE_TLS"),
		},
		Storage: StorageConfig{
			Endpoint:      v.GetString("STORAGE_ENDPOINT"),
			AccessKey:     v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:     v.GetString("STORAGE_SECRET_KEY"),
			Bucket:        v.GetString("STORAGE_BUCKET"),
			UseSSL:        v.GetBool("STORAGE_USE_SSL"),
			PresignExpiry: v.GetDuration("STORAGE_PRESIGN_EXPIRY"),
			LocalDir:      v.GetString("STORAGE_LOCAL_DIR"),
			LocalURL:      strings.TrimSuffix(v.GetString("STORAGE_LOCAL_URL"), "/"),
		},
	}
	if !filepath.IsAbs(conf.Storage.LocalDir) {
		conf.Storage.LocalDir = filepath.Join(wd, conf.Storage.LocalDir)
	}
	return conf, conf.check()
}

func (c *Config) check() error {
	v := vala.BeginValidation().Validate(
		vala.StringNotEmpty(c.SecretKey, "SECRET_KEY"),
		vala.StringNotEmpty(c.Database.Engine, "DB_ENGINE"),
		vala.StringNotEmpty(c.Database.Name, "DB_NAME"),
		vala.StringNotEmpty(c.Server.MaxUploadSize, "MAX_UPLOAD_SIZE"),
		vala.GreaterThan(int(c.Server.JWTExpirationDelta), 0, "JWT_EXPIRATION_DELTA"),
		vala.GreaterThan(int(c.Server.JWTRefreshExpirationDelta), 0, "JWT_REFRESH_EXPIRATION_DELTA"),
		vala.GreaterThan(int(c.PasswordResetTimeoutDelta), 0, "PASSWORD_RESET_TIMEOUT_DELTA"),
	)
	if !c.Debug {
		v = v.Validate(vala.StringNotEmpty(c.Database.User, "DB_USER"))
	}
	if !c.Storage.IsLocal() {
		v = v.Validate(
			vala.StringNotEmpty(c.Storage.AccessKey, "STORAGE_ACCESS_KEY"),
			vala.StringNotEmpty(c.Storage.SecretKey, "STORAGE_SECRET_KEY"),
			vala.StringNotEmpty(c.Storage.Bucket, "STORAGE_BUCKET"),
		)
	}
	return v.Check()
}
