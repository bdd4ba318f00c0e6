package config

import "time"

type Config interface {
	Port() string
	ServerName() string
	DocRoot() string

	MaxWorkers() int
	WarmWorkers() int

	ReadTimeout() time.Duration
	Linger() time.Duration
	CGITimeout() time.Duration

	LogLevel() string
	LogFile() string

	MonitorEnabled() bool

	PprofEnabled() bool
	PprofPort() string
}

func MustLoad(args []string) (Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg, err := parse(args)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *config) Port() string               { return c.port }
func (c *config) ServerName() string         { return c.serverName }
func (c *config) DocRoot() string            { return c.docRoot }
func (c *config) MaxWorkers() int            { return c.maxWorkers }
func (c *config) WarmWorkers() int           { return c.warmWorkers }
func (c *config) ReadTimeout() time.Duration { return c.readTimeout }
func (c *config) Linger() time.Duration      { return c.linger }
func (c *config) CGITimeout() time.Duration  { return c.cgiTimeout }
func (c *config) LogLevel() string           { return c.logLevel }
func (c *config) LogFile() string            { return c.logFile }
func (c *config) MonitorEnabled() bool       { return c.monitorEnabled }
func (c *config) PprofEnabled() bool         { return c.pprofEnabled }
func (c *config) PprofPort() string          { return c.pprofPort }
