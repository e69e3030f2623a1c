// Package config loads controller settings from an .ini file.
//
//	[peripheral]
//	interface     = socketcan
//	channel       = can0
//	mailboxes     = 3
//	rx_fifo_depth = 3
//	loopback      = false
//	tick_period   = 1ms
//
//	[log]
//	level = info
//
// Missing keys keep their default value.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/samsamfire/gobxcan/pkg/peripheral"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultInterface  = "sim"
	DefaultChannel    = "sim0"
	DefaultTickPeriod = time.Millisecond
	DefaultLogLevel   = "info"
)

type Config struct {
	Interface   string
	Channel     string
	Mailboxes   int
	RxFifoDepth int
	Loopback    bool
	TickPeriod  time.Duration
	LogLevel    string
}

func Default() *Config {
	return &Config{
		Interface:   DefaultInterface,
		Channel:     DefaultChannel,
		Mailboxes:   3,
		RxFifoDepth: 3,
		TickPeriod:  DefaultTickPeriod,
		LogLevel:    DefaultLogLevel,
	}
}

// Load reads a configuration, file can be a path, []byte or an io.Reader
func Load(file any) (*Config, error) {
	cfg, err := ini.Load(file)
	if err != nil {
		return nil, err
	}
	c := Default()

	section := cfg.Section("peripheral")
	c.Interface = section.Key("interface").MustString(c.Interface)
	c.Channel = section.Key("channel").MustString(c.Channel)
	if section.HasKey("mailboxes") {
		c.Mailboxes, err = section.Key("mailboxes").Int()
		if err != nil || c.Mailboxes < 1 || c.Mailboxes > 255 {
			return nil, fmt.Errorf("%w : mailboxes %q", ErrInvalidConfig, section.Key("mailboxes").String())
		}
	}
	if section.HasKey("rx_fifo_depth") {
		c.RxFifoDepth, err = section.Key("rx_fifo_depth").Int()
		if err != nil || c.RxFifoDepth < 1 {
			return nil, fmt.Errorf("%w : rx_fifo_depth %q", ErrInvalidConfig, section.Key("rx_fifo_depth").String())
		}
	}
	if section.HasKey("loopback") {
		c.Loopback, err = section.Key("loopback").Bool()
		if err != nil {
			return nil, fmt.Errorf("%w : loopback %q", ErrInvalidConfig, section.Key("loopback").String())
		}
	}
	if section.HasKey("tick_period") {
		c.TickPeriod, err = section.Key("tick_period").Duration()
		if err != nil || c.TickPeriod < 0 {
			return nil, fmt.Errorf("%w : tick_period %q", ErrInvalidConfig, section.Key("tick_period").String())
		}
	}

	c.LogLevel = cfg.Section("log").Key("level").MustString(c.LogLevel)
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return nil, fmt.Errorf("%w : %v", ErrInvalidConfig, err)
	}
	return c, nil
}

// Options returns the peripheral options described by the configuration
func (c *Config) Options() peripheral.Options {
	return peripheral.Options{
		Mailboxes:   c.Mailboxes,
		RxFifoDepth: c.RxFifoDepth,
		Loopback:    c.Loopback,
		TickPeriod:  c.TickPeriod,
	}
}

// ApplyLogLevel sets the level of the standard logger
func (c *Config) ApplyLogLevel() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	return nil
}
