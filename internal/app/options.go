package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tabiguide-next/internal/config"
	"github.com/tabiguide-next/internal/logger"

	"go.uber.org/zap"
)

// Mode selects which ledger services a process runs
type Mode string

// Process modes
const (
	ModeAll    Mode = "all"
	ModeAPI    Mode = "api"
	ModeWorker Mode = "worker"
)

// ParseMode validates a -mode value; blank means ModeAll
func ParseMode(raw string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q", raw)
	}
}

func (m Mode) servesAPI() bool { return m == ModeAll || m == ModeAPI }

func (m Mode) runsWorker() bool { return m == ModeAll || m == ModeWorker }

// Options application run options. A zero ShutdownTimeout uses server.shutdown_timeout_seconds.
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 && opts.Config != nil {
		opts.ShutdownTimeout = opts.Config.Server.ShutdownTimeout()
	}
	return opts
}
