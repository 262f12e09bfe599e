package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"go.viam.com/localplanner/config"
	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/spatialmath"
)

// printf prints a line to w.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// newLogger returns a logger writing to the app's error writer, and to the log file when one is
// given. The returned func closes the log file.
func newLogger(c *cli.Context) (logging.Logger, func()) {
	logger := logging.NewBlankLogger("localplanner")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	logger.SetLevel(logging.INFO)
	if c.Bool(debugFlag) {
		logger.SetLevel(logging.DEBUG)
	}
	closeLogs := func() {}
	if path := c.String(logFileFlag); path != "" {
		appender, closer := logging.NewFileAppender(path)
		logger.AddAppender(appender)
		closeLogs = func() { goutils.UncheckedError(closer.Close()) }
	}
	return logger, closeLogs
}

// applyLogConfig applies the log level of a config file unless the command line asked for debug.
// The log file of a config file is only used when none was given on the command line.
func applyLogConfig(c *cli.Context, logger logging.Logger, cfg *config.LogConfig) {
	if cfg == nil {
		return
	}
	if cfg.Level != "" && !c.Bool(debugFlag) {
		// validated when the config was read
		level, err := logging.LevelFromString(cfg.Level)
		if err == nil {
			logger.SetLevel(level)
		}
	}
	if cfg.File != "" && c.String(logFileFlag) == "" {
		appender, _ := logging.NewFileAppender(cfg.File)
		logger.AddAppender(appender)
	}
}

// parseGoal parses a pose written as x,y,yaw.
func parseGoal(s string) (spatialmath.Pose, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return spatialmath.Pose{}, errors.Errorf("goal must be x,y,yaw, got %q", s)
	}
	values := make([]float64, 3)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return spatialmath.Pose{}, errors.Wrapf(err, "parsing goal %q", s)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return spatialmath.Pose{}, errors.Errorf("goal must be finite, got %q", s)
		}
		values[i] = v
	}
	return spatialmath.NewPose(values[0], values[1], values[2]), nil
}
