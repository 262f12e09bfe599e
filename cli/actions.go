package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"go.viam.com/localplanner/config"
	"go.viam.com/localplanner/localplanner"
	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/pointcloud"
	"go.viam.com/localplanner/sim"
	"go.viam.com/localplanner/utils"
	"go.viam.com/localplanner/viz"
)

const (
	vizQueueSize = 256

	// maxConcurrentReads bounds how many cloud files are parsed at once.
	maxConcurrentReads = 4
)

// RunAction drives a simulated robot to the goal and prints a tracking report.
func RunAction(c *cli.Context) error {
	ctx := c.Context
	logger, closeLogs := newLogger(c)
	defer closeLogs()

	cfg := config.Default()
	path := c.Path(configFlag)
	if path != "" {
		read, err := config.Read(ctx, path, logger)
		if err != nil {
			return err
		}
		cfg = *read
		applyLogConfig(c, logger, cfg.Log)
	}
	goal, err := parseGoal(c.String(goalFlag))
	if err != nil {
		return err
	}

	var publisher viz.Publisher = viz.NoopPublisher{}
	var sink *viz.JSONSink
	channel := viz.NewChannelPublisher(vizQueueSize)
	if out := c.Path(vizOutFlag); out != "" {
		//nolint:gosec
		f, err := os.Create(out)
		if err != nil {
			return errors.Wrap(err, "creating visualization output")
		}
		defer goutils.UncheckedErrorFunc(f.Close)
		publisher = channel
		sink = viz.NewJSONSink(f, logger.Sublogger("viz"))
	}

	simCfg := sim.DefaultConfig()
	simCfg.Planner = cfg
	s, err := sim.New(ctx, simCfg, clock.New(), logger, localplanner.WithPublisher(publisher))
	if err != nil {
		return err
	}
	defer func() {
		goutils.UncheckedError(s.Close(context.Background()))
	}()

	workers := utils.NewStoppableWorkersWithContext(ctx)
	defer workers.Stop()
	if sink != nil {
		workers.AddWorkers(func(ctx context.Context) {
			sink.Run(ctx, channel.Messages())
		})
	}
	if path != "" {
		watcher, err := config.NewWatcher(ctx, path, config.DefaultReloadDelay, logger.Sublogger("config"))
		if err != nil {
			return err
		}
		defer goutils.UncheckedErrorFunc(watcher.Close)
		workers.AddWorkers(func(ctx context.Context) {
			reconfigureOnChange(ctx, s.Planner, watcher.Config(), logger)
		})
	}

	logger.CInfow(ctx, "driving to goal", "goal", goal, "timeout", c.Duration(durationFlag))
	report, runErr := s.Run(ctx, goal, c.Duration(durationFlag))
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", out)
	return runErr
}

func reconfigureOnChange(ctx context.Context, planner *localplanner.LocalPlanner, updates <-chan *config.Config, logger logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-updates:
			if err := planner.Reconfigure(cfg.Params); err != nil {
				logger.CErrorw(ctx, "cannot apply new parameters", "error", err)
				continue
			}
			logger.CInfow(ctx, "parameters reloaded", "file", cfg.ConfigFilePath)
		}
	}
}

// ValidateAction reads a config file and reports whether it is valid.
func ValidateAction(c *cli.Context) error {
	logger, closeLogs := newLogger(c)
	defer closeLogs()
	path := c.Path(configFlag)
	if _, err := config.Read(c.Context, path, logger); err != nil {
		return errors.Wrapf(err, "%s is not valid", path)
	}
	printf(c.App.Writer, "%s is valid", path)
	return nil
}

// SchemaAction prints the JSON schema that configuration files follow.
func SchemaAction(c *cli.Context) error {
	schema := jsonschema.Reflect(&config.Config{})
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", out)
	return nil
}

// FilterAction runs each cloud given as argument through the static cloud filter, in order.
func FilterAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one cloud file is required")
	}
	logger, closeLogs := newLogger(c)
	defer closeLogs()

	//nolint:gosec
	tfFile, err := os.Open(c.Path(transformFlag))
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(tfFile.Close)
	sensorToBase, err := pointcloud.LoadSensorTransform(tfFile)
	if err != nil {
		return err
	}

	params := pointcloud.DefaultParams()
	params.StaticFrontThreshold = c.Float64(frontFlag)
	params.MinDynamicPoints = c.Int(minDynamicFlag)
	params.Verbose = c.Bool(debugFlag)
	if err := params.Validate("filter"); err != nil {
		return err
	}

	paths := c.Args().Slice()
	clouds, err := readClouds(c.Context, paths)
	if err != nil {
		return err
	}

	filter := pointcloud.NewFilter(sensorToBase, params, nil, logger.Sublogger("filter"))
	for i, path := range paths {
		cloud := clouds[i]
		_, static, dynamic := pointcloud.Preprocess(cloud, sensorToBase, params)
		published := filter.Process(c.Context, cloud, pointcloud.IdentityTransform())
		printf(c.App.Writer, "%s: %d static, %d dynamic candidates, %d published",
			filepath.Base(path), len(static), len(dynamic), published.Size())
	}
	return nil
}

// readClouds parses all files concurrently and returns the clouds in the order of paths.
func readClouds(ctx context.Context, paths []string) ([]pointcloud.Cloud, error) {
	clouds := make([]pointcloud.Cloud, len(paths))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentReads)
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cloud, err := readCloud(path)
			if err != nil {
				return errors.Wrapf(err, "reading %s", path)
			}
			clouds[i] = cloud
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return clouds, nil
}

func readCloud(path string) (pointcloud.Cloud, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return pointcloud.Cloud{}, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	return pointcloud.ReadPoints(f, "sensor")
}
