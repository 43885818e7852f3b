package run

import (
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint
	"time"

	"github.com/urfave/cli/v2"

	"github.com/cockroachdb/errors"
	"github.com/projecteru2/core/log"
	coretypes "github.com/projecteru2/core/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paperandsoap/networking-ovn/configs"
	"github.com/paperandsoap/networking-ovn/internal/ovn"
)

// Runner .
type Runner func(*cli.Context, Runtime) error

// Runtime carries the collaborators a command needs once config is
// loaded and the northbound connection is up.
type Runtime struct {
	NB *ovn.Client
}

// Run wraps a Runner into a cli action: load config files, set up
// logging, expose the prof/metrics port, dial the northbound database,
// tear down afterwards.
func Run(fn Runner) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg := &configs.Conf
		if err := cfg.Load(c.StringSlice("config")); err != nil {
			return err
		}
		if err := log.SetupLog(c.Context, &coretypes.ServerLogConfig{
			Level:    cfg.LogLevel,
			Filename: cfg.LogFile,
			UseJSON:  cfg.Env != "dev",
		}, cfg.SentryDSN); err != nil {
			return errors.Wrap(err, "failed to setup log")
		}
		go prof(c, cfg.ProfHTTPPort)

		nbCli, err := ovn.Dial(c.Context, &cfg.OVN)
		if err != nil {
			return err
		}
		defer nbCli.Close()

		return fn(c, Runtime{NB: nbCli})
	}
}

// prof serves pprof and prometheus metrics on the configured port.
func prof(c *cli.Context, port int) {
	if port <= 0 {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		ReadHeaderTimeout: 3 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.WithFunc("run.prof").Errorf(c.Context, err, "prof http server exited")
	}
}
