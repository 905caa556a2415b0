package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	s2e "github.com/HiroyukiBando/s2e-core"
	"github.com/HiroyukiBando/s2e-core/orbit"
	kitlog "github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// relprop reads a scenario file and propagates its relative orbits.

const defaultScenario = "~~unset~~"

var (
	scenario string
	linger   bool
)

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "scenario TOML file, searched in $S2E_CONFIG and the working directory")
	flag.BoolVar(&linger, "linger", false, "keep serving metrics after the propagation until interrupted")
}

func main() {
	flag.Parse()
	if scenario == defaultScenario {
		if flag.NArg() == 0 {
			log.Fatal("no scenario provided")
		}
		scenario = flag.Arg(0)
	}
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)

	v, err := s2e.ReadScenario(scenario)
	if err != nil {
		log.Fatal(err)
	}
	conf, err := s2e.LoadScenarioConfig(v)
	if err != nil {
		log.Fatalf("%s: %s", scenario, err)
	}

	reg := prometheus.NewRegistry()
	metrics, err := s2e.NewMetrics(reg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if conf.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: conf.MetricsAddr, Handler: mux}
		go func() {
			logger.Log("level", "info", "subsys", "metrics", "addr", conf.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log("level", "critical", "subsys", "metrics", "err", err)
				os.Exit(1)
			}
		}()
	}

	sim, err := s2e.NewScenarioFromConfig(conf, metrics, logger)
	if err != nil {
		log.Fatalf("%s: %s", scenario, err)
	}
	report := func(s *s2e.Scenario) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, ro := range s.Relatives() {
			geo := ro.Geodetic()
			logger.Log("level", "info", "subsys", "relprop", "orbit", ro.Name(), "t", ro.PropagationTime(),
				"r(LVLH)", ro.RelativePositionLVLH(), "v(LVLH)", ro.RelativeVelocityLVLH(),
				"lat", orbit.Rad2deg(geo.Latitude), "lon", orbit.Rad2deg(geo.Longitude), "alt", geo.Altitude)
		}
		return nil
	}
	if err := sim.Run(conf.Duration, report); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}

	if srv == nil {
		return
	}
	if linger {
		<-ctx.Done()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log("level", "error", "subsys", "metrics", "err", err)
	}
}
