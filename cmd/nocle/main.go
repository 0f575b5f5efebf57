package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/nocle/pkg/audio"
	_ "github.com/xaionaro-go/nocle/pkg/audiofile/implementations/raw"
	_ "github.com/xaionaro-go/nocle/pkg/audiofile/implementations/vorbis"
	_ "github.com/xaionaro-go/nocle/pkg/audiofile/implementations/wav"
	"github.com/xaionaro-go/nocle/pkg/config"
	"github.com/xaionaro-go/nocle/pkg/denoise"
	"github.com/xaionaro-go/nocle/pkg/filters"
	"github.com/xaionaro-go/nocle/pkg/inference"
	_ "github.com/xaionaro-go/nocle/pkg/inference/implementations/onnxruntime"
	_ "github.com/xaionaro-go/nocle/pkg/inference/implementations/rnnoise"
	"github.com/xaionaro-go/nocle/pkg/metrics"
	"github.com/xaionaro-go/observability"
)

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	configPath := pflag.String("config", "", "path to a YAML config file")
	backend := pflag.String("backend", "", fmt.Sprintf("inference backend (%v)", inference.Backends()))
	modelPath := pflag.String("model", "", "path to the model file")
	chunkSize := pflag.Int("chunk-size", 0, "amount of samples the model consumes per call")
	sampleRate := pflag.Uint32("sample-rate", 0, "the sample rate the model works at")
	workers := pflag.Int("workers", 0, "amount of chunks predicted concurrently")
	filtersFlag := pflag.String("filters", "", "'default', 'none' or a comma separated list of filter steps to apply after the model")
	wienerSize := pflag.Int("wiener-size", 0, "Wiener filter window size (odd, 3..31)")
	gaussianSigma := pflag.Float64("gaussian-sigma", 0, "Gaussian blur sigma (0..5]")
	dumpConfig := pflag.Bool("dump-config", false, "print the resulting configuration and exit")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	metricsAddr := pflag.String("metrics-listen-addr", "", "an address to serve Prometheus metrics at")
	pflag.Parse()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		assertNoError(err)
	}

	flagChanged := pflag.CommandLine.Changed
	if flagChanged("backend") {
		cfg.Inference.Backend = inference.BackendFromString(*backend)
	}
	if flagChanged("model") {
		cfg.Inference.ModelPath = *modelPath
	}
	if flagChanged("chunk-size") {
		cfg.Audio.ChunkSize = *chunkSize
	}
	if flagChanged("sample-rate") {
		cfg.Audio.SampleRate = audio.SampleRate(*sampleRate)
	}
	if flagChanged("workers") {
		cfg.Inference.Workers = *workers
	}
	if flagChanged("filters") {
		switch *filtersFlag {
		case "none", "":
			cfg.Filters.Enabled = false
		case "default":
			cfg.Filters.Enabled = true
			cfg.Filters.Chain = nil
		default:
			chain, err := filters.ParseChain(*filtersFlag)
			assertNoError(err)
			cfg.Filters.Enabled = true
			cfg.Filters.Chain = chain
		}
	}
	if flagChanged("wiener-size") {
		cfg.Filters.WienerSize = *wienerSize
	}
	if flagChanged("gaussian-sigma") {
		cfg.Filters.GaussianSigma = *gaussianSigma
	}
	assertNoError(cfg.Validate())

	if *dumpConfig {
		b, err := cfg.Bytes()
		assertNoError(err)
		os.Stdout.Write(b)
		return
	}

	if pflag.NArg() != 2 {
		panic(fmt.Errorf("expected exactly two arguments: <input-file> <output-file>"))
	}

	if *netPprofAddr != "" {
		observability.Go(ctx, func() { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	var m *metrics.Metrics
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		observability.Go(ctx, func() { l.Error(http.ListenAndServe(*metricsAddr, mux)) })
	}

	pipeline, err := denoise.New(ctx, cfg, denoise.OptionMetrics(m))
	assertNoError(err)
	defer pipeline.Close()

	err = pipeline.Run(ctx, pflag.Arg(0), pflag.Arg(1))
	assertNoError(err)
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
