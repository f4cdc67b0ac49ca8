// Command ffpreview processes video files in console mode: it builds or
// reuses the thumbnail cache for each file given on the command line and
// prints the resulting index.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/irrwahn/ffpreview/internal/config"
	"github.com/irrwahn/ffpreview/internal/logging"
	"github.com/irrwahn/ffpreview/internal/metrics"
	"github.com/irrwahn/ffpreview/internal/preview"
	"github.com/irrwahn/ffpreview/internal/timefmt"
	"github.com/irrwahn/ffpreview/pkg/models"
)

var (
	configFlag  = flag.String("c", "", "path to config file")
	widthFlag   = flag.Int("w", 0, "thumbnail width in pixels")
	methodFlag  = flag.String("m", "", "selection method: iframe, skip, time, scene, customvf")
	skipFlag    = flag.Int("N", 0, "frame skip count for method skip")
	timeFlag    = flag.Float64("i", 0, "seconds per frame for method time")
	sceneFlag   = flag.Float64("t", 0, "scene change threshold for method scene (0..1)")
	vfFlag      = flag.String("vf", "", "custom filter expression for method customvf")
	startFlag   = flag.String("s", "", "start time ([[hh:]mm:]ss[.fff])")
	endFlag     = flag.String("e", "", "end time ([[hh:]mm:]ss[.fff])")
	subFlag     = flag.Int("sub", -1, "subtitle stream index to burn in (-1 for none)")
	reuseFlag   = flag.Bool("reuse", false, "reuse a cached index regardless of method parameters")
	forceFlag   = flag.Bool("f", false, "force rebuild even if a valid cache exists")
	verboseFlag = flag.Bool("v", false, "verbose logging")
	listFlag    = flag.Bool("l", false, "list cached previews and exit")
	metricsFlag = flag.Bool("metrics", false, "serve prometheus metrics while processing")
	versionFlag = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Println("ffpreview", models.ToolVersion)
		return
	}

	level := "info"
	if *verboseFlag {
		level = "debug"
	}
	log, err := logging.NewConsoleLogger(level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to set up logging:", err)
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	svc, err := preview.FromConfig(cfg, log)
	if err != nil {
		log.Fatalf("failed to set up pipeline: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warnf("caught signal %v, aborting", sig)
		svc.Abort()
		cancel()
	}()

	if *metricsFlag {
		ms := metrics.NewServer(cfg.Server.MetricsPort)
		go func() {
			if err := ms.Start(); err != nil {
				log.Errorf("metrics server: %v", err)
			}
		}()
		defer ms.Shutdown(context.Background())
	}

	if *listFlag {
		if err := listPreviews(svc); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ffpreview [options] <video>...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	failed := 0
	for _, file := range flag.Args() {
		if !process(ctx, svc, cfg, file) {
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := *configFlag
	if path == "" {
		path = os.Getenv("FFPREVIEW_CONFIG")
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func buildParams(cfg *config.Config, videoPath string) (models.ExtractionParams, error) {
	def := cfg.Extractor

	width := *widthFlag
	if width <= 0 {
		width = def.ThumbWidth
	}
	methodName := *methodFlag
	if methodName == "" {
		methodName = def.Method
	}
	frameSkip := *skipFlag
	if frameSkip <= 0 {
		frameSkip = def.FrameSkip
	}
	timeSkip := *timeFlag
	if timeSkip <= 0 {
		timeSkip = def.TimeSkip
	}
	sceneThresh := *sceneFlag
	if sceneThresh <= 0 {
		sceneThresh = def.SceneThresh
	}
	customVF := *vfFlag
	if customVF == "" {
		customVF = def.CustomVF
	}

	method, err := models.ParseMethod(methodName, frameSkip, timeSkip, sceneThresh, customVF)
	if err != nil {
		return models.ExtractionParams{}, err
	}

	var start, end float64
	if *startFlag != "" {
		if start, err = timefmt.Parse(*startFlag); err != nil {
			return models.ExtractionParams{}, err
		}
	}
	if *endFlag != "" {
		if end, err = timefmt.Parse(*endFlag); err != nil {
			return models.ExtractionParams{}, err
		}
	}

	return models.ExtractionParams{
		VideoPath:    videoPath,
		Start:        start,
		End:          end,
		Width:        width,
		Method:       method,
		Reuse:        *reuseFlag,
		BurnSubIndex: *subFlag,
		Force:        *forceFlag,
	}, nil
}

func process(ctx context.Context, svc *preview.Service, cfg *config.Config, file string) bool {
	params, err := buildParams(cfg, file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
		return false
	}

	fmt.Fprintf(os.Stderr, "Analyzing  %s ...\r", file)
	progress := func(ts, total float64) {
		fmt.Fprintf(os.Stderr, "\r%8s / %8s",
			timefmt.Format(ts, false, false), timefmt.Format(total, false, false))
		if total > 0 {
			fmt.Fprintf(os.Stderr, " %3d %%", int(ts*100/total))
		}
	}

	manifest, hit, err := svc.Build(ctx, params, progress)
	fmt.Fprintf(os.Stderr, "\r                                  \r")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: failed: %v\n", file, err)
		return false
	}
	if hit {
		fmt.Fprintf(os.Stderr, "%s: ok (cached, %d thumbnails)\n", file, manifest.Count)
	} else {
		fmt.Fprintf(os.Stderr, "%s: ok (%d thumbnails)\n", file, manifest.Count)
	}
	return true
}

func listPreviews(svc *preview.Service) error {
	entries, err := svc.Scan(nil)
	if err != nil {
		return err
	}
	for _, e := range entries {
		status := "no index"
		if e.Manifest != nil {
			status = fmt.Sprintf("%d thumbnails, method %s", e.Manifest.Count, e.Manifest.Method)
			if e.VideoPath == "" {
				status += ", source missing"
			}
		}
		fmt.Printf("%-40s %10d bytes  %s\n", e.Dir, e.ThumbBytes, status)
	}
	return nil
}
