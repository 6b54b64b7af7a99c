// Command rangeimage projects a LiDAR point cloud into a spherical range
// image and renders, exports, stores or serves the result.
//
//	rangeimage -input frame.pcd -png range.png
//	rangeimage -config config/projection.pandar40p.example.json -input capture.pcap -db rangeimage.db -listen :8082
//	rangeimage migrate status -db rangeimage.db
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/banshee-data/rangeimage/internal/config"
	"github.com/banshee-data/rangeimage/internal/db"
	"github.com/banshee-data/rangeimage/internal/lidar"
	"github.com/banshee-data/rangeimage/internal/lidar/l1packets"
	"github.com/banshee-data/rangeimage/internal/lidar/l2frames"
	"github.com/banshee-data/rangeimage/internal/lidar/l3grid"
	"github.com/banshee-data/rangeimage/internal/lidar/monitor"
	"github.com/banshee-data/rangeimage/internal/lidar/storage/sqlite"
	"github.com/banshee-data/rangeimage/internal/version"
)

// options are the parsed command line flags.
type options struct {
	configPath string
	input      string
	udpPort    int
	pngPath    string
	htmlPath   string
	ascPath    string
	channel    string
	dbPath     string
	sensorID   string
	listen     string
	verbose    bool
	trace      bool
	version    bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*options, error) {
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Projection config JSON (default: built-in HDL-64E geometry)")
	fs.StringVar(&o.input, "input", "", "Point cloud to project (.pcd, .asc or .pcap)")
	fs.IntVar(&o.udpPort, "udp-port", 0, "UDP port to replay from .pcap input (default: from config)")
	fs.StringVar(&o.pngPath, "png", "", "Write a heat map PNG to this path")
	fs.StringVar(&o.htmlPath, "html", "", "Write an echarts heat map page to this path")
	fs.StringVar(&o.ascPath, "asc", "", "Export written cells as CloudCompare ASC to this path")
	fs.StringVar(&o.channel, "channel", "range", "Channel to render: range, intensity, x, y or z")
	fs.StringVar(&o.dbPath, "db", "", "Persist the image to this SQLite database")
	fs.StringVar(&o.sensorID, "sensor-id", "", "Sensor id for persisted snapshots (default: from config)")
	fs.StringVar(&o.listen, "listen", "", "Serve the monitor on this address until interrupted")
	fs.BoolVar(&o.verbose, "v", false, "Enable diagnostic logging")
	fs.BoolVar(&o.trace, "trace", false, "Enable per-point trace logging")
	fs.BoolVar(&o.version, "version", false, "Print version information and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.input == "" && !o.version {
		return nil, errors.New("-input is required")
	}
	return o, nil
}

// configureLogging routes every package's streams to w.
func configureLogging(w io.Writer, verbose, trace bool) {
	lidar.SetLogWriters(lidar.NewLogWriters(w, verbose, trace),
		l1packets.SetLogWriters,
		l2frames.SetLogWriters,
		l3grid.SetLogWriters,
		monitor.SetLogWriters,
	)
}

func loadConfig(path string) (*config.ProjectionConfig, error) {
	if path == "" {
		return config.DefaultProjectionConfig(), nil
	}
	return config.LoadProjectionConfig(path)
}

// pointSource picks the reader for the input by extension.
func pointSource(ctx context.Context, o *options, cfg *config.ProjectionConfig) (l2frames.PointSource, error) {
	switch strings.ToLower(filepath.Ext(o.input)) {
	case ".pcap":
		calib, err := l1packets.LoadPandar40PConfig(cfg.GetCalibration())
		if err != nil {
			return nil, err
		}
		dec, err := l1packets.NewPandar40PDecoder(calib)
		if err != nil {
			return nil, err
		}
		port := o.udpPort
		if port == 0 {
			port = cfg.GetUDPPort()
		}
		return l1packets.PCAPFileSource{Path: o.input, UDPPort: port, Decoder: dec, Context: ctx}, nil
	default:
		return l2frames.FileSource(o.input)
	}
}

func run(ctx context.Context, o *options) error {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	pc, err := l3grid.ProjectionConfigFromFile(cfg)
	if err != nil {
		return err
	}
	builder, err := pc.NewBuilder()
	if err != nil {
		return fmt.Errorf("invalid projection config: %w", err)
	}
	ch, err := l3grid.ParseChannel(o.channel)
	if err != nil {
		return err
	}
	sensorID := o.sensorID
	if sensorID == "" {
		sensorID = cfg.GetSensorID()
	}

	src, err := pointSource(ctx, o, cfg)
	if err != nil {
		return err
	}
	img, err := builder.BuildFrom(src)
	if err != nil {
		return err
	}
	for _, c := range []l3grid.Channel{l3grid.ChannelRange, l3grid.ChannelIntensity} {
		lidar.Diagf("%s", l3grid.Summarize(img, c))
	}

	var sinks []l3grid.ImageSink
	if o.ascPath != "" {
		sinks = append(sinks, l3grid.ASCFileSink{Path: o.ascPath})
	}
	if o.pngPath != "" {
		sinks = append(sinks, monitor.PNGFileSink{Path: o.pngPath, Channel: ch})
	}
	if o.htmlPath != "" {
		sinks = append(sinks, monitor.HTMLFileSink{Path: o.htmlPath, Channel: ch})
	}

	var database *db.DB
	var store *sqlite.RangeImageStore
	if o.dbPath != "" {
		database, err = db.NewDB(o.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()
		store = sqlite.NewRangeImageStore(database.DB)
		sinks = append(sinks, l3grid.SnapshotSink{Store: store, SensorID: sensorID})
	}

	var ws *monitor.WebServer
	if o.listen != "" {
		wsCfg := monitor.WebServerConfig{SensorID: sensorID, DB: database}
		if store != nil {
			wsCfg.Store = store
		}
		if ws, err = monitor.NewWebServer(wsCfg); err != nil {
			return err
		}
		sinks = append(sinks, ws)
	}

	for _, sink := range sinks {
		if err := sink.Consume(img); err != nil {
			return err
		}
	}

	stats := img.Stats()
	lidar.Opsf("projected %d points from %s into %s: written=%d skipped=%d collisions=%d",
		stats.Points, o.input, img.Geometry(), stats.Written, stats.Skipped, stats.Collisions)

	if ws != nil {
		return ws.Run(ctx, o.listen)
	}
	return nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		fs := flag.NewFlagSet("migrate", flag.ExitOnError)
		dbPath := fs.String("db", "rangeimage.db", "Path to the SQLite database file")
		// Flags may come before or after the action.
		args := os.Args[2:]
		var action []string
		for len(args) > 0 && !strings.HasPrefix(args[0], "-") {
			action = append(action, args[0])
			args = args[1:]
		}
		_ = fs.Parse(args)
		action = append(action, fs.Args()...)
		if err := db.RunMigrateCommand(action, *dbPath, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	o, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}
	if o.version {
		fmt.Println(version.String("rangeimage"))
		return
	}
	configureLogging(os.Stderr, o.verbose, o.trace)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o); err != nil {
		log.Fatalf("rangeimage: %v", err)
	}
}
