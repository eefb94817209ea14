package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rjdini/jaer-sub001/internal/config"
	"github.com/rjdini/jaer-sub001/internal/db"
	"github.com/rjdini/jaer-sub001/internal/events"
	"github.com/rjdini/jaer-sub001/internal/render"
	"github.com/rjdini/jaer-sub001/internal/session"
	"github.com/rjdini/jaer-sub001/internal/template"
	"github.com/rjdini/jaer-sub001/internal/tracking"
	"github.com/rjdini/jaer-sub001/internal/version"
)

var (
	configPath   = flag.String("config", "", "Path to a tuning JSON file (default: built-in defaults)")
	source       = flag.String("source", "udp", "Event source: udp, serial, pcap or text")
	input        = flag.String("input", "", "pcap or text file for -source pcap/text")
	udpAddr      = flag.String("udp-addr", fmt.Sprintf(":%d", events.DefaultUnicastPort), "UDP listen address for AEUnicast datagrams")
	udpPort      = flag.Int("udp-port", events.DefaultUnicastPort, "Destination port to replay from a pcap file (0 = any)")
	noSeqHeader  = flag.Bool("no-seq-header", false, "AEUnicast datagrams carry no sequence number header")
	rcvBuf       = flag.Int("rcvbuf", 4<<20, "UDP receive buffer size in bytes")
	serialPort   = flag.String("serial", "/dev/ttyUSB0", "eDVS serial device for -source serial")
	baudRate     = flag.Int("baud", events.DefaultEDVSBaudRate, "eDVS serial baud rate")
	templateName = flag.String("template", "box", "Built-in template name or path to a template JSON file")
	templateID   = flag.String("template-id", "", "Load the template with this ID from the database")
	mode         = flag.String("mode", "", "Tracking mode override: full_projective, no_shear or rotation_scale")
	captureFirst = flag.Bool("capture", false, "Start in capture mode and synthesise the template from the first events")
	textBatch    = flag.Int("batch", 256, "Events per packet when replaying a text log")
	plotDir      = flag.String("plot-dir", "", "Write template snapshots and a dashboard under this directory")
	plotEvery    = flag.Int("plot-every", 50, "Packets between snapshots")
	plotRecent   = flag.Int("plot-recent", 2000, "Recent events drawn in each snapshot")
	dbFile       = flag.String("db", "", "SQLite database for templates and run history (disabled when empty)")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("tracker", version.String())
		return
	}

	tuning, err := loadTuning(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg := session.ConfigFromTuning(tuning)
	if *mode != "" {
		m, err := tracking.ParseMode(*mode)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg.Tracking.Mode = m
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	var (
		database  *db.DB
		templates *db.TemplateStore
		runs      *db.RunStore
	)
	if *dbFile != "" {
		database, err = db.OpenDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer database.Close()
		templates = db.NewTemplateStore(database)
		runs = db.NewRunStore(database)
	}

	tmpl, err := resolveTemplate(*templateName, *templateID, templates, cfg.Capture.MaxSegments)
	if err != nil {
		log.Fatalf("template: %v", err)
	}
	log.Printf("tracker %s: template %q (%d lines), mode %s", version.Version, tmpl.Name, tmpl.Len(), cfg.Tracking.Mode)

	sess := session.New(cfg, tmpl)
	if templates != nil {
		sess.OnSynthesis(func(t *template.Template) {
			rec, err := templates.Save(t, "capture")
			if err != nil {
				log.Printf("failed to store captured template: %v", err)
				return
			}
			log.Printf("stored captured template %s (%d lines)", rec.TemplateID, rec.SegmentCount)
		})
	}
	if *captureFirst {
		sess.StartCapture()
		log.Printf("capturing %d samples before tracking", cfg.Capture.SampleCount)
	}

	var plotter *render.Plotter
	outDir := ""
	if *plotDir != "" {
		outDir = filepath.Join(*plotDir, time.Now().Format("20060102_150405"))
		plotter = render.NewPlotter()
		if err := plotter.Start(outDir); err != nil {
			log.Fatalf("plots: %v", err)
		}
	}
	pipe := newPipeline(sess, plotter, *plotEvery, *plotRecent)

	run := &db.Run{Source: *source, TemplateID: *templateID, TemplateName: tmpl.Name, Mode: cfg.Tracking.Mode.String()}
	if runs != nil {
		if err := runs.Start(run); err != nil {
			log.Printf("failed to record run start: %v", err)
			runs = nil
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats := &events.PacketStats{}
	unicast := events.DefaultUnicastConfig()
	unicast.SequenceHeader = !*noSeqHeader

	err = runSource(ctx, sourceOptions{
		Kind:      *source,
		Input:     *input,
		UDPAddr:   *udpAddr,
		UDPPort:   *udpPort,
		RcvBuf:    *rcvBuf,
		Serial:    *serialPort,
		Baud:      *baudRate,
		TextBatch: *textBatch,
		Unicast:   unicast,
	}, pipe, stats)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("source %s: %v", *source, err)
	}
	sess.Wait()
	stats.LogStats()

	snap := sess.Stats()
	_, n := pipe.counts()
	log.Printf("done: %d events, applied %d, too far %d, no match %d, folds %d (%d skipped), mean |err| %.5f",
		n, snap.Applied, snap.TooFar, snap.NoMatch, snap.Folds, snap.SkippedFolds, snap.MeanAbsErr)

	if plotter != nil {
		pipe.frame("final")
		plotter.Stop()
		if path, err := pipe.writeDashboard(outDir); err != nil {
			log.Printf("dashboard: %v", err)
		} else {
			log.Printf("wrote %s", path)
		}
	}

	if runs != nil {
		run.TemplateName = sess.Template().Name
		run.Events = n
		run.Applied = snap.Applied
		run.TooFar = snap.TooFar
		run.NoMatch = snap.NoMatch
		run.Folds = snap.Folds
		run.SkippedFolds = snap.SkippedFolds
		run.Syntheses = snap.Syntheses
		run.MeanAbsErr = snap.MeanAbsErr
		if err := runs.Finish(run); err != nil {
			log.Printf("failed to record run: %v", err)
		}
	}
}

func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.DefaultTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

// resolveTemplate picks the starting template: a database ID wins, then a
// JSON file path, then a built-in name.
func resolveTemplate(name, id string, store *db.TemplateStore, maxSegments int) (*template.Template, error) {
	if id != "" {
		if store == nil {
			return nil, errors.New("-template-id needs -db")
		}
		return store.Load(id, maxSegments)
	}
	if strings.HasSuffix(name, ".json") {
		return template.LoadFile(name, maxSegments)
	}
	return template.Builtin(name, maxSegments)
}
