// Command synth-template builds a template from a recorded event log by
// running the capture line search over its first samples.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rjdini/jaer-sub001/internal/config"
	"github.com/rjdini/jaer-sub001/internal/db"
	"github.com/rjdini/jaer-sub001/internal/events"
	"github.com/rjdini/jaer-sub001/internal/render"
	"github.com/rjdini/jaer-sub001/internal/session"
	"github.com/rjdini/jaer-sub001/internal/template"
)

var (
	inputFile  = flag.String("input", "", "Text event log (ts x y p per line)")
	configPath = flag.String("config", "", "Path to a tuning JSON file (default: built-in defaults)")
	outFile    = flag.String("out", "", "Write the template as JSON to this path")
	dbFile     = flag.String("db", "", "Also store the template in this SQLite database")
	name       = flag.String("name", "", "Template name (default: captured)")
	skip       = flag.Int("skip", 0, "Events to skip before the capture window starts")
	samples    = flag.Int("samples", 0, "Capture window size override")
	pngFile    = flag.String("png", "", "Write a PNG of the template over the captured events")
)

func main() {
	flag.Parse()
	if *inputFile == "" {
		log.Fatal("-input is required")
	}
	if *outFile == "" && *dbFile == "" && *pngFile == "" {
		log.Fatal("nothing to do: set -out, -db or -png")
	}

	tuning := config.DefaultTuningConfig()
	if *configPath != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(*configPath); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	cfg := session.ConfigFromTuning(tuning)
	if *samples > 0 {
		cfg.Capture.SampleCount = *samples
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	evs, err := events.ReadTextFile(*inputFile)
	if err != nil {
		log.Fatalf("read events: %v", err)
	}
	if *skip > 0 {
		if *skip >= len(evs) {
			log.Fatalf("-skip %d leaves no events (log has %d)", *skip, len(evs))
		}
		evs = evs[*skip:]
	}

	tmpl, used, err := synthesize(cfg, evs)
	if err != nil {
		log.Fatal(err)
	}
	if *name != "" {
		tmpl.Name = *name
	}
	log.Printf("synthesised %d lines from %d events", tmpl.Len(), used)

	if *outFile != "" {
		if err := template.SaveFile(*outFile, tmpl); err != nil {
			log.Fatalf("save template: %v", err)
		}
		log.Printf("wrote %s", *outFile)
	}
	if *dbFile != "" {
		database, err := db.OpenDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer database.Close()
		rec, err := db.NewTemplateStore(database).Save(tmpl, "file:"+*inputFile)
		if err != nil {
			log.Fatalf("store template: %v", err)
		}
		log.Printf("stored template %s", rec.TemplateID)
	}
	if *pngFile != "" {
		if err := writePNG(*pngFile, cfg, tmpl, evs[:used]); err != nil {
			log.Fatalf("png: %v", err)
		}
		log.Printf("wrote %s", *pngFile)
	}
}

// synthesize feeds events into a capturing session until the window
// closes and returns the installed template and the number of events
// consumed.
func synthesize(cfg session.Config, evs []events.Event) (*template.Template, int, error) {
	cfg.AsyncSynthesis = false
	sess := session.New(cfg, nil)

	var captured *template.Template
	sess.OnSynthesis(func(t *template.Template) { captured = t })
	sess.StartCapture()

	for i, ev := range evs {
		r := sess.Observe(ev)
		if !r.CaptureDone {
			continue
		}
		if captured == nil {
			return nil, i + 1, fmt.Errorf("capture window of %d samples produced no lines", cfg.Capture.SampleCount)
		}
		return captured, i + 1, nil
	}
	n, target := sess.CaptureProgress()
	return nil, len(evs), fmt.Errorf("event log too short: %d of %d capture samples", n, target)
}

func writePNG(path string, cfg session.Config, tmpl *template.Template, evs []events.Event) error {
	sess := session.New(cfg, nil)
	pts := make([]template.Point, 0, len(evs))
	for _, ev := range evs {
		if p, ok := sess.Normalize(ev); ok {
			pts = append(pts, p)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := render.WritePNG(f, tmpl.Name, tmpl.Segments(), pts); err != nil {
		return err
	}
	return f.Close()
}
