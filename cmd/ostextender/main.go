// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"

	ostextender "github.com/henry-sm/ost-extender-musicbee"
	"github.com/henry-sm/ost-extender-musicbee/analysis"
	"github.com/henry-sm/ost-extender-musicbee/internal/cli"
	"github.com/henry-sm/ost-extender-musicbee/internal/tagfile"
	"github.com/henry-sm/ost-extender-musicbee/internal/ui"
	"github.com/henry-sm/ost-extender-musicbee/playback"
	"github.com/henry-sm/ost-extender-musicbee/render"
)

var (
	version = "0.0.1"
)

// versionFlag prints the version during flag parsing, so it works
// without a subcommand.
type versionFlag bool

func (versionFlag) BeforeApply() error {
	cli.PrintVersion(version)
	os.Exit(0)
	return nil
}

// CLI defines the command-line interface
type CLI struct {
	Version versionFlag `short:"v" help:"Show version information"`
	Debug   bool        `help:"Write a debug log next to the working directory"`

	MinLoop float64 `default:"8" help:"Minimum loop length in seconds"`
	MaxLoop float64 `default:"120" help:"Maximum loop length in seconds"`

	Analyze AnalyzeCmd `cmd:"" help:"Find and store loop points for audio files"`
	Extend  ExtendCmd  `cmd:"" help:"Render an extended version of a looped track"`
	Watch   WatchCmd   `cmd:"" help:"Loop a track against a simulated transport"`
}

type globals struct {
	cfg analysis.Config
	log func(format string, args ...interface{})
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("ostextender"),
		kong.Description("Finds seamless loop points in soundtrack audio and loops or extends playback"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
	)

	cfg := analysis.DefaultConfig()
	cfg.MinLoopSeconds = cliArgs.MinLoop
	cfg.MaxLoopSeconds = cliArgs.MaxLoop

	log := func(string, ...interface{}) {}
	if cliArgs.Debug {
		debugLog, _ := os.Create("ostextender-debug.log")
		if debugLog != nil {
			defer debugLog.Close()
			log = func(format string, args ...interface{}) {
				fmt.Fprintf(debugLog, format+"\n", args...)
			}
		}
	}

	if err := ctx.Run(&globals{cfg: cfg, log: log}); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

// AnalyzeCmd finds loop points and stores them in sidecar tag files.
type AnalyzeCmd struct {
	NoUI  bool     `help:"Print plain progress instead of the TUI"`
	Files []string `arg:"" name:"files" help:"Audio files to analyse" type:"existingfile"`
}

func (c *AnalyzeCmd) Run(g *globals) error {
	store := tagfile.NewStore()

	for _, path := range c.Files {
		g.log("[ANALYZE] start %s", path)

		res, err := c.analyzeOne(g, path)
		if err != nil {
			cli.PrintError(fmt.Sprintf("%s: %v", path, err))
			continue
		}

		if err := playback.SaveLoopResult(store, path, res); err != nil {
			cli.PrintError(fmt.Sprintf("%s: %v", path, err))
			continue
		}

		cli.WriteLoopReport(os.Stdout, path, res)
		g.log("[ANALYZE] done %s: %s %.3f..%.3f conf %.2f",
			path, res.Status, res.LoopStart, res.LoopEnd, res.Confidence)
	}
	return nil
}

func (c *AnalyzeCmd) analyzeOne(g *globals, path string) (*analysis.LoopResult, error) {
	if c.NoUI {
		progress := func(stage string, frac float64) {
			fmt.Printf("\r%-10s %3.0f%%", stage, frac*100)
		}
		res, err := ostextender.AnalyzeFile(context.Background(), path, g.cfg, progress)
		fmt.Println()
		return res, err
	}

	p := tea.NewProgram(ui.NewAnalysisModel())

	go func() {
		p.Send(ui.AnalysisStartMsg{FilePath: path})
		res, err := ostextender.AnalyzeFile(context.Background(), path, g.cfg,
			func(stage string, frac float64) {
				p.Send(ui.AnalysisProgressMsg{Stage: stage, Fraction: frac})
			})
		p.Send(ui.AnalysisCompleteMsg{Result: res, Error: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	m := final.(ui.AnalysisModel)
	if m.Error != nil {
		return nil, m.Error
	}
	if m.Result == nil {
		return nil, errors.New("analysis interrupted")
	}
	return m.Result, nil
}

// ExtendCmd renders <track>_extended.wav using stored loop points,
// analysing first when the track has none.
type ExtendCmd struct {
	File        string  `arg:"" help:"Audio file to extend" type:"existingfile"`
	Duration    float64 `short:"d" required:"" help:"Target duration in seconds"`
	CrossfadeMs int     `default:"30" help:"Seam crossfade length in milliseconds (0 for hard splices)"`
}

func (c *ExtendCmd) Run(g *globals) error {
	store := tagfile.NewStore()

	points, err := playback.LoadLoopPoints(store, c.File)
	if errors.Is(err, playback.ErrNoLoopStored) {
		g.log("[EXTEND] no stored loop for %s, analysing", c.File)
		res, aerr := ostextender.AnalyzeFile(context.Background(), c.File, g.cfg, nil)
		if aerr != nil {
			return aerr
		}
		if err := playback.SaveLoopResult(store, c.File, res); err != nil {
			return err
		}
		points = playback.LoopPoints{
			StartSeconds: res.LoopStart,
			EndSeconds:   res.LoopEnd,
			SampleRate:   res.SampleRate,
		}
	} else if err != nil {
		return err
	}

	if points.EndSeconds-points.StartSeconds < 4.0 {
		return fmt.Errorf("stored loop is %.2fs, too short to extend",
			points.EndSeconds-points.StartSeconds)
	}

	// Render from the full-quality audio at its native rate; the
	// stored sample indices belong to the analysis rate, so recompute
	// them from the timestamps.
	buf, err := ostextender.DecodeFile(c.File, 0, 0)
	if err != nil {
		return err
	}
	loop := playback.LoopPoints{
		StartSeconds: points.StartSeconds,
		EndSeconds:   points.EndSeconds,
		StartSample:  buf.SampleAt(points.StartSeconds),
		EndSample:    buf.SampleAt(points.EndSeconds),
		SampleRate:   buf.SampleRate,
	}

	out, err := render.ExtendToFile(buf, loop,
		render.Options{TargetSeconds: c.Duration, CrossfadeMs: c.CrossfadeMs}, c.File)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", cli.KeyStyle.Render("Extended:"), cli.ValueStyle.Render(out))
	return nil
}

// WatchCmd plays a track against a simulated clock transport, looping
// it live. It exercises the same monitor the host integration uses,
// with positions printed instead of audio.
type WatchCmd struct {
	File      string  `arg:"" help:"Audio file to loop" type:"existingfile"`
	Loops     int     `default:"3" help:"Stop after this many loop jumps"`
	Speed     float64 `default:"60" help:"Simulated playback speed multiplier"`
	Crossfade bool    `help:"Synthesize a seam clip at each jump"`
}

func (c *WatchCmd) Run(g *globals) error {
	store := tagfile.NewStore()

	if _, err := playback.LoadLoopPoints(store, c.File); errors.Is(err, playback.ErrNoLoopStored) {
		res, aerr := ostextender.AnalyzeFile(context.Background(), c.File, g.cfg, nil)
		if aerr != nil {
			return aerr
		}
		if err := playback.SaveLoopResult(store, c.File, res); err != nil {
			return err
		}
		cli.WriteLoopReport(os.Stdout, c.File, res)
	} else if err != nil {
		return err
	}

	tr := newSimTransport(c.Speed)
	jumps := make(chan int, 16)
	tr.onJump = func(toMs int) { jumps <- toMs }

	cfg := playback.DefaultConfig()
	cfg.CrossfadeEnabled = c.Crossfade
	mon := playback.NewMonitor(tr, store, func() string { return c.File }, cfg,
		playback.WithLogf(g.log),
		playback.WithCrossfade(ostextender.CrossfadeSynthesizer()))
	mon.Start()
	defer mon.Stop()

	for i := 0; i < c.Loops; i++ {
		select {
		case toMs := <-jumps:
			fmt.Printf("loop %d: jumped back to %s\n", i+1, cli.ValueStyle.Render(
				fmt.Sprintf("%.3fs", float64(toMs)/1000)))
		case <-time.After(2 * time.Minute):
			return errors.New("no loop jump observed; is the stored loop valid?")
		}
	}
	return nil
}
