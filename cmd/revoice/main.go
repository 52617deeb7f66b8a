package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	ffmpeg "github.com/csnewman/ffmpeg-go"

	"github.com/revoice-audio/revoice/internal/batch"
	"github.com/revoice-audio/revoice/internal/cli"
	"github.com/revoice-audio/revoice/internal/config"
	"github.com/revoice-audio/revoice/internal/logging"
	"github.com/revoice-audio/revoice/internal/ui"
)

var (
	version = "0.1.0"
)

// CLI defines the command-line interface. Defaults live in the config
// package; a flag only overrides its setting when given explicitly, so
// config file values survive unrelated flags.
type CLI struct {
	Version bool   `short:"v" help:"Show version information"`
	Config  string `short:"c" type:"path" help:"Path to TOML config file (optional)"`
	Plain   bool   `help:"Line-based output instead of the interactive UI"`

	Denoise      string  `help:"Denoise backend: auto, ai, spectral or basic" default:"auto"`
	DenoiseModel string  `type:"path" help:"RNNoise model file for AI denoising"`
	Enhance      bool    `help:"Apply voice enhancement after denoising"`
	EnhanceWith  string  `name:"enhance-with" help:"Enhancement backend: classic or ai" default:"classic"`
	VoiceModel   string  `type:"path" help:"RNNoise model file for AI enhancement"`
	VoiceMix     float64 `help:"AI enhancement intensity (0.5-2.0)" default:"1.0"`
	TargetLufs   float64 `name:"target-lufs" help:"Loudness target in LUFS (-23 to -10)" default:"-16"`

	Output   string `short:"o" type:"path" help:"Output directory (default: next to each input)"`
	Suffix   string `help:"Output name suffix" default:"-restored"`
	KeepName bool   `help:"Keep the input file name for the output"`

	LogFile  string `type:"path" help:"Write logs to a file"`
	LogLevel string `help:"Log level: debug, info, warn or error" default:"info"`

	Files []string `arg:"" name:"files" help:"Video or audio files to restore" type:"existingfile" optional:""`
}

func main() {
	// Keep FFmpeg's own logging off the terminal
	ffmpeg.AVLogSetLevel(ffmpeg.AVLogError)

	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("revoice"),
		kong.Description("Audio restoration for video and audio files"),
		kong.UsageOnError(),
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	if len(cliArgs.Files) == 0 {
		cli.PrintError("No input files specified")
		ctx.PrintUsage(false)
		os.Exit(1)
	}

	cfg, err := config.Load(cliArgs.Config)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	applyFlagOverrides(ctx, cliArgs, &cfg)
	cfg.Clamp()

	log, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	defer cleanup()
	if cfg.LogFile == "" && !cliArgs.Plain {
		// Nothing may print under the TUI
		log = logging.Discard()
	}

	pipeline, err := batch.NewPipeline(cfg, log)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	runner := batch.NewRunner(pipeline, log)

	var stats batch.Stats
	if cliArgs.Plain {
		stats = runPlain(runner, cliArgs.Files)
	} else {
		stats = runTUI(runner, cliArgs.Files)
	}

	if stats.Failed > 0 || stats.Cancelled > 0 {
		os.Exit(1)
	}
}

// applyFlagOverrides copies each explicitly given flag over the loaded
// configuration.
func applyFlagOverrides(ctx *kong.Context, args *CLI, cfg *config.Config) {
	set := make(map[string]bool)
	for _, f := range ctx.Model.Node.Flags {
		if f.Set {
			set[f.Name] = true
		}
	}

	if set["denoise"] {
		cfg.DenoiseBackend = args.Denoise
	}
	if set["denoise-model"] {
		cfg.DenoiseModel = args.DenoiseModel
	}
	if set["enhance"] {
		cfg.Enhance = args.Enhance
	}
	if set["enhance-with"] {
		cfg.EnhanceBackend = args.EnhanceWith
	}
	if set["voice-model"] {
		cfg.VoiceModel = args.VoiceModel
	}
	if set["voice-mix"] {
		cfg.VoiceMix = args.VoiceMix
	}
	if set["target-lufs"] {
		cfg.TargetLUFS = args.TargetLufs
	}
	if set["output"] {
		cfg.OutputDir = args.Output
	}
	if set["suffix"] {
		cfg.Suffix = args.Suffix
	}
	if set["keep-name"] {
		cfg.KeepName = args.KeepName
	}
	if set["log-file"] {
		cfg.LogFile = args.LogFile
	}
	if set["log-level"] {
		cfg.LogLevel = args.LogLevel
	}
}

// runTUI drives the batch under the Bubbletea interface.
func runTUI(runner *batch.Runner, files []string) batch.Stats {
	model := ui.NewModel(files, runner.Cancel)
	p := tea.NewProgram(model, tea.WithAltScreen())

	var (
		mu        sync.Mutex
		terminals []batch.Event
		stats     batch.Stats
	)
	done := make(chan struct{})

	go func() {
		defer close(done)
		stats = runner.Run(context.Background(), files, func(ev batch.Event) {
			switch ev.State {
			case batch.JobDone, batch.JobFailed, batch.JobCancelled:
				mu.Lock()
				terminals = append(terminals, ev)
				mu.Unlock()
			}
			p.Send(ui.MsgFromEvent(ev))
		})
		p.Send(ui.BatchDoneMsg{Stats: stats})
	}()

	if _, err := p.Run(); err != nil {
		cli.PrintError(fmt.Sprintf("UI error: %v", err))
		runner.Cancel()
	}
	<-done

	// The alt screen is gone by now; repeat the summary on the
	// normal screen
	fmt.Print(logging.Summary(terminals, stats))
	return stats
}

// runPlain drives the batch with line-based output, cancelling on
// SIGINT or SIGTERM.
func runPlain(runner *batch.Runner, files []string) batch.Stats {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		runner.Cancel()
	}()

	var terminals []batch.Event
	stats := runner.Run(ctx, files, func(ev batch.Event) {
		switch ev.State {
		case batch.JobRunning:
			if ev.Stage != "" {
				line := fmt.Sprintf("[%d/%d] %s: %s", ev.Index+1, len(files), ev.Path, ev.Stage)
				if ev.Backend != "" {
					line += fmt.Sprintf(" (%s)", ev.Backend)
				}
				fmt.Println(line)
			}
			if ev.Warning != "" {
				fmt.Printf("[%d/%d] %s: warning: %s\n", ev.Index+1, len(files), ev.Path, ev.Warning)
			}
		case batch.JobDone:
			terminals = append(terminals, ev)
			fmt.Printf("[%d/%d] %s: done -> %s\n", ev.Index+1, len(files), ev.Path, ev.OutputPath)
		case batch.JobFailed:
			terminals = append(terminals, ev)
			fmt.Printf("[%d/%d] %s: failed: %v\n", ev.Index+1, len(files), ev.Path, ev.Err)
		case batch.JobCancelled:
			terminals = append(terminals, ev)
			fmt.Printf("[%d/%d] %s: cancelled\n", ev.Index+1, len(files), ev.Path)
		}
	})

	fmt.Print(logging.Summary(terminals, stats))
	return stats
}
