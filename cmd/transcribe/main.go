// Command transcribe turns a local recording into a transcript: it cuts
// the audio into speech chunks, fans them out to the worker fleet through
// the proxy, and assembles the ordered result.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mihmosh/whisper-flash/bootstrap"
	"github.com/mihmosh/whisper-flash/client"
	"github.com/mihmosh/whisper-flash/config"
	"github.com/mihmosh/whisper-flash/logger"
)

const serviceName = "transcribe"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "", "path to config.yml (default: standard locations)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <audio-file>\n", serviceName)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("exactly one audio file is required")
	}
	input := flag.Arg(0)
	if _, err := os.Stat(input); err != nil {
		return fmt.Errorf("input file: %w", err)
	}

	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	var cfg client.Config
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return err
	}

	app, err := bootstrap.NewApp(serviceName, &cfg)
	if err != nil {
		return err
	}
	log := app.Logger

	return app.RunTask(context.Background(), func(ctx context.Context) error {
		chunker := client.NewChunker(cfg.Chunker, log)

		tracks := []int{cfg.Chunker.AudioTrack}
		if cfg.Chunker.AllTracks {
			n, err := chunker.AudioTracks(ctx, input)
			if err != nil {
				return err
			}
			tracks = tracks[:0]
			for t := 0; t < n; t++ {
				tracks = append(tracks, t)
			}
		}

		dispatcher, err := client.NewDispatcher(cfg, log)
		if err != nil {
			return err
		}

		log.Info("Warming up workers", map[string]interface{}{
			"workers": cfg.Workers,
			"tracks":  len(tracks),
		})
		if err := dispatcher.WarmUp(ctx); err != nil {
			return fmt.Errorf("warm-up: %w", err)
		}

		for _, track := range tracks {
			if err := transcribeTrack(ctx, chunker, dispatcher, log, input, track, len(tracks) > 1); err != nil {
				return err
			}
		}
		return nil
	})
}

// transcribeTrack runs the chunk → dispatch → assemble → write pipeline
// for one audio track. Multi-track runs label each transcript.
func transcribeTrack(ctx context.Context, chunker *client.Chunker, dispatcher *client.Dispatcher, log *logger.Logger, input string, track int, labeled bool) error {
	chunks, err := chunker.Chunks(ctx, input, track)
	if err != nil {
		return fmt.Errorf("chunking track %d: %w", track, err)
	}
	if len(chunks) == 0 {
		log.Warn("No speech detected on track", map[string]interface{}{"track": track})
		return nil
	}

	transcript := client.Assemble(dispatcher.Run(ctx, chunks))
	if labeled {
		transcript.Label = fmt.Sprintf("track%d", track)
	}

	txtPath, jsonPath, err := client.WriteOutputs(input, transcript)
	if err != nil {
		return err
	}
	log.Info("Transcript written", map[string]interface{}{
		"track": track,
		"text":  txtPath,
		"json":  jsonPath,
	})

	if failed := transcript.Failed(); len(failed) > 0 {
		log.Warn("Some chunks failed", map[string]interface{}{
			"track":  track,
			"failed": len(failed),
			"total":  len(transcript.Segments),
		})
	}
	return nil
}
