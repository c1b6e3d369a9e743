// pulse-cli watches a single video job from the terminal, without the
// daemon. It polls until the job publishes or fails.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/reelrocket/pulse/internal/client"
	"github.com/reelrocket/pulse/internal/config"
	"github.com/reelrocket/pulse/internal/credential"
	"github.com/reelrocket/pulse/internal/models"
	"github.com/reelrocket/pulse/internal/poller"
)

// consolePrinter satisfies the poller's broadcaster by writing progress
// lines to stdout.
type consolePrinter struct{}

func (consolePrinter) BroadcastJSON(v interface{}) error {
	update, ok := v.(models.ProgressUpdate)
	if !ok {
		return nil
	}
	switch {
	case update.Error != "":
		fmt.Printf("%s  FAILED  %s\n", update.JobID, update.Error)
	case update.Done:
		fmt.Printf("%s  100%%  %s\n", update.JobID, update.Message)
	default:
		fmt.Printf("%s  %3d%%  %s\n", update.JobID, update.Percent, update.Phase)
	}
	return nil
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags)

	token := flag.String("token", "", "access token (overrides the configured token file)")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-token <token>] <jobID>\n", os.Args[0])
		os.Exit(2)
	}
	jobID := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var tokens credential.TokenSource
	if *token != "" {
		tokens = credential.Static(*token)
	} else {
		source, err := credential.NewFileSource(cfg.Remote.TokenFile)
		if err != nil {
			log.Fatalf("Failed to load token from %s: %v", cfg.Remote.TokenFile, err)
		}
		defer source.Stop()
		tokens = source
	}

	c := client.New(cfg.Remote.BaseURL, tokens)
	interval := time.Duration(cfg.PollInterval) * time.Second

	done := make(chan struct{})
	p := poller.New(jobID, "", c, consolePrinter{}, nil, interval)
	p.OnComplete = func(string) { close(done) }
	p.Start()
	defer p.Stop()

	// Poll until the job publishes; a terminal error is reported on every
	// cycle, so bail out after the first failed status instead of looping
	// forever.
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			os.Exit(0)
		case <-ticker.C:
			if status := p.Status(); status.Error != "" {
				os.Exit(1)
			}
		}
	}
}
