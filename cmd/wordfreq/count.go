package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/rules"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/errors"
)

var countFlags struct {
	workers    int
	top        int
	separators string
	noise      string
	synonyms   string
	asJSON     bool
}

var countCmd = &cobra.Command{
	Use:   "count FILE",
	Short: "Count and rank the words of one document",
	Long: `Runs FILE through the worker pool and prints the ranking.

Rule files default to the ones named in the config; pass an empty string to
run without that rule set.`,
	Args: cobra.ExactArgs(1),
	RunE: runCount,
}

func init() {
	f := countCmd.Flags()
	f.IntVarP(&countFlags.workers, "workers", "w", 0, "number of workers (default pipeline.workers)")
	f.IntVarP(&countFlags.top, "top", "k", 0, "entries to print, 0 for pipeline.topK")
	f.StringVar(&countFlags.separators, "separators", "", "separators file")
	f.StringVar(&countFlags.noise, "noise", "", "noise words file")
	f.StringVar(&countFlags.synonyms, "synonyms", "", "synonyms file (synonym;canonical per line)")
	f.BoolVar(&countFlags.asJSON, "json", false, "print [[word, count], ...] instead of a table")
}

func runCount(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupCLILogging(cfg.Logging.Level)

	workers := cfg.Pipeline.Workers
	if cmd.Flags().Changed("workers") {
		workers = countFlags.workers
	}
	top := cfg.Pipeline.TopK
	if countFlags.top > 0 {
		top = countFlags.top
	}

	src := rules.Source{
		SeparatorsFile: cfg.Rules.SeparatorsFile,
		NoiseWordsFile: cfg.Rules.NoiseWordsFile,
		SynonymsFile:   cfg.Rules.SynonymsFile,
	}
	if cmd.Flags().Changed("separators") {
		src.SeparatorsFile = countFlags.separators
	}
	if cmd.Flags().Changed("noise") {
		src.NoiseWordsFile = countFlags.noise
	}
	if cmd.Flags().Changed("synonyms") {
		src.SynonymsFile = countFlags.synonyms
	}
	snap, err := rules.Load(cmd.Context(), src)
	if err != nil {
		return err
	}

	dispatcher, err := pipeline.New(workers, pipeline.WithQueueSize(cfg.Pipeline.QueueSize))
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return apperrors.IO("opening "+args[0], err)
	}
	defer f.Close()

	res, err := dispatcher.ProcessReader(cmd.Context(), f, snap.Rules())
	if err != nil {
		return err
	}
	ranked := res.Ranked(top)

	out := cmd.OutOrStdout()
	if countFlags.asJSON {
		if ranked == nil {
			ranked = []ranking.Entry{}
		}
		return json.NewEncoder(out).Encode(ranked)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	for i, e := range ranked {
		fmt.Fprintf(tw, "%d\t%s\t%d\t\n", i+1, e.Word, e.Count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d lines, %d words, %d distinct, %d workers, %s\n",
		res.Lines, res.Counts.Total(), len(res.Counts), res.Workers, res.Duration.Round(time.Microsecond))
	return nil
}
