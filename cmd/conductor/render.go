package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/janoschsimon/Digital-Director/analysis"
	"github.com/janoschsimon/Digital-Director/conductor"
	"github.com/janoschsimon/Digital-Director/internal/logging"
	"github.com/janoschsimon/Digital-Director/internal/mathx"
	"github.com/janoschsimon/Digital-Director/rules"
	"github.com/janoschsimon/Digital-Director/score"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

type renderFlags struct {
	output  string
	workers string
	tempo   float64
	channel uint
	metrics bool
}

func newRenderCmd(g *globalFlags) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render <score>",
		Short: "Render a score file into a performance",
		Long: `Render reads a score (JSON, or YAML by extension) and writes the
performance as JSON: adjusted notes, phrase curves and keyswitches per voice.

Examples:
  conductor render suite.json -o suite.performance.json
  conductor render suite.yaml --config ./presets --workers 4 --metrics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, g, f, args[0])
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", "-", "Output file ('-' for stdout)")
	cmd.Flags().StringVar(&f.workers, "workers", "auto", "Concurrent voices: integer >= 1 or 'auto'")
	cmd.Flags().Float64Var(&f.tempo, "tempo", 120, "Tempo in BPM used for the summary duration")
	cmd.Flags().UintVar(&f.channel, "channel", 0, "MIDI channel (0-15) for emitted events")
	cmd.Flags().BoolVar(&f.metrics, "metrics", false, "Print per-voice deviation metrics")
	return cmd
}

func readScore(path string) (*score.Score, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read score %s", path)
	}
	var s score.Score
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &s)
	default:
		err = json.Unmarshal(b, &s)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode score %s", path)
	}
	for i := range s.Voices {
		r, err := score.ParseRole(string(s.Voices[i].Role))
		if err != nil {
			return nil, errors.Wrapf(err, "voice %q", s.Voices[i].Name)
		}
		s.Voices[i].Role = r
	}
	return &s, nil
}

func runRender(cmd *cobra.Command, g *globalFlags, f *renderFlags, path string) error {
	workers, err := mathx.ParseWorkers(f.workers)
	if err != nil {
		return fmt.Errorf("invalid --workers: %w", err)
	}
	if f.channel > 15 {
		return fmt.Errorf("invalid --channel %d (must be 0-15)", f.channel)
	}
	if f.tempo <= 0 {
		return fmt.Errorf("invalid --tempo %g (must be > 0)", f.tempo)
	}
	bundle, err := g.bundle()
	if err != nil {
		return err
	}
	s, err := readScore(path)
	if err != nil {
		return err
	}

	logger := logging.New(cmd.ErrOrStderr(), g.debug)
	c, err := conductor.New(bundle,
		conductor.WithWorkers(workers),
		conductor.WithLogger(logger),
		conductor.WithChannel(uint8(f.channel)))
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	perf, err := c.Compile(ctx, s)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if err := writePerformance(cmd.OutOrStdout(), f.output, perf); err != nil {
		return err
	}

	summary := cmd.ErrOrStderr()
	printSummary(summary, perf, f.tempo, elapsed)
	if f.metrics {
		for _, v := range perf.Voices {
			m := analysis.Compare(v.Notes, perf.TicksPerBeat)
			fmt.Fprintf(summary, "  %-20s timing rmse %5.1f ticks, velocity rmse %5.1f, duration x%.3f, similarity %.2f\n",
				v.Name, m.TimingRMSETicks, m.VelocityRMSE, m.MeanDurationScale, m.Similarity)
		}
	}
	for _, w := range perf.Warnings {
		fmt.Fprintf(summary, "warning: %v\n", w)
	}
	if err := perf.Err(); err != nil {
		return fmt.Errorf("%d voice(s) skipped: %w", len(perf.Errors), err)
	}
	return nil
}

func writePerformance(stdout io.Writer, output string, perf *conductor.Performance) error {
	b, err := json.MarshalIndent(perf, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode performance")
	}
	b = append(b, '\n')
	if output == "" || output == "-" {
		_, err = stdout.Write(b)
		return err
	}
	if err := os.WriteFile(output, b, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", output)
	}
	return nil
}

func printSummary(w io.Writer, perf *conductor.Performance, tempo float64, elapsed time.Duration) {
	keyswitches := 0
	applied := make(rules.Stats)
	for _, v := range perf.Voices {
		keyswitches += len(v.Keyswitches)
		for name, n := range v.Stats {
			applied[name] += n
		}
	}
	beats := float64(perf.End()) / float64(perf.TicksPerBeat)
	length := time.Duration(beats * 60 / tempo * float64(time.Second))
	fmt.Fprintf(w, "rendered %s voices, %s notes, %s keyswitches, %s at %g bpm in %s\n",
		humanize.Comma(int64(len(perf.Voices))),
		humanize.Comma(int64(perf.NoteCount())),
		humanize.Comma(int64(keyswitches)),
		durafmt.Parse(length).LimitFirstN(2).Format(shortUnits),
		tempo,
		durafmt.Parse(elapsed).LimitFirstN(1).Format(shortUnits))
	for _, name := range applied.Names() {
		fmt.Fprintf(w, "  %-20s %s\n", name, humanize.Comma(int64(applied[name])))
	}
}
