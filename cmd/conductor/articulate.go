package main

import (
	"errors"
	"fmt"

	"github.com/janoschsimon/Digital-Director/articulation"
	"github.com/spf13/cobra"
)

func newArticulateCmd(g *globalFlags) *cobra.Command {
	var st articulation.Stats
	var tick int64
	cmd := &cobra.Command{
		Use:   "articulate <track name>",
		Short: "Show the articulation chosen for a track and note statistics",
		Long: `Articulate resolves a track name to an instrument and evaluates its
family's articulation rules against the given statistics.

Example:
  conductor articulate Cembalo --avg-length 200 --avg-velocity 80`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := g.bundle()
			if err != nil {
				return err
			}
			inst, ch, err := b.Catalog.Choose(args[0], st)
			if err != nil {
				var ue *articulation.UnrecognizedInstrumentError
				if errors.As(err, &ue) {
					return fmt.Errorf("no keyswitch: %w", err)
				}
				return err
			}
			ev, err := b.Catalog.Event(inst, ch, tick)
			if err != nil {
				return err
			}
			rule := "default"
			if ch.Rule >= 0 {
				rule = fmt.Sprintf("rule %d", ch.Rule+1)
			}
			on, _ := ev.Messages(0)
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s): %s %s [%s], keyswitch note %d at tick %d (% X)\n",
				args[0], inst.Name, inst.Family, ch.Articulation, ev.Articulation, rule, ev.Number, ev.Tick, []byte(on))
			return nil
		},
	}
	cmd.Flags().Float64Var(&st.AvgNoteLength, "avg-length", 480, "Average note length in ticks")
	cmd.Flags().Float64Var(&st.AvgVelocity, "avg-velocity", 80, "Average velocity")
	cmd.Flags().Float64Var(&st.IntervalSize, "interval", 2, "Largest interval in semitones")
	cmd.Flags().IntVar(&st.NoteCount, "count", 8, "Number of notes")
	cmd.Flags().Int64Var(&tick, "tick", 0, "Tick of the passage start")
	return cmd
}
