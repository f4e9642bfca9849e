package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wqlog/wqlog/pkg/powerinfo"
	"github.com/wqlog/wqlog/pkg/types"
)

type statusJSON struct {
	Loop  *types.Status       `json:"loop"`
	Power *powerinfo.Snapshot `json:"power,omitempty"`
}

func outcomeText(o types.Outcome) string {
	switch o {
	case types.OutcomeDelivered:
		return color.GreenString(string(o))
	case types.OutcomeSkipped:
		return color.YellowString(string(o))
	default:
		return color.RedString(string(o))
	}
}

func printCycle(cmd *cobra.Command, res types.CycleResult) {
	cmd.Printf("  Outcome: %s (%s ago, took %s)\n",
		bold("%s", outcomeText(res.Outcome)),
		time.Since(res.FinishedAt).Round(time.Second),
		res.Duration().Round(time.Millisecond))
	if res.Error != "" {
		cmd.Printf("  Failed while %s: %s\n", res.Stage, res.Error)
	}
	if res.Row != nil {
		cmd.Printf("  Temperature: %s\n", bold("%.2f °C", res.Row.Temperature))
		cmd.Printf("  Depth: %s\n", bold("%.2f in", res.Row.Depth))
		cmd.Printf("  pH: %s\n", bold("%.2f", res.Row.PH))
	}
}

func NewStatusCommand() *cobra.Command {
	asJSON := false
	history := false

	cmd := &cobra.Command{
		Use:         "status",
		GroupID:     gBasic,
		Short:       "Get the current status of the logger",
		Long:        `Get the acquisition loop state, the latest reading and the host power state.`,
		Annotations: daemonClient,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.GetStatus(history)
			if err != nil {
				return err
			}
			// Power is informational, hosts on mains have no battery.
			power, err := apiClient.GetPower()
			if err != nil {
				logrus.Debugf("failed to get power info: %v", err)
			}

			if asJSON {
				b, err := json.MarshalIndent(statusJSON{Loop: st, Power: power}, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return nil
			}

			cmd.Println(bold("Logger:"))
			cmd.Printf("  State: %s\n", bold("%s", st.State))
			cmd.Printf("  Driver: %s\n", st.Driver)
			cmd.Printf("  Sheet: %s\n", st.Target)
			cmd.Printf("  Interval: %s\n", st.Interval)
			if st.LastDelivered != nil {
				cmd.Printf("  Last delivered row: %s\n", st.LastDelivered.Local().Format(time.RFC3339))
			} else {
				cmd.Printf("  Last delivered row: %s\n", bool2Text(false))
			}
			if st.ConsecutiveSkipped > 0 {
				cmd.Printf("  Skipped in a row: %s\n", color.New(color.Bold, color.FgYellow).Sprint(st.ConsecutiveSkipped))
			}
			cmd.Println()

			if st.LastResult != nil {
				cmd.Println(bold("Last cycle:"))
				printCycle(cmd, *st.LastResult)
				cmd.Println()
			}

			if history && len(st.History) > 0 {
				cmd.Println(bold("History:"))
				for _, r := range st.History {
					line := fmt.Sprintf("  %s  %-9s", r.StartedAt.Local().Format(time.DateTime), r.Outcome)
					if r.Row != nil {
						line += fmt.Sprintf("  %6.2f °C  %6.2f in  %5.2f pH", r.Row.Temperature, r.Row.Depth, r.Row.PH)
					}
					if r.Error != "" {
						line += "  " + r.Error
					}
					cmd.Println(line)
				}
				cmd.Println()
			}

			if power != nil && len(power.Batteries) > 0 {
				cmd.Println(bold("Power:"))
				for _, b := range power.Batteries {
					cmd.Printf("  Battery %d: %s, %s\n", b.Index, bold("%.0f%%", b.Percent), b.State)
					if b.ChargeRate != 0 {
						cmd.Printf("    Rate: %+.1f W\n", b.ChargeRate/1e3)
					}
				}
				cmd.Printf("  On battery: %s\n", bool2Text(power.OnBattery()))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON.")
	cmd.Flags().BoolVar(&history, "history", false, "Include recent cycles.")

	return cmd
}

func NewCycleCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "cycle",
		GroupID:     gBasic,
		Short:       "Sample and deliver one row now",
		Long:        `Ask the daemon to run one acquisition cycle immediately. The regular schedule is not changed.`,
		Annotations: daemonClient,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := apiClient.TriggerCycle()
			if err != nil {
				return err
			}
			cmd.Println(bold("Cycle:"))
			printCycle(cmd, *res)
			return nil
		},
	}
}
