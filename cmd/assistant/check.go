package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the AI provider and the messaging session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		var failed error

		if reply, err := a.Responder.Ping(cmd.Context()); err != nil {
			fmt.Fprintf(out, "ai:        FAIL %v\n", err)
			failed = errors.Join(failed, err)
		} else {
			fmt.Fprintf(out, "ai:        ok (%q)\n", reply)
		}

		if status, err := a.Delivery.SessionStatus(cmd.Context()); err != nil {
			fmt.Fprintf(out, "messaging: FAIL %v\n", err)
			failed = errors.Join(failed, err)
		} else {
			fmt.Fprintf(out, "messaging: ok (%s)\n", status)
		}
		return failed
	},
}
