// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/blinklabs-io/gobject/governance"
	"github.com/blinklabs-io/gobject/internal/config"
	"github.com/blinklabs-io/gobject/roster"
	"github.com/spf13/cobra"
)

func inspectCommand() *cobra.Command {
	var rosterFile string
	cmd := &cobra.Command{
		Use:   "inspect <object file>",
		Short: "Show the hash, signature message and local validity of an object",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			if rosterFile == "" {
				rosterFile = cfg.RosterFile
			}
			if err := inspectRun(cmd.OutOrStdout(), cfg, args[0], rosterFile); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVar(&rosterFile, "roster", "", "masternode list used to check the submitter")
	return cmd
}

func inspectRun(
	w io.Writer,
	cfg *config.Config,
	objectPath string,
	rosterFile string,
) error {
	obj, err := loadObjectFile(objectPath)
	if err != nil {
		return err
	}
	params, err := cfg.GovernanceParams()
	if err != nil {
		return err
	}
	r := roster.New()
	if rosterFile != "" {
		if err := r.LoadFile(rosterFile); err != nil {
			return err
		}
	}
	svc := &governance.Services{
		Roster: r,
		Params: params,
	}
	fmt.Fprintf(w, "hash:               %s\n", obj.Hash())
	fmt.Fprintf(w, "type:               %s\n", obj.ObjectType())
	fmt.Fprintf(w, "signature message:  %s\n", obj.SignatureMessage())
	fmt.Fprintf(w, "minimum fee:        %s\n", obj.MinCollateralFee(params))
	if payload := obj.Payload(); payload != nil {
		fmt.Fprintf(w, "payload:            %s\n", payload.JSON())
	}
	// Proposal collateral needs a chain index and is not checked here.
	// Trigger and watchdog submitters are checked when a roster is given.
	checkSubmitter := rosterFile != "" &&
		obj.ObjectType() != governance.ObjectTypeProposal
	if err := obj.IsValidLocally(svc, checkSubmitter); err != nil {
		fmt.Fprintf(w, "locally valid:      false (%s)\n", err)
	} else {
		fmt.Fprintf(w, "locally valid:      true\n")
	}
	return nil
}
