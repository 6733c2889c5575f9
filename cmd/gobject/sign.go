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
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/spf13/cobra"
)

func signCommand() *cobra.Command {
	var wifKey string
	cmd := &cobra.Command{
		Use:   "sign <object file>",
		Short: "Sign an object with a masternode key and print the signature",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := signRun(cmd.OutOrStdout(), args[0], wifKey); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVar(&wifKey, "wif", "", "private key in wallet import format")
	_ = cmd.MarkFlagRequired("wif")
	return cmd
}

func signRun(w io.Writer, objectPath string, wifKey string) error {
	wif, err := btcutil.DecodeWIF(wifKey)
	if err != nil {
		return fmt.Errorf("decode key: %w", err)
	}
	obj, err := loadObjectFile(objectPath)
	if err != nil {
		return err
	}
	if obj.Submitter() == (wire.OutPoint{}) {
		return errors.New("object file has no submitter")
	}
	if err := obj.Sign(wif.PrivKey, wif.PrivKey.PubKey()); err != nil {
		return fmt.Errorf("sign object: %w", err)
	}
	fmt.Fprintf(w, "hash:      %s\n", obj.Hash())
	fmt.Fprintf(w, "signature: %s\n", hex.EncodeToString(obj.Signature()))
	return nil
}
