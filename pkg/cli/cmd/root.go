/*
Copyright 2026 The Faros Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cmd implements the idp-bootstrap CLI commands.
package cmd

import (
	goflag "flag"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/klog/v2"
)

// NewRootCommand creates the root cobra command for the idp-bootstrap CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(genericclioptions.IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr})
}

func newRootCommand(streams genericclioptions.IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idp-bootstrap",
		Short: "Provision an identity provider organization and OIDC application for a project",
		Long: `idp-bootstrap registers a developer organization with the identity provider,
creates (or reuses) an OIDC application for your project and records the issuer,
client id and client secret in the project's application configuration.

Every step is skipped when its result is already recorded, so it is safe to run
again at any time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.ErrOut)

	klogFlags := goflag.NewFlagSet("klog", goflag.ContinueOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	cmd.AddCommand(
		newSetupCommand(streams),
		newVersionCommand(),
	)

	return cmd
}
