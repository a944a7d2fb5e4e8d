/*
Copyright 2024 Sureboda Authors.

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

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sureboda/sureboda"
	"github.com/sureboda/sureboda/config"
	"github.com/sureboda/sureboda/database"
	"github.com/sureboda/sureboda/internal/notification"
)

// Sureboda represents the CLI application, encapsulating the root Cobra command.
type Sureboda struct {
	cmd *cobra.Command
}

// surebodaInstance holds the service instance and its configuration, shared by
// all subcommands.
type surebodaInstance struct {
	sureboda *sureboda.Sureboda
	cnf      *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the service instance before
// running any command.
func preRun(app *surebodaInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("sureboda.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newSureboda, err := setupSureboda(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.sureboda = newSureboda
		app.cnf = cnf

		return nil
	}
}

// setupSureboda creates and initializes a new service instance from the
// provided configuration.
func setupSureboda(cfg *config.Configuration) (*sureboda.Sureboda, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newSureboda, err := sureboda.NewSureboda(db)
	if err != nil {
		return nil, fmt.Errorf("error creating sureboda: %v", err)
	}
	return newSureboda, nil
}

// NewCLI creates the command-line interface for the application.
func NewCLI() *Sureboda {
	var configFile string
	b := &surebodaInstance{}

	var rootCmd = &cobra.Command{
		Use:   "sureboda",
		Short: "Mobile money payments and delivery ledger",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./sureboda.json", "Configuration file for the payment service")

	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))

	return &Sureboda{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during execution.
func (w Sureboda) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
