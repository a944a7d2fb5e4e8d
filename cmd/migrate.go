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

/*
Package main provides the CLI commands for bootstrapping the database schema.
*/

package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/sureboda/sureboda/config"
	"github.com/sureboda/sureboda/database"
)

// migrateCommands creates the root command for schema operations.
func migrateCommands(_ *surebodaInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "start sureboda migration",
	}

	cmd.AddCommand(migrateUpCommands())

	return cmd
}

// migrateUpCommands creates the command for applying the schema. The schema
// statements are idempotent, so running it against an existing database is
// safe.
func migrateUpCommands() *cobra.Command {
	cmd := &cobra.Command{
		Use: "up",
		Run: func(cmd *cobra.Command, args []string) {
			cnf, err := config.Fetch()
			if err != nil {
				log.Printf("Error fetching config: %v", err)
				return
			}

			db, err := database.ConnectDB(cnf.DataSource.Dns)
			if err != nil {
				log.Printf("Error connecting to database: %v", err)
				return
			}

			if err := database.CreateSchema(db); err != nil {
				log.Printf("Error applying schema: %v", err)
				return
			}

			fmt.Println("Schema applied!")
		},
	}

	return cmd
}
