package migrate

import (
	"github.com/spf13/cobra"

	"yatube/common"
	"yatube/database"
)

func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := common.Open()
			if err != nil {
				return err
			}
			defer app.Close()

			return database.RunMigrations(app.DB, app.Logger)
		},
	}
}
