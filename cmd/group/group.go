package group

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"yatube/backoffice"
	"yatube/common"
	"yatube/forms"
)

const (
	titleFlag       = "title"
	slugFlag        = "slug"
	descriptionFlag = "description"
)

var createFlags = map[string]cobraflags.Flag{
	titleFlag: &cobraflags.StringFlag{
		Name:  titleFlag,
		Value: "",
		Usage: "Group title (required, at most 200 characters)",
	},
	slugFlag: &cobraflags.StringFlag{
		Name:  slugFlag,
		Value: "",
		Usage: "Unique group slug: letters, numbers, underscores or hyphens (required)",
	},
	descriptionFlag: &cobraflags.StringFlag{
		Name:  descriptionFlag,
		Value: "",
		Usage: "Group description (required)",
	},
}

var deleteFlags = map[string]cobraflags.Flag{
	slugFlag: &cobraflags.StringFlag{
		Name:  slugFlag,
		Value: "",
		Usage: "Slug of the group to delete (required)",
	},
}

func NewGroupCommand() *cobra.Command {
	groupCmd := &cobra.Command{
		Use:   "group [create|delete|list]",
		Short: "Manage post groups",
	}

	groupCmd.AddCommand(newCreateCommand())
	groupCmd.AddCommand(newDeleteCommand())
	groupCmd.AddCommand(newListCommand())
	return groupCmd
}

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a group",
		Example: `  yatube group create --title "Cats" --slug cats --description "All about cats"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form := forms.GroupForm{
				Title:       createFlags[titleFlag].GetString(),
				Slug:        createFlags[slugFlag].GetString(),
				Description: createFlags[descriptionFlag].GetString(),
			}
			return withDB(func(db *gorm.DB, logger *zap.Logger) error {
				return runCreate(db, cmd.OutOrStdout(), form)
			})
		},
	}
	cobraflags.RegisterMap(cmd, createFlags)
	return cmd
}

func newDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a group; its posts are kept without a group",
		RunE: func(cmd *cobra.Command, _ []string) error {
			slug := deleteFlags[slugFlag].GetString()
			return withDB(func(db *gorm.DB, logger *zap.Logger) error {
				return runDelete(db, cmd.OutOrStdout(), slug)
			})
		},
	}
	cobraflags.RegisterMap(cmd, deleteFlags)
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List groups with their post counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(db *gorm.DB, logger *zap.Logger) error {
				return runList(db, cmd.OutOrStdout())
			})
		},
	}
}

func withDB(fn func(db *gorm.DB, logger *zap.Logger) error) error {
	app, err := common.Open()
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app.DB, app.Logger)
}

func runCreate(db *gorm.DB, out io.Writer, form forms.GroupForm) error {
	group, err := backoffice.CreateGroup(db, form)
	if err != nil {
		if msgs := forms.Messages(err); msgs != nil {
			return fmt.Errorf("invalid group: %v", msgs)
		}
		return err
	}
	fmt.Fprintf(out, "created group %q (%s)\n", group.Title, group.Slug)
	return nil
}

func runDelete(db *gorm.DB, out io.Writer, slug string) error {
	if slug == "" {
		return fmt.Errorf("--%s is required", slugFlag)
	}
	if err := backoffice.DeleteGroup(db, slug); err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted group %s\n", slug)
	return nil
}

func runList(db *gorm.DB, out io.Writer) error {
	groups, err := backoffice.ListGroups(db)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tTITLE\tPOSTS")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%s\t%d\n", g.Group.Slug, g.Group.Title, g.PostCount)
	}
	return w.Flush()
}
