package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/creamcroissant/vibemall/internal/tui"
)

var tuiAdminEmail string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive order approval console",
	Long:  "Launch a terminal UI that lists orders waiting for approval and lets a staff account approve or reject them.",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&tuiAdminEmail, "admin", "", "Email of the staff account recorded as approver")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(tuiAdminEmail) == "" {
		return fmt.Errorf("--admin is required")
	}
	return withApplication(cmd.Context(), func(app *application) error {
		admin, err := app.store.Users().FindByEmail(cmd.Context(), strings.ToLower(strings.TrimSpace(tuiAdminEmail)))
		if err != nil {
			return fmt.Errorf("find admin: %w", err)
		}
		if !admin.IsStaff {
			return fmt.Errorf("%s is not a staff account", admin.Email)
		}

		model := tui.NewModel(tui.Deps{
			Approvals: app.services.Approvals,
			Orders:    app.services.Orders,
			ActorID:   admin.ID,
		})
		p := tea.NewProgram(
			model,
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
		)
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}

		// 审核产生的邮件在退出前发出
		if app.infra.EmailQueue.Pending() > 0 {
			if err := app.scheduler.RunNow(cmd.Context(), "email.dispatch"); err != nil {
				return fmt.Errorf("flush email queue: %w", err)
			}
		}
		return nil
	})
}
