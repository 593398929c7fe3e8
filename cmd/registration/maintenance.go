package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/yakoovad/scrapyard-registration/internal/db"
	"github.com/yakoovad/scrapyard-registration/internal/model"
	"github.com/yakoovad/scrapyard-registration/internal/repository"
	"github.com/yakoovad/scrapyard-registration/internal/service"
	"github.com/yakoovad/scrapyard-registration/pkg/logger"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, l, err := bootstrap()
		if err != nil {
			return err
		}
		defer l.Sync()

		pool, err := connect(cmd.Context(), v)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err = db.Migrate(cmd.Context(), pool); err != nil {
			return err
		}

		l.Info("schema applied")
		return nil
	},
}

var resetCheckInCmd = &cobra.Command{
	Use:   "reset-checkin",
	Short: "Clear every check-in flag before an event day",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, l, err := bootstrap()
		if err != nil {
			return err
		}
		defer l.Sync()

		pool, err := connect(cmd.Context(), v)
		if err != nil {
			return err
		}
		defer pool.Close()

		ctx := logger.WithLogger(cmd.Context(), l)
		checkIn := service.NewCheckInService().
			WithTeamRepo(repository.NewPgxTeamRepository(pool)).
			WithPersonRepo(repository.NewPgxPersonRepository(pool))

		n, serr := checkIn.ResetCheckIns(ctx)
		if serr != nil {
			return serr
		}

		l.Info("check-ins reset", zap.Int64("count", n))
		return nil
	},
}

var (
	staffName     string
	staffInactive bool
)

var staffCmd = &cobra.Command{
	Use:   "staff",
	Short: "Manage staff accounts",
}

var staffAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Create or update a staff account allowed to sign in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, l, err := bootstrap()
		if err != nil {
			return err
		}
		defer l.Sync()

		email := strings.ToLower(strings.TrimSpace(args[0]))
		domain := "@" + strings.ToLower(v.GetString("staff.email_domain"))
		if !strings.HasSuffix(email, domain) {
			return service.NewError(service.ErrorCodeValidationFailed, "staff email must end with "+domain)
		}

		pool, err := connect(cmd.Context(), v)
		if err != nil {
			return err
		}
		defer pool.Close()

		staff := &model.Staff{Email: email, Name: staffName, Active: !staffInactive}
		if err = repository.NewPgxStaffRepository(pool).Upsert(cmd.Context(), staff); err != nil {
			return err
		}

		l.Info("staff saved", zap.String("email", email), zap.Bool("active", staff.Active))
		return nil
	},
}

func init() {
	staffAddCmd.Flags().StringVar(&staffName, "name", "", "display name")
	staffAddCmd.Flags().BoolVar(&staffInactive, "inactive", false, "disable sign-in for this account")
	staffCmd.AddCommand(staffAddCmd)
}
