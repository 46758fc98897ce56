package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/teacherportal/marks-portal-service/internal/app"
	"github.com/teacherportal/marks-portal-service/internal/config"
	"github.com/teacherportal/marks-portal-service/internal/domain"
	"github.com/teacherportal/marks-portal-service/internal/repository"
	"github.com/teacherportal/marks-portal-service/internal/security"
	"github.com/teacherportal/marks-portal-service/internal/service"
	"github.com/teacherportal/marks-portal-service/internal/tools/common"
	"github.com/teacherportal/marks-portal-service/internal/tools/smokecheck"
)

func main() {
	root := &cobra.Command{
		Use:           "marksportal",
		Short:         "Teacher marks portal backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newCreateTeacherCommand())
	root.AddCommand(smokecheck.NewRootCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.LoadEnvFile(".env"); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.Initialize(ctx)
			if err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}
}

func newCreateTeacherCommand() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "create-teacher",
		Short: "Register a teacher account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.LoadEnvFile(".env"); err != nil {
				return err
			}
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}

			username, err = service.ValidateUsername(username)
			if err != nil {
				return err
			}
			if err := service.ValidatePassword(password); err != nil {
				return err
			}

			db, err := repository.Open(cfg)
			if err != nil {
				return err
			}

			hasher, err := security.NewPasswordHasher(cfg.HashIterations)
			if err != nil {
				return err
			}
			salt, err := hasher.NewSalt()
			if err != nil {
				return err
			}

			teachers := repository.NewTeacherRepository(db)
			teacher := &domain.Teacher{
				Username:     username,
				Salt:         salt,
				PasswordHash: hasher.Hash(password, salt),
			}
			if err := teachers.Create(teacher); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("username %q is already taken", username)
				}
				return err
			}
			fmt.Printf("teacher %q created (id=%d)\n", teacher.Username, teacher.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login username (at least 3 characters)")
	cmd.Flags().StringVar(&password, "password", "", "login password (at least 6 characters)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
