package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-signup/app/repository"
	"github.com/vibast-solutions/ms-go-signup/app/service"
)

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage internal service API keys",
}

var apiKeyGenerateCmd = &cobra.Command{
	Use:   "generate <service_name>",
	Short: "Generate an internal API key for a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		internalAuthService, db, err := newInternalAuthServiceForAPIKeyCommands()
		if err != nil {
			return err
		}
		defer db.Close()

		serviceName := args[0]
		key, err := internalAuthService.GenerateInternalAPIKey(context.Background(), serviceName)
		if err != nil {
			if errors.Is(err, service.ErrServiceHasActiveAPIKey) {
				return fmt.Errorf("service %q already has an active API key", serviceName)
			}
			return err
		}

		fmt.Printf("service_name: %s\n", serviceName)
		fmt.Printf("api_key: %s\n", key)
		fmt.Printf("expires_at: %s\n", time.Now().AddDate(100, 0, 0).Format(time.RFC3339))
		return nil
	},
}

var apiKeyAllowCmd = &cobra.Command{
	Use:   "allow <service_name> <access>",
	Short: "Grant a service access to sign-up or users-admin endpoints",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		serviceName := args[0]
		access := args[1]
		if access != service.AccessSignUp && access != service.AccessUsersAdmin {
			return fmt.Errorf("unknown access %q, expected %q or %q", access, service.AccessSignUp, service.AccessUsersAdmin)
		}

		internalAuthService, db, err := newInternalAuthServiceForAPIKeyCommands()
		if err != nil {
			return err
		}
		defer db.Close()

		if err = internalAuthService.AddInternalAllowedAccess(context.Background(), serviceName, access); err != nil {
			if errors.Is(err, service.ErrServiceHasNoActiveAPIKey) {
				return fmt.Errorf("service %q has no active API key", serviceName)
			}
			return err
		}

		fmt.Printf("allowed access updated: %s -> %s\n", serviceName, access)
		return nil
	},
}

var apiKeyDeactivateCmd = &cobra.Command{
	Use:   "deactivate <service_name>",
	Short: "Deactivate all active API keys for a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		internalAuthService, db, err := newInternalAuthServiceForAPIKeyCommands()
		if err != nil {
			return err
		}
		defer db.Close()

		serviceName := args[0]
		count, err := internalAuthService.DeactivateInternalAPIKeys(context.Background(), serviceName)
		if err != nil {
			if errors.Is(err, service.ErrServiceHasNoActiveAPIKey) {
				return fmt.Errorf("service %q has no active API key", serviceName)
			}
			return err
		}

		fmt.Printf("deactivated %d active API key(s) for service %s\n", count, serviceName)
		return nil
	},
}

func init() {
	apiKeyCmd.AddCommand(apiKeyGenerateCmd)
	apiKeyCmd.AddCommand(apiKeyAllowCmd)
	apiKeyCmd.AddCommand(apiKeyDeactivateCmd)
	rootCmd.AddCommand(apiKeyCmd)
}

func newInternalAuthServiceForAPIKeyCommands() (service.InternalAuthService, *sql.DB, error) {
	db, err := openDatabase()
	if err != nil {
		return nil, nil, err
	}

	internalAPIKeyRepo := repository.NewInternalAPIKeyRepository(db)
	return service.NewInternalAuthService(internalAPIKeyRepo), db, nil
}
